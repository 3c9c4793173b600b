package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"kawach/internal/model"
	"kawach/internal/repository"
	repoMocks "kawach/internal/repository/mocks"
	"kawach/internal/storage"
	storeMocks "kawach/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name             string
		owner            string
		originalFilename string
		contentType      string
		size             int64
		setupMocks       func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader
		wantErr          error
		wantErrMsg       string
	}{
		{
			name:             "happy path",
			owner:            "alice",
			originalFilename: "test.txt",
			contentType:      "text/plain",
			size:             11,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello world")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".txt")
				}), r, storage.PutObjectOptions{
					Size:        11,
					ContentType: "text/plain",
					Metadata:    map[string]string{"original-filename": "test.txt", "owner-id": "alice"},
				}).Return(storage.ObjectInfo{
					Key:         "documents/uuid.txt",
					Size:        11,
					ContentType: "text/plain",
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
					return doc.OwnerID == "alice" && doc.OriginalName == "test.txt" && doc.StoragePath == "documents/uuid.txt"
				})).Return(&model.Document{ID: "gen-id", OwnerID: "alice"}, nil)

				return r
			},
		},
		{
			name:             "validation error - nil reader",
			owner:            "alice",
			originalFilename: "test.txt",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:             "validation error - no owner",
			originalFilename: "test.txt",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				return strings.NewReader("x")
			},
			wantErr: ErrOwnerRequired,
		},
		{
			name:             "storage error",
			owner:            "alice",
			originalFilename: "test.txt",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErr:    ErrUpstreamUnavailable,
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:             "repository error with successful rollback",
			owner:            "alice",
			originalFilename: "test.txt",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return r
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:             "repository error with failed rollback",
			owner:            "alice",
			originalFilename: "test.txt",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(mStore, mRepo, &fakeRevoker{}, newFakeCountdown())

			r := tt.setupMocks(mStore, mRepo)

			doc, err := svc.Upload(ctx, tt.owner, r, tt.originalFilename, tt.contentType, tt.size)

			switch {
			case tt.wantErr != nil || tt.wantErrMsg != "":
				assert.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				if tt.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tt.wantErrMsg)
				}
				assert.Nil(t, doc)
			default:
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		checkRes   func(t *testing.T, res *DocumentListResult)
	}{
		{
			name:   "happy path",
			limit:  10,
			offset: 0,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "alice", repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{
						Items: []model.Document{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *DocumentListResult) {
				assert.Equal(t, 2, len(res.Items))
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "pagination boundary - zero limit uses default",
			limit:  0,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "alice", repository.PageQuery{Limit: 10, Offset: 0}).
					Return(&repository.PageResult[model.Document]{Items: []model.Document{}, Total: 0}, nil)
			},
		},
		{
			name:  "pagination boundary - limit is capped",
			limit: 1000,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "alice", repository.PageQuery{Limit: 100, Offset: 0}).
					Return(&repository.PageResult[model.Document]{}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("ListByOwner", ctx, "alice", mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, nil, nil)

			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, "alice", tt.limit, tt.offset)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id", OwnerID: "alice"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "someone else's document",
			id:   "bobs-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "bobs-id").Return(&model.Document{ID: "bobs-id", OwnerID: "bob"}, nil)
			},
			wantErr: ErrForbidden,
		},
		{
			name: "generic repository error",
			id:   "error-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "error-id").Return(nil, errors.New("db fail"))
			},
			wantErr: ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := NewDocumentService(nil, mRepo, nil, nil)

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id, "alice")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		id            string
		setupMocks    func(mRepo *repoMocks.MockDocumentRepository)
		revokeErr     error
		wantErr       error
		wantRevoked   bool
		wantCancelled bool
	}{
		{
			name: "owner deletes",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id", OwnerID: "alice"}, nil)
			},
			wantRevoked:   true,
			wantCancelled: true,
		},
		{
			name:       "validation - empty id",
			id:         "",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "already gone still succeeds",
			id:   "missing-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "missing-id").Return(nil, sql.ErrNoRows)
			},
			wantRevoked:   true,
			wantCancelled: true,
		},
		{
			name: "non-owner is forbidden",
			id:   "bobs-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "bobs-id").Return(&model.Document{ID: "bobs-id", OwnerID: "bob"}, nil)
			},
			wantErr: ErrForbidden,
		},
		{
			name: "directory unreachable",
			id:   "any-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "any-id").Return(nil, errors.New("connection refused"))
			},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name: "revocation failure keeps countdown",
			id:   "valid-id",
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, "valid-id").Return(&model.Document{ID: "valid-id", OwnerID: "alice"}, nil)
			},
			revokeErr:   ErrRevocationFailed,
			wantErr:     ErrRevocationFailed,
			wantRevoked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			rev := &fakeRevoker{err: tt.revokeErr}
			cd := newFakeCountdown()
			svc := NewDocumentService(nil, mRepo, rev, cd)

			tt.setupMocks(mRepo)

			res, err := svc.Delete(ctx, tt.id, "alice")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, res)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, res.DocumentID)
			}
			if tt.wantRevoked {
				assert.Equal(t, []string{tt.id + ":" + ReasonDeleted}, rev.calls)
			} else {
				assert.Empty(t, rev.calls)
			}
			if tt.wantCancelled {
				assert.Equal(t, []string{tt.id}, cd.cancelled)
			} else {
				assert.Empty(t, cd.cancelled)
			}
			mRepo.AssertExpectations(t)
		})
	}
}
