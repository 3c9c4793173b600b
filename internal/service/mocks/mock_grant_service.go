package mocks

import (
	"context"
	"io"

	"kawach/internal/model"
	"kawach/internal/service"
	"kawach/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockGrantService struct {
	mock.Mock
}

func (m *MockGrantService) RequestGrant(ctx context.Context, documentID, requesterID string) (*service.GrantResult, error) {
	args := m.Called(ctx, documentID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GrantResult), args.Error(1)
}

func (m *MockGrantService) Status(ctx context.Context, documentID, requesterID string) (*service.GrantStatusResult, error) {
	args := m.Called(ctx, documentID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.GrantStatusResult), args.Error(1)
}

func (m *MockGrantService) Artifact(ctx context.Context, documentID, requesterID string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, documentID, requesterID)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockGrantService) Resolve(ctx context.Context, documentID, token string) (*model.Document, error) {
	args := m.Called(ctx, documentID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockGrantService) Retrieve(ctx context.Context, documentID, token string) (*service.Content, error) {
	args := m.Called(ctx, documentID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Content), args.Error(1)
}

func (m *MockGrantService) ResumeCountdowns(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
