package mocks

import (
	"context"

	"kawach/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockGrantRepository struct {
	mock.Mock
}

func (m *MockGrantRepository) Upsert(ctx context.Context, g *model.AccessGrant) (*model.AccessGrant, error) {
	args := m.Called(ctx, g)
	if f, ok := args.Get(0).(func(context.Context, *model.AccessGrant) *model.AccessGrant); ok {
		return f(ctx, g), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) FindByDocumentID(ctx context.Context, documentID string) (*model.AccessGrant, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) ListActive(ctx context.Context) ([]model.AccessGrant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessGrant), args.Error(1)
}

func (m *MockGrantRepository) Delete(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}
