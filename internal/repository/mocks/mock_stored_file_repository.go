package mocks

import (
	"context"

	"uploadapi/internal/model"
	"uploadapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockStoredFileRepository struct {
	mock.Mock
}

func (m *MockStoredFileRepository) Create(ctx context.Context, f *model.StoredFile) (*model.StoredFile, error) {
	args := m.Called(ctx, f)
	if fn, ok := args.Get(0).(func(context.Context, *model.StoredFile) *model.StoredFile); ok {
		return fn(ctx, f), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockStoredFileRepository) FindByID(ctx context.Context, id string) (*model.StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StoredFile), args.Error(1)
}

func (m *MockStoredFileRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.StoredFile], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.StoredFile]), args.Error(1)
}
