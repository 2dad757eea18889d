package mocks

import (
	"context"

	"uploadapi/internal/audit"

	"github.com/stretchr/testify/mock"
)

type MockSecurityEventRepository struct {
	mock.Mock
}

func (m *MockSecurityEventRepository) Append(ctx context.Context, e audit.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockSecurityEventRepository) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.Event), args.Error(1)
}
