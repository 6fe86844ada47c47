package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"avplan/internal/domain"
	"avplan/internal/service"
)

// MockJobService is a mock implementation of service.JobService.
type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) Analyze(ctx context.Context, input service.AnalyzeInput) (*domain.JobResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobResult), args.Error(1)
}

func (m *MockJobService) InterpretText(ctx context.Context, input service.InterpretTextInput) (*service.InterpretTextOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InterpretTextOutput), args.Error(1)
}
