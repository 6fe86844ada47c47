package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"avplan/internal/port"
)

// MockInterpreter is a mock implementation of port.Interpreter.
type MockInterpreter struct {
	mock.Mock
}

func (m *MockInterpreter) Interpret(ctx context.Context, input port.InterpretInput) (*port.InterpretOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.InterpretOutput), args.Error(1)
}
