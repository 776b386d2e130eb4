package llm_service

import (
	"context"
)

type MockLLMService struct {
	CompleteFunc func(ctx context.Context, prompt string) (string, error)
}

func (m *MockLLMService) Complete(ctx context.Context, prompt string) (string, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "mock response", nil
}
