package llm_service

import "context"

// LLMService produces a completion for a fully rendered prompt.
type LLMService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
