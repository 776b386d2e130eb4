package llm_service

import (
	"context"
	"errors"
	"fmt"
)

// ModelInvocationError is a network, timeout, or model-side failure. The
// underlying cause is preserved so callers can report "model unavailable"
// distinctly from other pipeline failures.
type ModelInvocationError struct {
	Provider string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("%s model invocation failed: %v", e.Provider, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// retryable reports whether an attempt is worth repeating. Context
// cancellation and deadline expiry are terminal.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
