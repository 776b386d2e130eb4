package extract_service

import "fmt"

// ExtractionError is a terminal extraction failure: unsupported input,
// a corrupt file, or a file that yielded no usable text.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed for %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Source, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
