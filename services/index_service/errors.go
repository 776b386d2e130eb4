package index_service

import "fmt"

// IndexBuildError means embedding or storage failed while building an
// index. No partial index is left reachable when this is returned.
type IndexBuildError struct {
	Fingerprint string
	Stage       string
	Err         error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build failed at %s stage (fingerprint %.12s): %v", e.Stage, e.Fingerprint, e.Err)
}

func (e *IndexBuildError) Unwrap() error {
	return e.Err
}
