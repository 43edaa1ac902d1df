package catalog

import "fmt"

// AccessError reports a root or file that could not be read. Access
// failures are skipped and counted; they never abort a scan of other
// files or roots.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// ExtractionError reports a file whose header could not be parsed.
// The scanner records a placeholder entry for it and moves on.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
