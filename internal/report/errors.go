package report

import "fmt"

// InputNotFoundError indicates a required input file was absent, usually
// because the producing job has not run yet.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

func (e *InputNotFoundError) Unwrap() error {
	return e.Err
}

// SendError indicates delivery to a single recipient failed. Other
// recipients are unaffected.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send report to %s: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
