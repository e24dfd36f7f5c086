package feeds

import (
	"errors"
	"fmt"
)

// FatalPreconditionError means a required feed is absent or structurally
// invalid. The run must stop without writing any output.
type FatalPreconditionError struct {
	Feed   string
	Path   string
	Reason string
	Err    error
}

func (e *FatalPreconditionError) Error() string {
	msg := fmt.Sprintf("fatal precondition on %s feed (%s): %s", e.Feed, e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FatalPreconditionError) Unwrap() error {
	return e.Err
}

// SkippableRecordError is one malformed file or record among many; it is
// logged, counted and excluded while the run continues
type SkippableRecordError struct {
	Source string
	Reason string
}

func (e *SkippableRecordError) Error() string {
	return fmt.Sprintf("skipped %s: %s", e.Source, e.Reason)
}

// IsFatal reports whether err carries a FatalPreconditionError
func IsFatal(err error) bool {
	var fe *FatalPreconditionError
	return errors.As(err, &fe)
}

func fatal(feed, path, reason string, err error) error {
	return &FatalPreconditionError{Feed: feed, Path: path, Reason: reason, Err: err}
}
