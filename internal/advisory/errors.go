package advisory

import (
	"context"
	"errors"
	"fmt"
)

// StatusError is returned when the advisory service answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("advisory %s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("advisory %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsCanceled reports whether err comes from an abandoned request. These are
// expected whenever a newer value supersedes an in-flight check.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
