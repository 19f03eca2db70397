package fetch

import (
	"errors"
	"fmt"
)

// Error is a failed retrieval. Transient errors (429, 5xx, connection-level
// failures) are retried with backoff; permanent errors (remaining 4xx) are
// surfaced immediately.
type Error struct {
	URL        string
	StatusCode int // zero for connection-level failures
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a fetch error worth retrying.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Transient
}
