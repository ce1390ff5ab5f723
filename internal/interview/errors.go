package interview

import (
	"errors"
	"fmt"
)

// ErrNotFound means the session id does not exist (404 at the API edge).
var ErrNotFound = errors.New("interview session not found")

// ErrInvalidTransition means the requested lifecycle transition is not
// allowed from the session's current status. State is left untouched.
var ErrInvalidTransition = errors.New("invalid session transition")

// ErrOutOfOrder means a turn-taking rule was violated, e.g. asking for
// the next question before the candidate answered the previous one.
// Duplicate retried requests land here instead of double-advancing.
var ErrOutOfOrder = errors.New("request out of turn order")

// ErrSummaryNotReady signals a summary poll before finalization finished.
// Callers are expected to retry; this is not a failure.
var ErrSummaryNotReady = errors.New("summary not generated yet")

// ErrMissingField reports a missing or invalid required profile field.
func ErrMissingField(field string) error {
	return fmt.Errorf("%w: %s", ErrValidation, field)
}

// ErrValidation is the base error for rejected creation input.
var ErrValidation = errors.New("missing required field")
