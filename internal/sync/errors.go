package sync

import "errors"

// Error taxonomy surfaced through socket acks. Handlers wrap these with
// fmt.Errorf("...: %w", Err...) so callers can match with errors.Is while
// the ack carries a readable message.
var (
	// ErrNotFound covers missing rooms, songs and users, and closed rooms.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means the acting user's role or the room policy
	// disallows the requested action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidPayload means a missing or malformed field.
	ErrInvalidPayload = errors.New("invalid payload")
)

// IsClientError reports whether err carries a message safe to return to the
// caller verbatim. Anything else is logged and replaced with a generic
// message so internals never leak through an ack.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrInvalidPayload)
}
