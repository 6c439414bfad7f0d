package core

import "errors"

// Error kinds shared by every domain operation. Services wrap them with
// fmt.Errorf("%w: ...") and the API layer maps them to HTTP statuses.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("operation not allowed in the current issue state")
	ErrQuotaExceeded     = errors.New("free issue quota exceeded")
	ErrBlocked           = errors.New("account is blocked")
	ErrDuplicate         = errors.New("duplicate")
	ErrSelfVote          = errors.New("cannot upvote own issue")
	ErrInvalid           = errors.New("invalid request")
	ErrInternal          = errors.New("internal failure")
)
