package domain

import "errors"

// Input and identity errors. These are safe to show to the caller.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
)

// Infrastructure errors. These are logged and reported generically.
var (
	ErrUpstream         = errors.New("upstream catalog error")
	ErrStoreUnavailable = errors.New("store unavailable")
)
