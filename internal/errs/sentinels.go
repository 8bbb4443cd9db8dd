// Package errs contains sentinel errors and typed errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client layers.
var (
	// ErrNotFound indicates the requested product does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the server rejected the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthentication indicates failed login or registration.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation indicates a 400 response with field-level details.
	ErrValidation = errors.New("validation failed")

	// ErrNetwork indicates a transport failure (no HTTP response).
	ErrNetwork = errors.New("network error")

	// ErrNoToken indicates the token store holds no token.
	ErrNoToken = errors.New("no token stored")
)
