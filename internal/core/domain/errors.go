package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates wrong username/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSyncInProgress indicates a sync run is already active
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnknownKind indicates an entity kind the engine does not sync
	ErrUnknownKind = errors.New("unknown entity kind")

	// ErrMalformedItem indicates an upstream item could not be decoded
	ErrMalformedItem = errors.New("malformed upstream item")

	// ErrUpstream indicates the upstream CMS answered with a failure
	ErrUpstream = errors.New("upstream request failed")
)
