// Package common defines shared sentinel errors used across the server
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository- and store-level errors.
	ErrNotFound = errors.New("not found")

	// ErrConflict signals that a name is already taken: a folder create over
	// an existing folder, or a share-name claim that lost the race.
	ErrConflict = errors.New("already exists")

	// Validation errors, raised before any I/O is attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")

	// ErrUpstream covers object-store or credential-exchange failures not
	// attributable to the caller. Not retried at this layer.
	ErrUpstream = errors.New("upstream unavailable")
)
