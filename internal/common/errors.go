// Package common defines shared constants and sentinel errors used across
// the session, storage and transport layers of tokenkeeper. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Key / storage errors.
	ErrKeyUnavailable   = errors.New("secret key unavailable")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrMalformedBlob    = errors.New("malformed encrypted blob")

	// Refresh-path errors. Both leave the session Unauthenticated.
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	ErrRefreshFailed       = errors.New("refresh token exchange failed")

	// ErrNotAuthenticated is returned to a protected-API caller whose request
	// could not be authenticated even after refresh. It must not be retried.
	ErrNotAuthenticated = errors.New("could not authenticate")
)
