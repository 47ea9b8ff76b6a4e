package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenExpired occurs when a bearer token is missing or past its TTL.
	ErrTokenExpired = errors.New("token expired")
)
