package service

import "errors"

// Login failures stay uniform: callers never learn whether the username or
// the password was wrong. Locked and disabled are surfaced distinctly on
// purpose, they describe administrative conditions.
var (
	ErrValidation           = errors.New("username and password are required")
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrAccountLocked        = errors.New("account locked")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrCompromiseDetected   = errors.New("refresh token reuse detected")
	ErrConflict             = errors.New("user already exists")
	ErrForbidden            = errors.New("operation not permitted")
)
