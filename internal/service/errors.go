package service

import "errors"

// Error kinds surfaced verbatim to callers. Each is terminal for the call
// that produced it; nothing is retried.
var (
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active session")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrBusinessNotFound   = errors.New("business not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrUserNotFound       = errors.New("user not found")
)

// isSessionError reports whether err is one of the session validation kinds.
func isSessionError(err error) bool {
	return errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrSessionExpired)
}
