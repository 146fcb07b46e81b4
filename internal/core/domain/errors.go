package domain

import "errors"

// Common domain errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

// Staff errors
var (
	ErrStaffNotFound      = errors.New("staff not found")
	ErrStaffAlreadyExists = errors.New("staff already exists")
	ErrStaffInactive      = errors.New("staff account is inactive")
)

// Loyalty errors
var (
	ErrMemberNotFound = errors.New("membership not found")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// Client workflow errors
var (
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrCameraDenied     = errors.New("camera permission denied")
	ErrNoCamera         = errors.New("no camera found")
	ErrSubmitInFlight   = errors.New("submission already in flight")
	ErrScreenClosed     = errors.New("screen closed before result arrived")
)
