package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserExists         = errors.New("username or email already registered")
	ErrValidation         = errors.New("validation failed")
	ErrRoomNotFound       = errors.New("room not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrEmptyMessage       = errors.New("message blocked: empty after removing markup")
	ErrMessageTooLong     = errors.New("message too long")
)
