package services

import "errors"

// Gameplay failures are plain sentinel values: the engine rejects the
// operation without mutating state and the caller maps the error to a
// targeted client notification.
var (
	ErrWrongStatus         = errors.New("operation not valid in current game status")
	ErrNoCards             = errors.New("no cards have been sold yet")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already registered")
	ErrInvalidCredentials  = errors.New("invalid whatsapp or password")
	ErrPoolExhausted       = errors.New("all 90 balls drawn without a full card")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMaxCards            = errors.New("card limit for this event reached")
)
