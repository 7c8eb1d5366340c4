package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound  = errors.New("player not found")
	ErrDuplicatePlayer = errors.New("a player with this name or Dota 2 ID is already registered")
	ErrUnknownList     = errors.New("unknown player list")
	ErrValidation      = errors.New("validation failed")

	// Registration session errors
	ErrRegistrationSessionNotFound = errors.New("registration session not found")
	ErrNoActiveRegistration        = errors.New("no active registration session")
	ErrRegistrationClosed          = errors.New("registration is not open")
	ErrRegistrationFull            = errors.New("registration is full")
	ErrInvalidRegistrationSession  = errors.New("invalid registration session")

	// Admin errors
	ErrAdminUserNotFound    = errors.New("admin user not found")
	ErrAdminSessionNotFound = errors.New("admin session not found")
)
