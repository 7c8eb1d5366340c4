package model

import "time"

// RegistrationSessionID identifies a registration window
type RegistrationSessionID string

// RegistrationState is the computed state of a registration session
type RegistrationState string

const (
	RegistrationPending RegistrationState = "PENDING"
	RegistrationOpen    RegistrationState = "OPEN"
	RegistrationClosed  RegistrationState = "CLOSED"
)

// RegistrationSession is a tournament's time-boxed sign-up window.
// The player count is never stored; it is recomputed from the registrations list.
type RegistrationSession struct {
	ID         RegistrationSessionID
	Title      string
	IsActive   bool
	StartTime  *time.Time
	Expiry     *time.Time
	MaxPlayers *int
	// ClosedAt latches the session closed; only an explicit reopen clears it
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistrationStatus is a point-in-time evaluation of a session
type RegistrationStatus struct {
	Session     *RegistrationSession
	State       RegistrationState
	PlayerCount int
	// CountdownTarget is the start time while pending, the expiry while open, nil when closed
	CountdownTarget *time.Time
}

// IsOpen reports whether submissions are currently accepted
func (s *RegistrationStatus) IsOpen() bool {
	return s.State == RegistrationOpen
}
