package model

import (
	"strings"
	"time"
)

// PlayerID uniquely identifies a stored player record
type PlayerID string

// PlayerList names one of the player collections
type PlayerList string

const (
	// ListRegistrations holds live sign-ups for the active registration session
	ListRegistrations PlayerList = "registrations"
	// ListMasterlist holds the admin-curated reference roster
	ListMasterlist PlayerList = "masterlist"
)

// Valid reports whether l is a known list
func (l PlayerList) Valid() bool {
	return l == ListRegistrations || l == ListMasterlist
}

// PlayerDetails are the user-supplied fields of a player
type PlayerDetails struct {
	Name    string
	Dota2ID string
	MMR     int
	Notes   string
}

// Player is a persisted player record
type Player struct {
	ID   PlayerID
	List PlayerList
	PlayerDetails
	// RegistrationSessionID is set for players registered into a session
	RegistrationSessionID RegistrationSessionID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NameKey returns the case-insensitive identity key for a player name
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameIdentity reports whether the player collides with the given name or Dota 2 ID.
// Two players are the same if either the name (case-insensitive) or the id matches.
func (p *Player) SameIdentity(name, dota2ID string) bool {
	if key := NameKey(name); key != "" && NameKey(p.Name) == key {
		return true
	}
	id := strings.TrimSpace(dota2ID)
	return id != "" && p.Dota2ID == id
}

// PlayerFilter narrows a player listing
type PlayerFilter struct {
	// RegistrationSessionID restricts results to one registration session
	RegistrationSessionID RegistrationSessionID
	// Search matches a case-insensitive substring of the name or the Dota 2 ID
	Search string
}

// Matches reports whether the player passes the filter
func (f PlayerFilter) Matches(p *Player) bool {
	if f.RegistrationSessionID != "" && p.RegistrationSessionID != f.RegistrationSessionID {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(strings.TrimSpace(f.Search))
		if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(p.Dota2ID, needle) {
			return false
		}
	}
	return true
}
