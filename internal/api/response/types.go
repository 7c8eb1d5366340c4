package response

import (
	"time"

	"github.com/mcoot/dotareg/internal/model"
)

// Player represents a player in API responses
type Player struct {
	ID                    string    `json:"id"`
	List                  string    `json:"list"`
	Name                  string    `json:"name"`
	Dota2ID               string    `json:"dota2id"`
	MMR                   int       `json:"mmr"`
	Notes                 string    `json:"notes,omitempty"`
	RegistrationSessionID string    `json:"registrationSessionId,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:                    string(p.ID),
		List:                  string(p.List),
		Name:                  p.Name,
		Dota2ID:               p.Dota2ID,
		MMR:                   p.MMR,
		Notes:                 p.Notes,
		RegistrationSessionID: string(p.RegistrationSessionID),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// PlayersFromModel converts a slice of players
func PlayersFromModel(ps []*model.Player) []Player {
	out := make([]Player, len(ps))
	for i, p := range ps {
		out[i] = PlayerFromModel(p)
	}
	return out
}

// PlayerResponse wraps a single player
type PlayerResponse struct {
	Success bool   `json:"success"`
	Player  Player `json:"player"`
}

// PlayerListResponse wraps a player listing
type PlayerListResponse struct {
	Success bool     `json:"success"`
	Players []Player `json:"players"`
	Count   int      `json:"count"`
}

// DeleteResponse reports how many records were removed
type DeleteResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

// SuccessResponse is the body of operations that return nothing else
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ValidationError describes one rejected import row
type ValidationError struct {
	Line    int    `json:"line"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ImportResponse is the outcome of a bulk import
type ImportResponse struct {
	Success          bool              `json:"success"`
	Added            int               `json:"added"`
	Updated          int               `json:"updated"`
	Skipped          int               `json:"skipped"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

// ImportResponseFromModel converts a model.ImportResult. A batch with any
// rejected row is unsuccessful and wrote nothing.
func ImportResponseFromModel(r *model.ImportResult) ImportResponse {
	errs := make([]ValidationError, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = ValidationError{Line: e.Line, Rule: e.Rule, Message: e.Message}
	}
	return ImportResponse{
		Success:          !r.HasErrors(),
		Added:            r.Added,
		Updated:          r.Updated,
		Skipped:          r.Skipped,
		ValidationErrors: errs,
	}
}

// AdminUser represents an admin account in API responses
type AdminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AdminUserFromSession describes the user behind a session
func AdminUserFromSession(s *model.AdminSession) AdminUser {
	return AdminUser{
		ID:       string(s.UserID),
		Username: s.Username,
		Role:     string(s.Role),
	}
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Success   bool      `json:"success"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      AdminUser `json:"user"`
}

// LoginResponseFromSession creates a LoginResponse from a session
func LoginResponseFromSession(s *model.AdminSession) LoginResponse {
	return LoginResponse{
		Success:   true,
		SessionID: s.ID,
		ExpiresAt: s.ExpiresAt,
		User:      AdminUserFromSession(s),
	}
}

// SessionCheckResponse confirms a valid admin session
type SessionCheckResponse struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      AdminUser `json:"user"`
}

// RegistrationStatus is the public view of the active registration window
type RegistrationStatus struct {
	IsOpen          bool       `json:"isOpen"`
	State           string     `json:"state"`
	SessionID       string     `json:"sessionId,omitempty"`
	Title           string     `json:"title,omitempty"`
	StartTime       *time.Time `json:"startTime"`
	Expiry          *time.Time `json:"expiry"`
	MaxPlayers      *int       `json:"maxPlayers"`
	PlayerCount     int        `json:"playerCount"`
	CountdownTarget *time.Time `json:"countdownTarget"`
}

// RegistrationStatusFromModel converts a model.RegistrationStatus
func RegistrationStatusFromModel(s *model.RegistrationStatus) RegistrationStatus {
	out := RegistrationStatus{
		IsOpen:          s.IsOpen(),
		State:           string(s.State),
		PlayerCount:     s.PlayerCount,
		CountdownTarget: s.CountdownTarget,
	}
	if s.Session != nil {
		out.SessionID = string(s.Session.ID)
		out.Title = s.Session.Title
		out.StartTime = s.Session.StartTime
		out.Expiry = s.Session.Expiry
		out.MaxPlayers = s.Session.MaxPlayers
	}
	return out
}

// RegistrationSession is the admin view of a registration session
type RegistrationSession struct {
	ID              string     `json:"sessionId"`
	Title           string     `json:"title"`
	IsActive        bool       `json:"isActive"`
	State           string     `json:"state"`
	StartTime       *time.Time `json:"startTime"`
	Expiry          *time.Time `json:"expiry"`
	MaxPlayers      *int       `json:"maxPlayers"`
	PlayerCount     int        `json:"playerCount"`
	CountdownTarget *time.Time `json:"countdownTarget"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// RegistrationSessionFromStatus converts an evaluated session
func RegistrationSessionFromStatus(s *model.RegistrationStatus) RegistrationSession {
	return RegistrationSession{
		ID:              string(s.Session.ID),
		Title:           s.Session.Title,
		IsActive:        s.Session.IsActive,
		State:           string(s.State),
		StartTime:       s.Session.StartTime,
		Expiry:          s.Session.Expiry,
		MaxPlayers:      s.Session.MaxPlayers,
		PlayerCount:     s.PlayerCount,
		CountdownTarget: s.CountdownTarget,
		ClosedAt:        s.Session.ClosedAt,
		CreatedAt:       s.Session.CreatedAt,
	}
}

// RegistrationSessionResponse wraps a single session
type RegistrationSessionResponse struct {
	Success bool                `json:"success"`
	Session RegistrationSession `json:"session"`
}

// RegistrationSessionListResponse wraps a session listing
type RegistrationSessionListResponse struct {
	Success  bool                  `json:"success"`
	Sessions []RegistrationSession `json:"sessions"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status string `json:"status"`
}
