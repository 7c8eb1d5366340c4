package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/mcoot/dotareg/internal/model"
)

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID                    string    `bun:"id,pk"`
	List                  string    `bun:"list,notnull"`
	Name                  string    `bun:"name,notnull"`
	Dota2ID               string    `bun:"dota2id,notnull"`
	MMR                   int       `bun:"mmr,notnull"`
	Notes                 string    `bun:"notes,notnull"`
	RegistrationSessionID *string   `bun:"registration_session_id"`
	CreatedAt             time.Time `bun:"created_at,notnull"`
	UpdatedAt             time.Time `bun:"updated_at,notnull"`
}

func playerRowFromModel(p *model.Player) *playerRow {
	row := &playerRow{
		ID:        string(p.ID),
		List:      string(p.List),
		Name:      p.Name,
		Dota2ID:   p.Dota2ID,
		MMR:       p.MMR,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.RegistrationSessionID != "" {
		id := string(p.RegistrationSessionID)
		row.RegistrationSessionID = &id
	}
	return row
}

func (r *playerRow) toModel() *model.Player {
	p := &model.Player{
		ID:   model.PlayerID(r.ID),
		List: model.PlayerList(r.List),
		PlayerDetails: model.PlayerDetails{
			Name:    r.Name,
			Dota2ID: r.Dota2ID,
			MMR:     r.MMR,
			Notes:   r.Notes,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.RegistrationSessionID != nil {
		p.RegistrationSessionID = model.RegistrationSessionID(*r.RegistrationSessionID)
	}
	return p
}

type registrationSessionRow struct {
	bun.BaseModel `bun:"table:registration_sessions,alias:rs"`

	ID         string     `bun:"id,pk"`
	Title      string     `bun:"title,notnull"`
	IsActive   bool       `bun:"is_active,notnull"`
	StartTime  *time.Time `bun:"start_time"`
	Expiry     *time.Time `bun:"expiry"`
	MaxPlayers *int       `bun:"max_players"`
	ClosedAt   *time.Time `bun:"closed_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull"`
}

func registrationSessionRowFromModel(s *model.RegistrationSession) *registrationSessionRow {
	return &registrationSessionRow{
		ID:         string(s.ID),
		Title:      s.Title,
		IsActive:   s.IsActive,
		StartTime:  s.StartTime,
		Expiry:     s.Expiry,
		MaxPlayers: s.MaxPlayers,
		ClosedAt:   s.ClosedAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func (r *registrationSessionRow) toModel() *model.RegistrationSession {
	return &model.RegistrationSession{
		ID:         model.RegistrationSessionID(r.ID),
		Title:      r.Title,
		IsActive:   r.IsActive,
		StartTime:  r.StartTime,
		Expiry:     r.Expiry,
		MaxPlayers: r.MaxPlayers,
		ClosedAt:   r.ClosedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type adminUserRow struct {
	bun.BaseModel `bun:"table:admin_users,alias:au"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

type adminSessionRow struct {
	bun.BaseModel `bun:"table:admin_sessions,alias:ast"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Username  string    `bun:"username,notnull"`
	Role      string    `bun:"role,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
