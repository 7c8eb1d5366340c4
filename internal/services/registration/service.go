// Package registration manages tournament sign-up windows.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcoot/dotareg/internal/dependencies/clock"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
)

const maxTitleLength = 100

// Params describe a registration window
type Params struct {
	Title      string
	StartTime  *time.Time
	Expiry     *time.Time
	MaxPlayers *int
}

// ReopenParams replace the window of a closed session. Nil fields keep the current value.
type ReopenParams struct {
	StartTime  *time.Time
	Expiry     *time.Time
	MaxPlayers *int
}

// Service manages registration sessions. State is evaluated from the clock
// on every query; nothing runs in the background.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger
}

// New creates a new registration Service
func New(store storage.Storage, clk clock.Clock, ids idgen.Generator, logger *slog.Logger) *Service {
	return &Service{
		storage: store,
		clock:   clk,
		ids:     ids,
		logger:  logger,
	}
}

// CreateSession creates a registration session, optionally making it the active one
func (s *Service) CreateSession(ctx context.Context, p Params, activate bool) (*model.RegistrationSession, error) {
	title := strings.TrimSpace(p.Title)
	if err := validateParams(title, p.StartTime, p.Expiry, p.MaxPlayers); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &model.RegistrationSession{
		ID:         model.RegistrationSessionID(s.ids.NewID("rs_")),
		Title:      title,
		StartTime:  p.StartTime,
		Expiry:     p.Expiry,
		MaxPlayers: p.MaxPlayers,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if !activate {
		if err := s.storage.SaveRegistrationSession(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	}

	err := s.storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := s.deactivateOthers(ctx, tx, session.ID, now); err != nil {
			return err
		}
		session.IsActive = true
		return tx.SaveRegistrationSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession returns a session by id
func (s *Service) GetSession(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error) {
	return s.storage.GetRegistrationSession(ctx, id)
}

// ListSessions returns all sessions, newest first
func (s *Service) ListSessions(ctx context.Context) ([]*model.RegistrationSession, error) {
	return s.storage.ListRegistrationSessions(ctx)
}

// Activate makes the session the only active one
func (s *Service) Activate(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error) {
	var activated *model.RegistrationSession
	err := s.storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		session, err := tx.GetRegistrationSession(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		// others first: at most one active row may exist at any point
		if err := s.deactivateOthers(ctx, tx, id, now); err != nil {
			return err
		}
		if !session.IsActive {
			session.IsActive = true
			session.UpdatedAt = now
			if err := tx.SaveRegistrationSession(ctx, session); err != nil {
				return err
			}
		}
		activated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "activated registration session", "session_id", id)
	return activated, nil
}

func (s *Service) deactivateOthers(ctx context.Context, tx storage.Storage, keep model.RegistrationSessionID, now time.Time) error {
	sessions, err := tx.ListRegistrationSessions(ctx)
	if err != nil {
		return err
	}
	for _, other := range sessions {
		if other.ID == keep || !other.IsActive {
			continue
		}
		other.IsActive = false
		other.UpdatedAt = now
		if err := tx.SaveRegistrationSession(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the session immediately
func (s *Service) Close(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error) {
	session, err := s.storage.GetRegistrationSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ClosedAt != nil {
		return session, nil
	}

	now := s.clock.Now()
	session.ClosedAt = &now
	session.UpdatedAt = now
	if err := s.storage.SaveRegistrationSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "closed registration session", "session_id", id)
	return session, nil
}

// Reopen clears the closed latch and installs a new window. The resulting
// window must not already be over.
func (s *Service) Reopen(ctx context.Context, id model.RegistrationSessionID, p ReopenParams) (*model.RegistrationSession, error) {
	session, err := s.storage.GetRegistrationSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.StartTime != nil {
		session.StartTime = p.StartTime
	}
	if p.Expiry != nil {
		session.Expiry = p.Expiry
	}
	if p.MaxPlayers != nil {
		session.MaxPlayers = p.MaxPlayers
	}
	if err := validateParams(session.Title, session.StartTime, session.Expiry, session.MaxPlayers); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.Expiry != nil && !now.Before(*session.Expiry) {
		return nil, fmt.Errorf("%w: expiry must be in the future to reopen", model.ErrInvalidRegistrationSession)
	}

	session.ClosedAt = nil
	session.UpdatedAt = now
	if err := s.storage.SaveRegistrationSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "reopened registration session", "session_id", id)
	return session, nil
}

// Status evaluates a session now. The first evaluation that finds it closed
// latches ClosedAt so that it stays closed until reopened.
func (s *Service) Status(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationStatus, error) {
	session, err := s.storage.GetRegistrationSession(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, session)
}

// PublicStatus evaluates the active session. Without one, registration is closed.
func (s *Service) PublicStatus(ctx context.Context) (*model.RegistrationStatus, error) {
	session, err := s.storage.GetActiveRegistrationSession(ctx)
	if errors.Is(err, model.ErrNoActiveRegistration) {
		return &model.RegistrationStatus{State: model.RegistrationClosed}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, session)
}

// CheckOpen returns the active session status, or an error when submissions
// are not accepted: model.ErrRegistrationFull once the cap is reached,
// model.ErrRegistrationClosed otherwise
func (s *Service) CheckOpen(ctx context.Context) (*model.RegistrationStatus, error) {
	status, err := s.PublicStatus(ctx)
	if err != nil {
		return nil, err
	}
	if status.IsOpen() {
		return status, nil
	}
	if status.Session != nil && status.Session.MaxPlayers != nil && status.PlayerCount >= *status.Session.MaxPlayers {
		return status, model.ErrRegistrationFull
	}
	return status, model.ErrRegistrationClosed
}

func (s *Service) evaluate(ctx context.Context, session *model.RegistrationSession) (*model.RegistrationStatus, error) {
	count, err := s.storage.CountPlayersInSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	state, countdown := Evaluate(session, count, now)

	if state == model.RegistrationClosed && session.ClosedAt == nil {
		session.ClosedAt = &now
		session.UpdatedAt = now
		if err := s.storage.SaveRegistrationSession(ctx, session); err != nil {
			// the state is still derivable from the clock; only the latch is lost
			s.logger.WarnContext(ctx, "failed to latch closed session", "session_id", session.ID, "error", err)
		}
	}

	return &model.RegistrationStatus{
		Session:         session,
		State:           state,
		PlayerCount:     count,
		CountdownTarget: countdown,
	}, nil
}

func validateParams(title string, start, expiry *time.Time, maxPlayers *int) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(title)); n < 1 || n > maxTitleLength {
		return fmt.Errorf("%w: title must be 1 to %d characters", model.ErrInvalidRegistrationSession, maxTitleLength)
	}
	if start != nil && expiry != nil && !expiry.After(*start) {
		return fmt.Errorf("%w: expiry must be after start time", model.ErrInvalidRegistrationSession)
	}
	if maxPlayers != nil && *maxPlayers <= 0 {
		return fmt.Errorf("%w: max players must be positive", model.ErrInvalidRegistrationSession)
	}
	return nil
}
