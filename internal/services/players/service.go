// Package players handles public sign-ups and admin management of both player lists.
package players

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mcoot/dotareg/internal/dependencies/clock"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/notify"
	"github.com/mcoot/dotareg/internal/services/registration"
	"github.com/mcoot/dotareg/internal/services/validator"
	"github.com/mcoot/dotareg/internal/storage"
)

// Submission is an unvalidated player record
type Submission struct {
	Name    string
	Dota2ID string
	MMR     string
	Notes   string
}

// Patch changes some fields of a player. Nil fields are kept.
type Patch struct {
	Name    *string
	Dota2ID *string
	MMR     *string
	Notes   *string
}

// Service manages player records
type Service struct {
	storage      storage.Storage
	registration *registration.Service
	notifier     notify.Dispatcher
	clock        clock.Clock
	ids          idgen.Generator
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New creates a new players Service
func New(
	store storage.Storage,
	reg *registration.Service,
	notifier notify.Dispatcher,
	clk clock.Clock,
	ids idgen.Generator,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		storage:      store,
		registration: reg,
		notifier:     notifier,
		clock:        clk,
		ids:          ids,
		logger:       logger,
		metrics:      m,
	}
}

// Register signs a player up for the active registration session
func (s *Service) Register(ctx context.Context, sub Submission) (*model.Player, error) {
	status, err := s.registration.CheckOpen(ctx)
	if err != nil {
		if errors.Is(err, model.ErrRegistrationClosed) || errors.Is(err, model.ErrRegistrationFull) {
			s.metrics.Registration("closed")
		}
		return nil, err
	}

	details, err := validate(sub)
	if err != nil {
		s.metrics.Registration("invalid")
		return nil, err
	}

	player, err := s.insert(ctx, model.ListRegistrations, details, status.Session.ID)
	if err != nil {
		if errors.Is(err, model.ErrDuplicatePlayer) {
			s.metrics.Registration("duplicate")
		}
		return nil, err
	}
	s.metrics.Registration("accepted")
	s.logger.InfoContext(ctx, "player registered",
		"player_id", player.ID, "session_id", status.Session.ID, "name", player.Name)

	s.announce(ctx, status.Session, player, status.PlayerCount+1)
	return player, nil
}

// announce sends a best-effort webhook notification
func (s *Service) announce(ctx context.Context, session *model.RegistrationSession, p *model.Player, count int) {
	content := fmt.Sprintf("New registration for %s: **%s** (Dota 2 ID %s, MMR %d). %d registered",
		session.Title, p.Name, p.Dota2ID, p.MMR, count)
	if session.MaxPlayers != nil {
		content += fmt.Sprintf(" of %d", *session.MaxPlayers)
	}
	content += "."

	err := s.notifier.Send(context.WithoutCancel(ctx), notify.Message{Content: content})
	if err != nil && !errors.Is(err, notify.ErrNotConfigured) {
		s.logger.WarnContext(ctx, "registration notification failed", "player_id", p.ID, "error", err)
	}
}

// List returns the players of a list, oldest first
func (s *Service) List(ctx context.Context, list model.PlayerList, filter model.PlayerFilter) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx, list, filter)
}

// Get returns one player
func (s *Service) Get(ctx context.Context, list model.PlayerList, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, list, id)
}

// Create adds a player to a list as an admin. Registrations are attached to
// the active session when there is one.
func (s *Service) Create(ctx context.Context, list model.PlayerList, sub Submission) (*model.Player, error) {
	if !list.Valid() {
		return nil, model.ErrUnknownList
	}
	details, err := validate(sub)
	if err != nil {
		return nil, err
	}

	var sessionID model.RegistrationSessionID
	if list == model.ListRegistrations {
		active, err := s.storage.GetActiveRegistrationSession(ctx)
		switch {
		case err == nil:
			sessionID = active.ID
		case !errors.Is(err, model.ErrNoActiveRegistration):
			return nil, err
		}
	}

	player, err := s.insert(ctx, list, details, sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "player created", "list", list, "player_id", player.ID)
	return player, nil
}

// Update applies a patch, re-validating the merged record
func (s *Service) Update(ctx context.Context, list model.PlayerList, id model.PlayerID, patch Patch) (*model.Player, error) {
	var updated *model.Player
	err := s.storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		existing, err := tx.GetPlayer(ctx, list, id)
		if err != nil {
			return err
		}

		sub := Submission{
			Name:    existing.Name,
			Dota2ID: existing.Dota2ID,
			MMR:     strconv.Itoa(existing.MMR),
			Notes:   existing.Notes,
		}
		if patch.Name != nil {
			sub.Name = *patch.Name
		}
		if patch.Dota2ID != nil {
			sub.Dota2ID = *patch.Dota2ID
		}
		if patch.MMR != nil {
			sub.MMR = *patch.MMR
		}
		if patch.Notes != nil {
			sub.Notes = *patch.Notes
		}

		details, err := validate(sub)
		if err != nil {
			return err
		}
		if err := checkIdentityFree(ctx, tx, list, details, id); err != nil {
			return err
		}

		existing.PlayerDetails = details
		existing.UpdatedAt = s.clock.Now()
		if err := tx.SavePlayer(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes one player
func (s *Service) Delete(ctx context.Context, list model.PlayerList, id model.PlayerID) error {
	if err := s.storage.DeletePlayer(ctx, list, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "player deleted", "list", list, "player_id", id)
	return nil
}

// DeleteAll empties a list and returns how many players were removed
func (s *Service) DeleteAll(ctx context.Context, list model.PlayerList) (int, error) {
	n, err := s.storage.DeleteAllPlayers(ctx, list)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "players cleared", "list", list, "count", n)
	return n, nil
}

func (s *Service) insert(ctx context.Context, list model.PlayerList, details model.PlayerDetails, sessionID model.RegistrationSessionID) (*model.Player, error) {
	now := s.clock.Now()
	player := &model.Player{
		ID:                    model.PlayerID(s.ids.NewID("p_")),
		List:                  list,
		PlayerDetails:         details,
		RegistrationSessionID: sessionID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	err := s.storage.RunInTx(ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := checkIdentityFree(ctx, tx, list, details, ""); err != nil {
			return err
		}
		return tx.SavePlayer(ctx, player)
	})
	if err != nil {
		return nil, err
	}
	return player, nil
}

// checkIdentityFree fails with model.ErrDuplicatePlayer if a player other than
// self shares the name or Dota 2 ID. The storage constraint remains the final guard.
func checkIdentityFree(ctx context.Context, tx storage.Storage, list model.PlayerList, details model.PlayerDetails, self model.PlayerID) error {
	matches, err := tx.FindPlayersByIdentity(ctx, list, details.Name, details.Dota2ID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ID != self {
			return model.ErrDuplicatePlayer
		}
	}
	return nil
}

func validate(sub Submission) (model.PlayerDetails, error) {
	res := validator.Validate(sub.Name, sub.Dota2ID, sub.MMR, sub.Notes, 1)
	if !res.Valid {
		return model.PlayerDetails{}, fmt.Errorf("%w: %s", model.ErrValidation, res.Message())
	}
	return res.Player, nil
}
