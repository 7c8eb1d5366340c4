package storage

import (
	"context"
	"time"

	"github.com/mcoot/dotareg/internal/model"
)

// TxFunc runs against a transactional view of the store
type TxFunc func(ctx context.Context, tx Storage) error

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations. SavePlayer inserts or replaces a player and returns
	// model.ErrDuplicatePlayer if another player in the same list shares its
	// name (case-insensitive) or Dota 2 ID.
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context, list model.PlayerList, filter model.PlayerFilter) ([]*model.Player, error)
	FindPlayersByIdentity(ctx context.Context, list model.PlayerList, name, dota2ID string) ([]*model.Player, error)
	DeletePlayer(ctx context.Context, list model.PlayerList, id model.PlayerID) error
	DeleteAllPlayers(ctx context.Context, list model.PlayerList) (int, error)
	CountPlayersInSession(ctx context.Context, id model.RegistrationSessionID) (int, error)

	// Registration session operations
	SaveRegistrationSession(ctx context.Context, session *model.RegistrationSession) error
	GetRegistrationSession(ctx context.Context, id model.RegistrationSessionID) (*model.RegistrationSession, error)
	ListRegistrationSessions(ctx context.Context) ([]*model.RegistrationSession, error)
	GetActiveRegistrationSession(ctx context.Context) (*model.RegistrationSession, error)

	// Admin user operations
	SaveAdminUser(ctx context.Context, user *model.AdminUser) error
	GetAdminUserByUsername(ctx context.Context, username string) (*model.AdminUser, error)

	// Admin session operations
	SaveAdminSession(ctx context.Context, session *model.AdminSession) error
	GetAdminSession(ctx context.Context, id string) (*model.AdminSession, error)
	DeleteAdminSession(ctx context.Context, id string) error
	DeleteExpiredAdminSessions(ctx context.Context, now time.Time) (int, error)

	// RunInTx runs fn atomically: either every write made through tx is
	// committed or none is. Reads through tx observe the transaction's writes
	// where the backend supports it.
	RunInTx(ctx context.Context, fn TxFunc) error
}
