package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
	"github.com/mcoot/dotareg/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.mini = miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{
			Addr: s.mini.Addr(),
		})
		s.storage = NewWithClient(client, DefaultConfig())
		return s.storage
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestPlayerIndexesTrackRenames() {
	p := &model.Player{
		ID:            "p1",
		List:          model.ListRegistrations,
		PlayerDetails: model.PlayerDetails{Name: "Alice", Dota2ID: "1234567", MMR: 5000},
	}
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, p))
	s.True(s.mini.Exists(s.storage.keys.playerName(model.ListRegistrations, "alice")))

	p.Name = "Alicia"
	p.Dota2ID = "7654321"
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, p))

	s.False(s.mini.Exists(s.storage.keys.playerName(model.ListRegistrations, "alice")))
	s.False(s.mini.Exists(s.storage.keys.playerDota2ID(model.ListRegistrations, "1234567")))
	s.True(s.mini.Exists(s.storage.keys.playerName(model.ListRegistrations, "Alicia")))
	s.True(s.mini.Exists(s.storage.keys.playerDota2ID(model.ListRegistrations, "7654321")))
}

func (s *StorageSuite) TestAdminSessionHasTTL() {
	now := time.Now()
	s.Require().NoError(s.storage.SaveAdminSession(s.Ctx, &model.AdminSession{
		ID: "sess_ttl", UserID: "u1", Username: "admin", Role: model.RoleAdmin,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	s.Equal(time.Hour, s.mini.TTL(s.storage.keys.adminSession("sess_ttl")))

	s.mini.FastForward(2 * time.Hour)
	_, err := s.storage.GetAdminSession(s.Ctx, "sess_ttl")
	s.ErrorIs(err, model.ErrAdminSessionNotFound)
}

func (s *StorageSuite) TestActivePointerIgnoresDeactivatedSession() {
	sess := &model.RegistrationSession{ID: "rs1", Title: "Cup", IsActive: true}
	s.Require().NoError(s.storage.SaveRegistrationSession(s.Ctx, sess))

	sess.IsActive = false
	s.Require().NoError(s.storage.SaveRegistrationSession(s.Ctx, sess))

	_, err := s.storage.GetActiveRegistrationSession(s.Ctx)
	s.ErrorIs(err, model.ErrNoActiveRegistration)
}

func (s *StorageSuite) TestTransactionWritesAreQueuedUntilCommit() {
	err := s.storage.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		s.Require().NoError(tx.SavePlayer(ctx, &model.Player{
			ID:            "p1",
			List:          model.ListMasterlist,
			PlayerDetails: model.PlayerDetails{Name: "Alice", Dota2ID: "1234567"},
		}))
		s.False(s.mini.Exists(s.storage.keys.player(model.ListMasterlist, "p1")))
		return nil
	})
	s.Require().NoError(err)
	s.True(s.mini.Exists(s.storage.keys.player(model.ListMasterlist, "p1")))
}

func (s *StorageSuite) TestKeyPrefix() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := ConfigFrom(config.RedisConfig{KeyPrefix: "autumn"})
	store := NewWithClient(client, cfg)
	defer func() { _ = store.Close() }()

	p := &model.Player{
		ID:            "p9",
		List:          model.ListMasterlist,
		PlayerDetails: model.PlayerDetails{Name: "Bob", Dota2ID: "7654321", MMR: 3000},
	}
	s.Require().NoError(store.SavePlayer(context.Background(), p))

	s.True(s.mini.Exists("autumn:player:masterlist:p9"))
	s.False(s.mini.Exists(s.storage.keys.player(model.ListMasterlist, "p9")))

	_, err := s.storage.GetPlayer(context.Background(), model.ListMasterlist, "p9")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}
