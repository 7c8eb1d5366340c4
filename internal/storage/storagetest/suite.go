// Package storagetest holds the behavioural tests every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
)

// Suite runs the shared storage contract against a backend.
// Embed it in a backend test suite and set NewStorage.
type Suite struct {
	suite.Suite

	// NewStorage returns an empty store for each test
	NewStorage func() storage.Storage

	Store storage.Storage
	Ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Store = s.NewStorage()
	s.Ctx = context.Background()
	s.now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) player(id, name, dota2ID string, mmr int) *model.Player {
	return &model.Player{
		ID:   model.PlayerID(id),
		List: model.ListRegistrations,
		PlayerDetails: model.PlayerDetails{
			Name:    name,
			Dota2ID: dota2ID,
			MMR:     mmr,
		},
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
}

// Player tests

func (s *Suite) TestSaveAndGetPlayerRoundTrip() {
	p := s.player("p1", "Alice", "1234567", 5000)
	p.Notes = "support main"
	p.RegistrationSessionID = "rs1"
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, p))

	got, err := s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p1")
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)
	s.Equal("1234567", got.Dota2ID)
	s.Equal(5000, got.MMR)
	s.Equal("support main", got.Notes)
	s.Equal(model.RegistrationSessionID("rs1"), got.RegistrationSessionID)
	s.Equal(model.ListRegistrations, got.List)
	s.True(p.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestListsAreIndependent() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))

	master := s.player("m1", "Alice", "1234567", 5000)
	master.List = model.ListMasterlist
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, master))

	_, err := s.Store.GetPlayer(s.Ctx, model.ListMasterlist, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	regs, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Len(regs, 1)
}

func (s *Suite) TestSavePlayerRejectsDuplicateDota2ID() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))

	err := s.Store.SavePlayer(s.Ctx, s.player("p2", "Bob", "1234567", 3000))
	s.ErrorIs(err, model.ErrDuplicatePlayer)
}

func (s *Suite) TestSavePlayerRejectsDuplicateNameIgnoringCase() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))

	err := s.Store.SavePlayer(s.Ctx, s.player("p2", "aLiCe", "7654321", 3000))
	s.ErrorIs(err, model.ErrDuplicatePlayer)
}

func (s *Suite) TestSavePlayerUpdatesExisting() {
	p := s.player("p1", "Alice", "1234567", 5000)
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, p))

	p.MMR = 6200
	p.Name = "Alice Updated"
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, p))

	got, err := s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p1")
	s.Require().NoError(err)
	s.Equal(6200, got.MMR)
	s.Equal("Alice Updated", got.Name)

	// the old name is free again
	s.NoError(s.Store.SavePlayer(s.Ctx, s.player("p2", "Alice", "7654321", 100)))
}

func (s *Suite) TestListPlayersFilters() {
	a := s.player("p1", "Alice", "1234567", 5000)
	a.RegistrationSessionID = "rs1"
	b := s.player("p2", "Bob", "7654321", 6000)
	b.RegistrationSessionID = "rs2"
	b.CreatedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, a))
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, b))

	all, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(model.PlayerID("p1"), all[0].ID)
	s.Equal(model.PlayerID("p2"), all[1].ID)

	bySession, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{RegistrationSessionID: "rs2"})
	s.Require().NoError(err)
	s.Require().Len(bySession, 1)
	s.Equal("Bob", bySession[0].Name)

	bySearch, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{Search: "ali"})
	s.Require().NoError(err)
	s.Require().Len(bySearch, 1)
	s.Equal("Alice", bySearch[0].Name)
}

func (s *Suite) TestFindPlayersByIdentity() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p2", "Bob", "7654321", 6000)))

	byName, err := s.Store.FindPlayersByIdentity(s.Ctx, model.ListRegistrations, " ALICE ", "999999")
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(model.PlayerID("p1"), byName[0].ID)

	both, err := s.Store.FindPlayersByIdentity(s.Ctx, model.ListRegistrations, "alice", "7654321")
	s.Require().NoError(err)
	s.Len(both, 2)

	none, err := s.Store.FindPlayersByIdentity(s.Ctx, model.ListRegistrations, "carol", "1111111")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *Suite) TestDeletePlayer() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))

	s.Require().NoError(s.Store.DeletePlayer(s.Ctx, model.ListRegistrations, "p1"))

	_, err := s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	// identity is released with the record
	s.NoError(s.Store.SavePlayer(s.Ctx, s.player("p2", "Alice", "1234567", 5000)))
}

func (s *Suite) TestDeletePlayerNotFound() {
	err := s.Store.DeletePlayer(s.Ctx, model.ListRegistrations, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestDeleteAllPlayers() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1234567", 5000)))
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p2", "Bob", "7654321", 6000)))
	master := s.player("m1", "Carol", "5555555", 4000)
	master.List = model.ListMasterlist
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, master))

	n, err := s.Store.DeleteAllPlayers(s.Ctx, model.ListRegistrations)
	s.Require().NoError(err)
	s.Equal(2, n)

	regs, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Empty(regs)

	masters, err := s.Store.ListPlayers(s.Ctx, model.ListMasterlist, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Len(masters, 1)
}

func (s *Suite) TestCountPlayersInSession() {
	for i, id := range []string{"1111111", "2222222", "3333333"} {
		p := s.player("p"+id, "Player "+id, id, 1000)
		if i < 2 {
			p.RegistrationSessionID = "rs1"
		}
		s.Require().NoError(s.Store.SavePlayer(s.Ctx, p))
	}

	count, err := s.Store.CountPlayersInSession(s.Ctx, "rs1")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.Store.CountPlayersInSession(s.Ctx, "rs-other")
	s.Require().NoError(err)
	s.Equal(0, count)
}

// Registration session tests

func (s *Suite) TestSaveAndGetRegistrationSession() {
	start := s.now.Add(time.Hour)
	expiry := s.now.Add(3 * time.Hour)
	maxPlayers := 40
	sess := &model.RegistrationSession{
		ID:         "rs1",
		Title:      "Weekend Cup",
		IsActive:   true,
		StartTime:  &start,
		Expiry:     &expiry,
		MaxPlayers: &maxPlayers,
		CreatedAt:  s.now,
		UpdatedAt:  s.now,
	}
	s.Require().NoError(s.Store.SaveRegistrationSession(s.Ctx, sess))

	got, err := s.Store.GetRegistrationSession(s.Ctx, "rs1")
	s.Require().NoError(err)
	s.Equal("Weekend Cup", got.Title)
	s.True(got.IsActive)
	s.Require().NotNil(got.StartTime)
	s.True(start.Equal(*got.StartTime))
	s.Require().NotNil(got.Expiry)
	s.True(expiry.Equal(*got.Expiry))
	s.Require().NotNil(got.MaxPlayers)
	s.Equal(40, *got.MaxPlayers)
	s.Nil(got.ClosedAt)

	active, err := s.Store.GetActiveRegistrationSession(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.RegistrationSessionID("rs1"), active.ID)
}

func (s *Suite) TestGetRegistrationSessionNotFound() {
	_, err := s.Store.GetRegistrationSession(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRegistrationSessionNotFound)
}

func (s *Suite) TestGetActiveRegistrationSessionNone() {
	s.Require().NoError(s.Store.SaveRegistrationSession(s.Ctx, &model.RegistrationSession{
		ID: "rs1", Title: "Inactive", CreatedAt: s.now, UpdatedAt: s.now,
	}))

	_, err := s.Store.GetActiveRegistrationSession(s.Ctx)
	s.ErrorIs(err, model.ErrNoActiveRegistration)
}

func (s *Suite) TestListRegistrationSessionsNewestFirst() {
	s.Require().NoError(s.Store.SaveRegistrationSession(s.Ctx, &model.RegistrationSession{
		ID: "old", Title: "Old", CreatedAt: s.now, UpdatedAt: s.now,
	}))
	s.Require().NoError(s.Store.SaveRegistrationSession(s.Ctx, &model.RegistrationSession{
		ID: "new", Title: "New", CreatedAt: s.now.Add(time.Hour), UpdatedAt: s.now,
	}))

	sessions, err := s.Store.ListRegistrationSessions(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(model.RegistrationSessionID("new"), sessions[0].ID)
	s.Equal(model.RegistrationSessionID("old"), sessions[1].ID)
}

// Admin tests

func (s *Suite) TestSaveAndGetAdminUser() {
	s.Require().NoError(s.Store.SaveAdminUser(s.Ctx, &model.AdminUser{
		ID: "u1", Username: "admin", PasswordHash: "hash", Role: model.RoleAdmin, CreatedAt: s.now, UpdatedAt: s.now,
	}))

	got, err := s.Store.GetAdminUserByUsername(s.Ctx, "admin")
	s.Require().NoError(err)
	s.Equal(model.AdminUserID("u1"), got.ID)
	s.Equal("hash", got.PasswordHash)
	s.Equal(model.RoleAdmin, got.Role)

	_, err = s.Store.GetAdminUserByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrAdminUserNotFound)
}

func (s *Suite) TestAdminSessionLifecycle() {
	sess := &model.AdminSession{
		ID: "sess_a", UserID: "u1", Username: "admin", Role: model.RoleAdmin,
		CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour),
	}
	s.Require().NoError(s.Store.SaveAdminSession(s.Ctx, sess))

	got, err := s.Store.GetAdminSession(s.Ctx, "sess_a")
	s.Require().NoError(err)
	s.Equal("admin", got.Username)
	s.True(sess.ExpiresAt.Equal(got.ExpiresAt))

	s.Require().NoError(s.Store.DeleteAdminSession(s.Ctx, "sess_a"))
	_, err = s.Store.GetAdminSession(s.Ctx, "sess_a")
	s.ErrorIs(err, model.ErrAdminSessionNotFound)
}

func (s *Suite) TestDeleteExpiredAdminSessions() {
	s.Require().NoError(s.Store.SaveAdminSession(s.Ctx, &model.AdminSession{
		ID: "sess_old", UserID: "u1", Username: "admin", Role: model.RoleAdmin,
		CreatedAt: s.now.Add(-2 * time.Hour), ExpiresAt: s.now.Add(-time.Hour),
	}))
	s.Require().NoError(s.Store.SaveAdminSession(s.Ctx, &model.AdminSession{
		ID: "sess_new", UserID: "u1", Username: "admin", Role: model.RoleAdmin,
		CreatedAt: s.now, ExpiresAt: s.now.Add(time.Hour),
	}))

	removed, err := s.Store.DeleteExpiredAdminSessions(s.Ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.Store.GetAdminSession(s.Ctx, "sess_old")
	s.ErrorIs(err, model.ErrAdminSessionNotFound)
	_, err = s.Store.GetAdminSession(s.Ctx, "sess_new")
	s.NoError(err)
}

// Transaction tests

func (s *Suite) TestRunInTxCommits() {
	err := s.Store.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := tx.SavePlayer(ctx, s.player("p1", "Alice", "1234567", 5000)); err != nil {
			return err
		}
		return tx.SavePlayer(ctx, s.player("p2", "Bob", "7654321", 6000))
	})
	s.Require().NoError(err)

	players, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Len(players, 2)
}

func (s *Suite) TestRunInTxRollsBackOnError() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p0", "Existing", "1000000", 100)))
	boom := errors.New("boom")

	err := s.Store.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := tx.SavePlayer(ctx, s.player("p1", "Alice", "1234567", 5000)); err != nil {
			return err
		}
		if _, err := tx.DeleteAllPlayers(ctx, model.ListMasterlist); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p0")
	s.NoError(err)
}

func (s *Suite) TestRunInTxRenameFreesOldIdentity() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1111111", 5000)))

	err := s.Store.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := tx.SavePlayer(ctx, s.player("p1", "Bob", "1111111", 5000)); err != nil {
			return err
		}

		found, err := tx.FindPlayersByIdentity(ctx, model.ListRegistrations, "Alice", "2222222")
		if err != nil {
			return err
		}
		s.Empty(found, "old name is free inside the transaction")

		return tx.SavePlayer(ctx, s.player("p2", "Alice", "2222222", 4000))
	})
	s.Require().NoError(err)

	players, err := s.Store.ListPlayers(s.Ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Require().Len(players, 2)

	found, err := s.Store.FindPlayersByIdentity(s.Ctx, model.ListRegistrations, "alice", "")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(model.PlayerID("p2"), found[0].ID)
}

func (s *Suite) TestRunInTxSavingTwiceKeepsOnlyFinalIdentity() {
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p1", "Alice", "1111111", 5000)))

	err := s.Store.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := tx.SavePlayer(ctx, s.player("p1", "Alicia", "1111111", 5000)); err != nil {
			return err
		}
		got, err := tx.GetPlayer(ctx, model.ListRegistrations, "p1")
		if err != nil {
			return err
		}
		s.Equal("Alicia", got.Name, "reads see the pending write")
		return tx.SavePlayer(ctx, s.player("p1", "Alicia2", "1111111", 5000))
	})
	s.Require().NoError(err)

	found, err := s.Store.FindPlayersByIdentity(s.Ctx, model.ListRegistrations, "Alicia", "")
	s.Require().NoError(err)
	s.Empty(found)

	s.Require().NoError(s.Store.SavePlayer(s.Ctx, s.player("p2", "Alicia", "3333333", 3000)))

	got, err := s.Store.GetPlayer(s.Ctx, model.ListRegistrations, "p1")
	s.Require().NoError(err)
	s.Equal("Alicia2", got.Name)
}

func (s *Suite) TestRunInTxListSeesPendingPlayers() {
	err := s.Store.RunInTx(s.Ctx, func(ctx context.Context, tx storage.Storage) error {
		if err := tx.SavePlayer(ctx, s.player("p1", "Alice", "1111111", 5000)); err != nil {
			return err
		}
		players, err := tx.ListPlayers(ctx, model.ListRegistrations, model.PlayerFilter{})
		if err != nil {
			return err
		}
		s.Len(players, 1)
		return nil
	})
	s.Require().NoError(err)
}
