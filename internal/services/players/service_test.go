package players

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/dependencies/mocks"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/registration"
	"github.com/mcoot/dotareg/internal/storage/memory"
	"github.com/mcoot/dotareg/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage      *memory.Storage
	clock        *mocks.MockClock
	notifier     *mocks.MockDispatcher
	registration *registration.Service
	service      *Service
	logs         *testutil.LogBuffer
	ctx          context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	s.notifier = mocks.NewMockDispatcher()
	ids := mocks.NewMockIDGenerator()
	logger, logs := testutil.CaptureLogger()
	s.logs = logs
	s.registration = registration.New(s.storage, s.clock, ids, logger)
	s.service = New(s.storage, s.registration, s.notifier, s.clock, ids, logger, metrics.New())
	s.ctx = context.Background()
}

func (s *ServiceSuite) openSession(maxPlayers *int) *model.RegistrationSession {
	start := s.clock.Now().Add(-time.Hour)
	expiry := s.clock.Now().Add(time.Hour)
	session, err := s.registration.CreateSession(s.ctx, registration.Params{
		Title: "Autumn Cup", StartTime: &start, Expiry: &expiry, MaxPlayers: maxPlayers,
	}, true)
	s.Require().NoError(err)
	return session
}

var alice = Submission{Name: " Alice ", Dota2ID: "1234567", MMR: "5000", Notes: "captain"}

// Register tests

func (s *ServiceSuite) TestRegisterPersistsNormalizedPlayer() {
	session := s.openSession(nil)

	player, err := s.service.Register(s.ctx, alice)
	s.Require().NoError(err)

	s.Equal(session.ID, player.RegistrationSessionID)
	s.Equal(model.ListRegistrations, player.List)

	stored, err := s.storage.GetPlayer(s.ctx, model.ListRegistrations, player.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerDetails{Name: "Alice", Dota2ID: "1234567", MMR: 5000, Notes: "captain"}, stored.PlayerDetails)
}

func (s *ServiceSuite) TestRegisterSendsNotification() {
	two := 2
	s.openSession(&two)

	_, err := s.service.Register(s.ctx, alice)
	s.Require().NoError(err)

	messages := s.notifier.Messages()
	s.Require().Len(messages, 1)
	s.Contains(messages[0].Content, "Autumn Cup")
	s.Contains(messages[0].Content, "Alice")
	s.Contains(messages[0].Content, "1 registered of 2")
}

func (s *ServiceSuite) TestRegisterSucceedsWhenNotificationFails() {
	s.openSession(nil)
	s.notifier.Err = errors.New("webhook down")

	_, err := s.service.Register(s.ctx, alice)
	s.NoError(err)
	s.Contains(s.logs.String(), "registration notification failed")
	s.Contains(s.logs.String(), "webhook down")
}

func (s *ServiceSuite) TestRegisterRequiresOpenSession() {
	_, err := s.service.Register(s.ctx, alice)
	s.ErrorIs(err, model.ErrRegistrationClosed)

	start := s.clock.Now().Add(time.Hour)
	_, err = s.registration.CreateSession(s.ctx, registration.Params{Title: "Later", StartTime: &start}, true)
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, alice)
	s.ErrorIs(err, model.ErrRegistrationClosed)
	s.Empty(s.notifier.Messages())
}

func (s *ServiceSuite) TestRegisterRejectsWhenFull() {
	one := 1
	s.openSession(&one)
	_, err := s.service.Register(s.ctx, alice)
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, Submission{Name: "Bob", Dota2ID: "7654321", MMR: "100"})
	s.ErrorIs(err, model.ErrRegistrationFull)
}

func (s *ServiceSuite) TestRegisterValidates() {
	s.openSession(nil)

	_, err := s.service.Register(s.ctx, Submission{Name: "Alice", Dota2ID: "12", MMR: "5000"})
	s.ErrorIs(err, model.ErrValidation)
	s.Contains(err.Error(), "dota2id")
}

func (s *ServiceSuite) TestRegisterRejectsDuplicateNameOrID() {
	s.openSession(nil)
	_, err := s.service.Register(s.ctx, alice)
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, Submission{Name: "ALICE", Dota2ID: "9999999", MMR: "1"})
	s.ErrorIs(err, model.ErrDuplicatePlayer)

	_, err = s.service.Register(s.ctx, Submission{Name: "Someone", Dota2ID: "1234567", MMR: "1"})
	s.ErrorIs(err, model.ErrDuplicatePlayer)
}

// Admin CRUD tests

func (s *ServiceSuite) TestCreateOnMasterlistIgnoresRegistrationState() {
	player, err := s.service.Create(s.ctx, model.ListMasterlist, alice)
	s.Require().NoError(err)

	s.Empty(player.RegistrationSessionID)
	players, err := s.service.List(s.ctx, model.ListMasterlist, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *ServiceSuite) TestCreateRegistrationAttachesActiveSession() {
	session := s.openSession(nil)

	player, err := s.service.Create(s.ctx, model.ListRegistrations, alice)
	s.Require().NoError(err)
	s.Equal(session.ID, player.RegistrationSessionID)
}

func (s *ServiceSuite) TestListsAreIndependent() {
	_, err := s.service.Create(s.ctx, model.ListMasterlist, alice)
	s.Require().NoError(err)

	_, err = s.service.Create(s.ctx, model.ListRegistrations, alice)
	s.NoError(err)

	_, err = s.service.Create(s.ctx, "bench", alice)
	s.ErrorIs(err, model.ErrUnknownList)
}

func (s *ServiceSuite) TestUpdate() {
	player, _ := s.service.Create(s.ctx, model.ListMasterlist, alice)
	s.clock.Advance(time.Minute)

	mmr, notes := "6100", ""
	updated, err := s.service.Update(s.ctx, model.ListMasterlist, player.ID, Patch{MMR: &mmr, Notes: &notes})
	s.Require().NoError(err)

	s.Equal("Alice", updated.Name)
	s.Equal(6100, updated.MMR)
	s.Empty(updated.Notes)
	s.Equal(s.clock.Now(), updated.UpdatedAt)
}

func (s *ServiceSuite) TestUpdateValidatesMergedRecord() {
	player, _ := s.service.Create(s.ctx, model.ListMasterlist, alice)

	mmr := "99999"
	_, err := s.service.Update(s.ctx, model.ListMasterlist, player.ID, Patch{MMR: &mmr})
	s.ErrorIs(err, model.ErrValidation)
}

func (s *ServiceSuite) TestUpdateRejectsIdentityClash() {
	_, _ = s.service.Create(s.ctx, model.ListMasterlist, alice)
	bob, err := s.service.Create(s.ctx, model.ListMasterlist, Submission{Name: "Bob", Dota2ID: "7654321", MMR: "100"})
	s.Require().NoError(err)

	name := "alice"
	_, err = s.service.Update(s.ctx, model.ListMasterlist, bob.ID, Patch{Name: &name})
	s.ErrorIs(err, model.ErrDuplicatePlayer)

	// keeping its own identity is fine
	same := "Bob"
	_, err = s.service.Update(s.ctx, model.ListMasterlist, bob.ID, Patch{Name: &same})
	s.NoError(err)
}

func (s *ServiceSuite) TestUpdateUnknownPlayer() {
	name := "Ghost"
	_, err := s.service.Update(s.ctx, model.ListMasterlist, "p_missing", Patch{Name: &name})
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestDeleteAndDeleteAll() {
	player, _ := s.service.Create(s.ctx, model.ListMasterlist, alice)
	_, _ = s.service.Create(s.ctx, model.ListMasterlist, Submission{Name: "Bob", Dota2ID: "7654321", MMR: "100"})
	_, _ = s.service.Create(s.ctx, model.ListMasterlist, Submission{Name: "Carl", Dota2ID: "1111111", MMR: "100"})

	s.Require().NoError(s.service.Delete(s.ctx, model.ListMasterlist, player.ID))
	_, err := s.service.Get(s.ctx, model.ListMasterlist, player.ID)
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.ErrorIs(s.service.Delete(s.ctx, model.ListMasterlist, player.ID), model.ErrPlayerNotFound)

	n, err := s.service.DeleteAll(s.ctx, model.ListMasterlist)
	s.Require().NoError(err)
	s.Equal(2, n)
}
