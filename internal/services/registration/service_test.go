package registration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/dependencies/mocks"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage/memory"
	"github.com/mcoot/dotareg/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
	players *testutil.PlayerGenerator
	nextID  int
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, mocks.NewMockIDGenerator(), testutil.NopLogger())
	s.ctx = context.Background()
	s.players = testutil.NewPlayerGenerator(7)
	s.nextID = 0
}

func (s *ServiceSuite) at(d time.Duration) *time.Time {
	t := s.clock.Now().Add(d)
	return &t
}

func (s *ServiceSuite) create(p Params) *model.RegistrationSession {
	if p.Title == "" {
		p.Title = "Autumn Cup"
	}
	session, err := s.service.CreateSession(s.ctx, p, true)
	s.Require().NoError(err)
	return session
}

func (s *ServiceSuite) addPlayers(id model.RegistrationSessionID, n int) {
	for _, d := range s.players.Batch(n) {
		s.nextID++
		s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{
			ID:                    model.PlayerID(fmt.Sprintf("p_%d", s.nextID)),
			List:                  model.ListRegistrations,
			PlayerDetails:         d,
			RegistrationSessionID: id,
		}))
	}
}

// State machine tests

func (s *ServiceSuite) TestPendingBeforeStart() {
	session := s.create(Params{StartTime: s.at(time.Hour), Expiry: s.at(3 * time.Hour)})

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)

	s.Equal(model.RegistrationPending, status.State)
	s.False(status.IsOpen())
	s.Equal(session.StartTime, status.CountdownTarget)
}

func (s *ServiceSuite) TestOpenWithinWindow() {
	session := s.create(Params{StartTime: s.at(-time.Hour), Expiry: s.at(time.Hour)})

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)

	s.Equal(model.RegistrationOpen, status.State)
	s.True(status.IsOpen())
	s.Equal(session.Expiry, status.CountdownTarget)
}

func (s *ServiceSuite) TestClosedAfterExpiry() {
	session := s.create(Params{Expiry: s.at(-time.Second)})

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)

	s.Equal(model.RegistrationClosed, status.State)
	s.Nil(status.CountdownTarget)
}

func (s *ServiceSuite) TestOpenWithoutWindow() {
	session := s.create(Params{})

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)

	s.Equal(model.RegistrationOpen, status.State)
	s.Nil(status.CountdownTarget)
}

func (s *ServiceSuite) TestTransitionsFollowTheClock() {
	session := s.create(Params{StartTime: s.at(time.Hour), Expiry: s.at(2 * time.Hour)})

	states := []model.RegistrationState{}
	for range 3 {
		status, err := s.service.Status(s.ctx, session.ID)
		s.Require().NoError(err)
		states = append(states, status.State)
		s.clock.Advance(time.Hour)
	}

	s.Equal([]model.RegistrationState{model.RegistrationPending, model.RegistrationOpen, model.RegistrationClosed}, states)
}

func (s *ServiceSuite) TestCapClosesRegistration() {
	maxPlayers := 2
	session := s.create(Params{MaxPlayers: &maxPlayers})
	s.addPlayers(session.ID, 1)

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationOpen, status.State)
	s.Equal(1, status.PlayerCount)

	s.addPlayers(session.ID, 2)
	status, err = s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationClosed, status.State)

	_, err = s.service.CheckOpen(s.ctx)
	s.ErrorIs(err, model.ErrRegistrationFull)
}

func (s *ServiceSuite) TestPlayerCountIsRecomputed() {
	session := s.create(Params{})
	s.addPlayers(session.ID, 3)
	s.addPlayers("rs_other", 1)

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(3, status.PlayerCount)
}

// Terminal CLOSED tests

func (s *ServiceSuite) TestClosedIsTerminal() {
	session := s.create(Params{Expiry: s.at(time.Hour)})
	s.clock.Advance(2 * time.Hour)

	status, err := s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Require().Equal(model.RegistrationClosed, status.State)

	// moving the clock back must not reopen a latched session
	s.clock.Advance(-2 * time.Hour)
	status, err = s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationClosed, status.State)

	stored, err := s.storage.GetRegistrationSession(s.ctx, session.ID)
	s.Require().NoError(err)
	s.NotNil(stored.ClosedAt)
}

func (s *ServiceSuite) TestCloseAndReopen() {
	session := s.create(Params{Expiry: s.at(time.Hour)})

	_, err := s.service.Close(s.ctx, session.ID)
	s.Require().NoError(err)
	status, _ := s.service.Status(s.ctx, session.ID)
	s.Equal(model.RegistrationClosed, status.State)

	reopened, err := s.service.Reopen(s.ctx, session.ID, ReopenParams{Expiry: s.at(2 * time.Hour)})
	s.Require().NoError(err)
	s.Nil(reopened.ClosedAt)

	status, err = s.service.Status(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationOpen, status.State)
	s.Equal(s.at(2*time.Hour), status.CountdownTarget)
}

func (s *ServiceSuite) TestReopenRequiresFutureExpiry() {
	session := s.create(Params{Expiry: s.at(-time.Minute)})

	_, err := s.service.Reopen(s.ctx, session.ID, ReopenParams{})
	s.ErrorIs(err, model.ErrInvalidRegistrationSession)
}

func (s *ServiceSuite) TestCloseUnknownSession() {
	_, err := s.service.Close(s.ctx, "rs_missing")
	s.ErrorIs(err, model.ErrRegistrationSessionNotFound)
}

// Params validation tests

func (s *ServiceSuite) TestCreateSessionValidatesParams() {
	zero := 0
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}

	cases := []Params{
		{Title: "   "},
		{Title: string(long)},
		{Title: "Cup", StartTime: s.at(time.Hour), Expiry: s.at(time.Hour)},
		{Title: "Cup", StartTime: s.at(time.Hour), Expiry: s.at(time.Minute)},
		{Title: "Cup", MaxPlayers: &zero},
	}
	for _, p := range cases {
		_, err := s.service.CreateSession(s.ctx, p, false)
		s.ErrorIs(err, model.ErrInvalidRegistrationSession)
	}

	sessions, err := s.service.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Empty(sessions)
}

// Activation tests

func (s *ServiceSuite) TestOnlyOneSessionIsActive() {
	first := s.create(Params{Title: "First"})
	second := s.create(Params{Title: "Second"})

	active, err := s.storage.GetActiveRegistrationSession(s.ctx)
	s.Require().NoError(err)
	s.Equal(second.ID, active.ID)

	_, err = s.service.Activate(s.ctx, first.ID)
	s.Require().NoError(err)

	sessions, err := s.service.ListSessions(s.ctx)
	s.Require().NoError(err)
	activeCount := 0
	for _, rs := range sessions {
		if rs.IsActive {
			activeCount++
			s.Equal(first.ID, rs.ID)
		}
	}
	s.Equal(1, activeCount)
}

func (s *ServiceSuite) TestCreateInactiveSession() {
	session, err := s.service.CreateSession(s.ctx, Params{Title: "Later"}, false)
	s.Require().NoError(err)
	s.False(session.IsActive)

	_, err = s.storage.GetActiveRegistrationSession(s.ctx)
	s.ErrorIs(err, model.ErrNoActiveRegistration)
}

// Public status tests

func (s *ServiceSuite) TestPublicStatusWithoutActiveSession() {
	status, err := s.service.PublicStatus(s.ctx)
	s.Require().NoError(err)

	s.Nil(status.Session)
	s.Equal(model.RegistrationClosed, status.State)

	_, err = s.service.CheckOpen(s.ctx)
	s.ErrorIs(err, model.ErrRegistrationClosed)
}

func (s *ServiceSuite) TestCheckOpen() {
	s.create(Params{StartTime: s.at(time.Hour)})

	status, err := s.service.CheckOpen(s.ctx)
	s.ErrorIs(err, model.ErrRegistrationClosed)
	s.Equal(model.RegistrationPending, status.State)

	s.clock.Advance(time.Hour)
	status, err = s.service.CheckOpen(s.ctx)
	s.Require().NoError(err)
	s.True(status.IsOpen())
}
