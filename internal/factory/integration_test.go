package factory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/services/importer"
	"github.com/mcoot/dotareg/internal/services/parser"
	"github.com/mcoot/dotareg/internal/services/players"
	"github.com/mcoot/dotareg/internal/services/registration"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) openSession(maxPlayers int) *model.RegistrationSession {
	now := s.app.MockClock.Now()
	start := now.Add(time.Hour)
	expiry := now.Add(48 * time.Hour)
	session, err := s.app.RegistrationService.CreateSession(s.ctx, registration.Params{
		Title:      "Weekend Cup",
		StartTime:  &start,
		Expiry:     &expiry,
		MaxPlayers: &maxPlayers,
	}, true)
	s.Require().NoError(err)
	return session
}

// Test: Complete registration window from pending to full
func (s *IntegrationSuite) TestRegistrationLifecycle() {
	session := s.openSession(2)

	// Step 1: Before the start time submissions are rejected
	status, err := s.app.RegistrationService.PublicStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, status.State)
	s.Equal(session.StartTime, status.CountdownTarget)

	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "Alice", Dota2ID: "1234567", MMR: "5000"})
	s.ErrorIs(err, model.ErrRegistrationClosed)

	// Step 2: The window opens
	s.app.MockClock.Advance(2 * time.Hour)
	alice, err := s.app.PlayerService.Register(s.ctx, players.Submission{Name: " Alice ", Dota2ID: "1234567", MMR: "5000"})
	s.Require().NoError(err)
	s.Equal("Alice", alice.Name)
	s.Equal(session.ID, alice.RegistrationSessionID)

	// Step 3: Same name, different case, is a duplicate
	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "ALICE", Dota2ID: "7777777", MMR: "1"})
	s.ErrorIs(err, model.ErrDuplicatePlayer)

	// Step 4: The second player fills the cap and closes the window
	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "Bob", Dota2ID: "7654321", MMR: "6000"})
	s.Require().NoError(err)

	status, err = s.app.RegistrationService.PublicStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.RegistrationClosed, status.State)
	s.Equal(2, status.PlayerCount)
	s.Nil(status.CountdownTarget)

	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "Carol", Dota2ID: "1111111", MMR: "100"})
	s.ErrorIs(err, model.ErrRegistrationFull)

	// Every accepted registration was announced
	msgs := s.app.MockDispatcher.Messages()
	s.Require().Len(msgs, 2)
	s.Contains(msgs[1].Content, "Bob")
	s.Contains(msgs[1].Content, "2 registered of 2")
}

// Test: Closed stays closed even if the cap is lifted, until an admin reopens
func (s *IntegrationSuite) TestClosedSessionNeedsExplicitReopen() {
	session := s.openSession(10)
	s.app.MockClock.Advance(2 * time.Hour)

	_, err := s.app.RegistrationService.Close(s.ctx, session.ID)
	s.Require().NoError(err)

	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "Alice", Dota2ID: "1234567", MMR: "5000"})
	s.ErrorIs(err, model.ErrRegistrationClosed)

	expiry := s.app.MockClock.Now().Add(time.Hour)
	_, err = s.app.RegistrationService.Reopen(s.ctx, session.ID, registration.ReopenParams{Expiry: &expiry})
	s.Require().NoError(err)

	_, err = s.app.PlayerService.Register(s.ctx, players.Submission{Name: "Alice", Dota2ID: "1234567", MMR: "5000"})
	s.NoError(err)
}

// Test: Masterlist import then re-import is idempotent with skipDuplicates
func (s *IntegrationSuite) TestMasterlistImportRoundTrip() {
	raw := "Name,Dota2ID,MMR,Notes\nAlice,1234567,5000,\"captain, support\"\nBob,7654321,6000,"

	res, err := s.app.ImportService.Import(s.ctx, model.ListMasterlist, raw, parser.FormatCSV, importer.Options{})
	s.Require().NoError(err)
	s.Equal(2, res.Added)
	s.Empty(res.Errors)

	res, err = s.app.ImportService.Import(s.ctx, model.ListMasterlist, raw, "", importer.Options{SkipDuplicates: true})
	s.Require().NoError(err)
	s.Equal(0, res.Added)
	s.Equal(2, res.Skipped)

	list, err := s.app.PlayerService.List(s.ctx, model.ListMasterlist, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("captain, support", list[0].Notes)

	// The masterlist and registrations are independent
	regs, err := s.app.PlayerService.List(s.ctx, model.ListRegistrations, model.PlayerFilter{})
	s.Require().NoError(err)
	s.Empty(regs)
}

// Test: Admin session expires and is then rejected
func (s *IntegrationSuite) TestAdminSessionExpiry() {
	s.Require().NoError(s.app.SeedAdmins(s.ctx, []config.AdminConfig{{Username: "admin", Password: "hunter22"}}))

	session, err := s.app.AuthService.Login(s.ctx, "admin", "hunter22")
	s.Require().NoError(err)
	s.True(strings.HasPrefix(session.ID, "sess_"))

	_, err = s.app.AuthService.ValidateSession(s.ctx, session.ID)
	s.Require().NoError(err)

	s.app.MockClock.Advance(25 * time.Hour)
	_, err = s.app.AuthService.ValidateSession(s.ctx, session.ID)
	s.Error(err)
}

// Test: Re-seeding an admin with a new password rotates it
func (s *IntegrationSuite) TestSeedAdminsRotatesPassword() {
	s.Require().NoError(s.app.SeedAdmins(s.ctx, []config.AdminConfig{{Username: "admin", Password: "first-pass"}}))
	s.Require().NoError(s.app.SeedAdmins(s.ctx, []config.AdminConfig{{Username: "admin", Password: "second-pass", Role: "bot"}}))

	_, err := s.app.AuthService.Login(s.ctx, "admin", "first-pass")
	s.Error(err)

	session, err := s.app.AuthService.Login(s.ctx, "admin", "second-pass")
	s.Require().NoError(err)
	s.Equal(model.RoleBot, session.Role)
}
