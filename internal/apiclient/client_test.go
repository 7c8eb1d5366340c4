package apiclient

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/dotareg/internal/api"
	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/factory"
)

type ClientSuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	client *Client
	ctx    context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.app = factory.NewTestApp()
	s.Require().NoError(s.app.SeedAdmins(s.ctx, []config.AdminConfig{{Username: "bot", Password: "bot-password", Role: "bot"}}))
	s.server = httptest.NewServer(api.NewRouter(s.app.RouterConfig(0, 0, 1<<20)))
	s.client = New(s.server.URL, WithHTTPClient(s.server.Client()))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) login() {
	_, err := s.client.Login(s.ctx, "bot", "bot-password")
	s.Require().NoError(err)
}

func (s *ClientSuite) TestHealth() {
	h, err := s.client.Health(s.ctx)
	s.Require().NoError(err)
	s.Equal("ok", h.Status)
}

func (s *ClientSuite) TestLoginStoresToken() {
	resp, err := s.client.Login(s.ctx, "bot", "bot-password")
	s.Require().NoError(err)
	s.Equal(resp.SessionID, s.client.Token())
	s.Equal("bot", resp.User.Role)

	sess, err := s.client.Session(s.ctx)
	s.Require().NoError(err)
	s.Equal("bot", sess.User.Username)
}

func (s *ClientSuite) TestErrorsCarryStatusAndCode() {
	_, err := s.client.Login(s.ctx, "bot", "wrong")
	s.Require().Error(err)
	s.True(IsUnauthorized(err))

	var apiErr *Error
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("INVALID_CREDENTIALS", apiErr.Code)
}

func (s *ClientSuite) TestReloginOnExpiredSession() {
	logins := 0
	s.client = New(s.server.URL,
		WithHTTPClient(s.server.Client()),
		WithToken("sess_stale"),
		WithRelogin(func(ctx context.Context) (string, error) {
			logins++
			resp, err := New(s.server.URL, WithHTTPClient(s.server.Client())).Login(ctx, "bot", "bot-password")
			if err != nil {
				return "", err
			}
			return resp.SessionID, nil
		}),
	)

	sessions, err := s.client.ListSessions(s.ctx)
	s.Require().NoError(err)
	s.Empty(sessions)
	s.Equal(1, logins)
	s.NotEqual("sess_stale", s.client.Token())
}

func (s *ClientSuite) TestSessionAndPlayerFlow() {
	s.login()
	now := s.app.MockClock.Now()
	start, expiry := now.Add(-time.Minute), now.Add(time.Hour)

	created, err := s.client.CreateSession(s.ctx, request.CreateSessionRequest{
		Title: "Friday Inhouse", StartTime: &start, Expiry: &expiry, Activate: true,
	})
	s.Require().NoError(err)
	s.Equal("OPEN", created.State)

	p, err := s.client.Register(s.ctx, Player{Name: "Alice", Dota2ID: "1234567", MMR: "5000"})
	s.Require().NoError(err)
	s.Equal(created.ID, p.RegistrationSessionID)

	mmr := "5200"
	updated, err := s.client.UpdatePlayer(s.ctx, ListPlayers, p.ID, PlayerPatch{MMR: &mmr})
	s.Require().NoError(err)
	s.Equal(5200, updated.MMR)

	players, err := s.client.ListPlayers(s.ctx, ListPlayers, "ali")
	s.Require().NoError(err)
	s.Len(players, 1)

	closed, err := s.client.CloseSession(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("CLOSED", closed.State)

	status, err := s.client.Status(s.ctx)
	s.Require().NoError(err)
	s.False(status.IsOpen)
	s.Equal(1, status.PlayerCount)

	s.Require().NoError(s.client.DeletePlayer(s.ctx, ListPlayers, p.ID))
	err = s.client.DeletePlayer(s.ctx, ListPlayers, p.ID)
	s.Error(err)
}

func (s *ClientSuite) TestImportRejectionReturnsResult() {
	s.login()

	res, err := s.client.ImportText(s.ctx, ListMasterlist, "Alice,1234567,5000\nBob,12,6000", "", ImportOptions{})
	s.Require().NoError(err)
	s.False(res.Success)
	s.Require().Len(res.ValidationErrors, 1)
	s.Equal(2, res.ValidationErrors[0].Line)

	res, err = s.client.ImportFile(s.ctx, ListMasterlist, "roster.csv", []byte("Alice,1234567,5000\n"), ImportOptions{})
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal(1, res.Added)

	n, err := s.client.ClearPlayers(s.ctx, ListMasterlist)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *ClientSuite) TestNotify() {
	s.login()
	s.Require().NoError(s.client.Notify(s.ctx, "Lobby is up"))
	s.Len(s.app.MockDispatcher.Messages(), 1)

	s.Require().NoError(s.client.Logout(s.ctx))
	err := s.client.Notify(s.ctx, "again")
	s.True(IsUnauthorized(err))
}
