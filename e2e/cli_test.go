package e2e_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dotareg/internal/api"
	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/config"
	"github.com/mcoot/dotareg/internal/factory"
	"github.com/mcoot/dotareg/internal/services/notify"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
	tokenFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "dotareg-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/dotareg")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
		tokenFile:  filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	return r.runWithInput("", args...)
}

func (r *cliRunner) runWithInput(stdin string, args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "DOTAREG_TOKEN=")
	cmd.Stdin = strings.NewReader(stdin)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the real application on a free port with the
// in-memory store and the webhook disabled
func startTestServer(t *testing.T) string {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.Server.Addr = addr

	app, err := factory.New(context.Background(), factory.ConfigFrom(&cfg, logger))
	require.NoError(t, err)
	require.NoError(t, app.SeedAdmins(context.Background(), []config.AdminConfig{{Username: "admin", Password: "secret-pass"}}))
	require.IsType(t, &notify.NopDispatcher{}, app.Notifier)

	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(app.RouterConfig(0, 0, cfg.Server.MaxUploadBytes)),
	}

	// Start server
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		_ = app.Close()
	})

	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")
	return serverURL
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

func TestCLIHealth(t *testing.T) {
	serverURL := startTestServer(t)
	cli := newCLIRunner(t, serverURL)

	out, err := cli.run("health")
	require.NoError(t, err, out)

	var health response.HealthResponse
	require.NoError(t, json.Unmarshal([]byte(out), &health))
	assert.Equal(t, "ok", health.Status)
}

func TestCLIRequiresLogin(t *testing.T) {
	serverURL := startTestServer(t)
	cli := newCLIRunner(t, serverURL)

	out, err := cli.run("players", "list")
	require.Error(t, err)
	assert.Contains(t, out, "UNAUTHORIZED")
}

func TestCLIRegistrationFlow(t *testing.T) {
	serverURL := startTestServer(t)
	cli := newCLIRunner(t, serverURL)

	out, err := cli.run("login", "-u", "admin", "-p", "secret-pass")
	require.NoError(t, err, out)

	// Open a session for the next two hours, capped at two players
	out, err = cli.run("sessions", "create", "--title", "Weekend Cup", "--start", "now", "--expiry", "+2h", "--max-players", "2", "--activate")
	require.NoError(t, err, out)

	var session response.RegistrationSession
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.Equal(t, "OPEN", session.State)

	out, err = cli.run("register", "--name", "Alice", "--dota2id", "1234567", "--mmr", "5000")
	require.NoError(t, err, out)

	// Duplicate names are rejected case-insensitively
	out, err = cli.run("register", "--name", "ALICE", "--dota2id", "7777777", "--mmr", "1")
	require.Error(t, err)
	assert.Contains(t, out, "DUPLICATE_PLAYER")

	out, err = cli.run("register", "--name", "Bob", "--dota2id", "7654321", "--mmr", "6000")
	require.NoError(t, err, out)

	// The cap closes the window
	out, err = cli.run("status")
	require.NoError(t, err, out)
	var status response.RegistrationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.False(t, status.IsOpen)
	assert.Equal(t, "CLOSED", status.State)
	assert.Equal(t, 2, status.PlayerCount)

	out, err = cli.run("players", "list")
	require.NoError(t, err, out)
	var players []response.Player
	require.NoError(t, json.Unmarshal([]byte(out), &players))
	require.Len(t, players, 2)
	assert.Equal(t, "Alice", players[0].Name)
	assert.Equal(t, session.ID, players[0].RegistrationSessionID)

	out, err = cli.run("logout")
	require.NoError(t, err, out)
}

func TestCLIMasterlistImport(t *testing.T) {
	serverURL := startTestServer(t)
	cli := newCLIRunner(t, serverURL)

	out, err := cli.run("login", "-u", "admin", "-p", "secret-pass")
	require.NoError(t, err, out)

	// One bad row rejects the whole batch
	out, err = cli.runWithInput("Alice,1234567,5000\nBob,12,6000\n", "masterlist", "import", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, out, `"line": 2`)
	assert.Contains(t, out, `"rule": "dota2id"`)

	out, err = cli.runWithInput("Name,Dota2ID,MMR,Notes\nAlice,1234567,5000,\"captain, support\"\n", "masterlist", "import")
	require.NoError(t, err, out)

	var result response.ImportResponse
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Added)

	out, err = cli.run("masterlist", "list")
	require.NoError(t, err, out)
	var players []response.Player
	require.NoError(t, json.Unmarshal([]byte(out), &players))
	require.Len(t, players, 1)
	assert.Equal(t, "captain, support", players[0].Notes)
}
