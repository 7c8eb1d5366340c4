package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcoot/dotareg/internal/api/response"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig returns a Config filled from the environment
func DefaultConfig() *Config {
	return &Config{
		ServerURL: envOr("DOTAREG_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("DOTAREG_TOKEN"),
		TokenFile: envOr("DOTAREG_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
	}
}

// storedSession is what login writes to the token file
type storedSession struct {
	Server    string    `json:"server"`
	SessionID string    `json:"sessionId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoadToken fills Token from the token file when none was given. A stored
// session is only sent to the server that issued it, and not after it
// expires. A file holding a bare session id is used as is.
func (c *Config) LoadToken(now time.Time) error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading token file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.Token = raw
		return nil
	}
	if sameServer(stored.Server, c.ServerURL) && (stored.ExpiresAt.IsZero() || now.Before(stored.ExpiresAt)) {
		c.Token = stored.SessionID
	}
	return nil
}

// SaveSession stores a login for later commands
func (c *Config) SaveSession(login *response.LoginResponse) error {
	c.Token = login.SessionID

	data, err := json.MarshalIndent(storedSession{
		Server:    c.ServerURL,
		SessionID: login.SessionID,
		Username:  login.User.Username,
		ExpiresAt: login.ExpiresAt,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, data, 0600)
}

// ClearToken removes the token file
func (c *Config) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sameServer(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dotareg", "session.json")
	}
	return filepath.Join(home, ".dotareg", "session.json")
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
