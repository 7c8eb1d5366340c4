package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/dotareg/internal/dependencies/clock"
	"github.com/mcoot/dotareg/internal/dependencies/idgen"
	"github.com/mcoot/dotareg/internal/model"
	"github.com/mcoot/dotareg/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUser        = errors.New("username and password are required")
)

// SessionPrefix starts every admin session token
const SessionPrefix = "sess_"

// Service handles admin authentication and session management.
// Sessions live in storage so any server instance can validate them.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// Credentials describe an admin account to seed. PasswordHash, when set, is
// used as-is instead of hashing Password.
type Credentials struct {
	Username     string
	Password     string
	PasswordHash string
	Role         model.AdminRole
}

// New creates a new auth Service
func New(store storage.Storage, clk clock.Clock, ids idgen.Generator, logger *slog.Logger, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         store,
		clock:           clk,
		ids:             ids,
		logger:          logger,
		sessionDuration: cfg.SessionDuration,
	}
}

// CreateUser creates an admin account
func (s *Service) CreateUser(ctx context.Context, creds Credentials) (*model.AdminUser, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || (creds.Password == "" && creds.PasswordHash == "") {
		return nil, ErrInvalidUser
	}

	_, err := s.storage.GetAdminUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrAdminUserNotFound) {
		return nil, err
	}

	hash, err := passwordHash(creds)
	if err != nil {
		return nil, err
	}

	role := creds.Role
	if role == "" {
		role = model.RoleAdmin
	}
	now := s.clock.Now()
	user := &model.AdminUser{
		ID:           model.AdminUserID(s.ids.NewID("u_")),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.SaveAdminUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the account if missing, or resets its password and
// role when they no longer match creds
func (s *Service) EnsureUser(ctx context.Context, creds Credentials) (*model.AdminUser, error) {
	user, err := s.storage.GetAdminUserByUsername(ctx, strings.TrimSpace(creds.Username))
	if errors.Is(err, model.ErrAdminUserNotFound) {
		user, err = s.CreateUser(ctx, creds)
		if err == nil {
			s.logger.InfoContext(ctx, "created admin user", "username", user.Username, "role", user.Role)
		}
		return user, err
	}
	if err != nil {
		return nil, err
	}

	changed := false
	switch {
	case creds.PasswordHash != "" && creds.PasswordHash != user.PasswordHash:
		user.PasswordHash = creds.PasswordHash
		changed = true
	case creds.PasswordHash == "" && creds.Password != "" &&
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil:
		hash, err := passwordHash(creds)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		changed = true
	}
	if creds.Role != "" && creds.Role != user.Role {
		user.Role = creds.Role
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.UpdatedAt = s.clock.Now()
	if err := s.storage.SaveAdminUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "updated admin user", "username", user.Username, "role", user.Role)
	return user, nil
}

// Login authenticates an admin and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*model.AdminSession, error) {
	user, err := s.storage.GetAdminUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrAdminUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.CreateSession(ctx, user)
}

// CreateSession issues a new session token for a user
func (s *Service) CreateSession(ctx context.Context, user *model.AdminUser) (*model.AdminSession, error) {
	now := s.clock.Now()
	session := &model.AdminSession{
		ID:        s.ids.Token(SessionPrefix),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	if err := s.storage.SaveAdminSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// ValidateSession returns the session for a token. Missing and expired
// sessions are both reported as ErrInvalidSession.
func (s *Service) ValidateSession(ctx context.Context, token string) (*model.AdminSession, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.storage.GetAdminSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrAdminSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if !session.ValidAt(s.clock.Now()) {
		if err := s.storage.DeleteAdminSession(ctx, token); err != nil && !errors.Is(err, model.ErrAdminSessionNotFound) {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", err)
		}
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session. Unknown tokens are ignored.
func (s *Service) InvalidateSession(ctx context.Context, token string) error {
	err := s.storage.DeleteAdminSession(ctx, token)
	if err != nil && !errors.Is(err, model.ErrAdminSessionNotFound) {
		return err
	}
	return nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions(ctx context.Context) (int, error) {
	return s.storage.DeleteExpiredAdminSessions(ctx, s.clock.Now())
}

// RunSweeper cleans expired sessions every interval until ctx is done
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanExpiredSessions(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "removed expired sessions", "count", n)
			}
		}
	}
}

func passwordHash(creds Credentials) (string, error) {
	if creds.PasswordHash != "" {
		return creds.PasswordHash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
