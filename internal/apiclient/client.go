// Package apiclient is a typed HTTP client for the registration API, shared
// by the CLI and the Discord bot.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/dotareg/internal/api/request"
	"github.com/mcoot/dotareg/internal/api/response"
)

// SessionHeader carries the admin session id
const SessionHeader = "X-Session-ID"

// Lists addressable through the admin API
const (
	ListPlayers    = "players"
	ListMasterlist = "masterlist"
)

// Error is a non-2xx API response
type Error struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsUnauthorized reports whether err is a 401 from the API
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// LoginFunc obtains a fresh session id
type LoginFunc func(ctx context.Context) (string, error)

// Client is an HTTP client for the API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
	// relogin, when set, is called once on a 401 before the request is retried
	relogin LoginFunc
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger logs each request at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithToken sets the initial session id
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRelogin re-authenticates when a session expires
func WithRelogin(fn LoginFunc) Option {
	return func(c *Client) { c.relogin = fn }
}

// New creates a new API client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken updates the client's token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current session id
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Do performs a JSON request, re-logging in once on 401 when configured
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	send := func() error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		return c.send(ctx, method, path, bodyReader, "application/json", result)
	}
	return c.withRelogin(ctx, send)
}

func (c *Client) withRelogin(ctx context.Context, send func() error) error {
	err := send()
	if err == nil || c.relogin == nil || !IsUnauthorized(err) {
		return err
	}

	c.logger.InfoContext(ctx, "admin session rejected, logging in again")
	token, lerr := c.relogin(ctx)
	if lerr != nil {
		return fmt.Errorf("re-login failed: %w", lerr)
	}
	c.SetToken(token)
	return send()
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if token := c.Token(); token != "" {
		req.Header.Set(SessionHeader, token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			slog.String("method", method), slog.String("path", path), slog.String("error", err.Error()))
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Check for error responses. Import rejections carry a full result body.
	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		if imp, ok := result.(*response.ImportResponse); ok && resp.StatusCode == http.StatusBadRequest {
			if err := json.Unmarshal(respBody, imp); err == nil && len(imp.ValidationErrors) > 0 {
				return nil
			}
		}
		return apiErr
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Health checks server health
func (c *Client) Health(ctx context.Context) (*response.HealthResponse, error) {
	var out response.HealthResponse
	return &out, c.Do(ctx, http.MethodGet, "/api/v1/health", nil, &out)
}

// Login authenticates and stores the returned session id
func (c *Client) Login(ctx context.Context, username, password string) (*response.LoginResponse, error) {
	var out response.LoginResponse
	err := c.send(ctx, http.MethodPost, "/api/v1/admin/login",
		jsonBody(request.LoginRequest{Username: username, Password: password}), "application/json", &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.SessionID)
	return &out, nil
}

// Logout ends the current session
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/v1/admin/logout", nil, "", nil)
}

// Session describes the current admin session
func (c *Client) Session(ctx context.Context) (*response.SessionCheckResponse, error) {
	var out response.SessionCheckResponse
	return &out, c.Do(ctx, http.MethodGet, "/api/v1/admin/session", nil, &out)
}

// Status returns the public registration status
func (c *Client) Status(ctx context.Context) (*response.RegistrationStatus, error) {
	var out response.RegistrationStatus
	return &out, c.Do(ctx, http.MethodGet, "/api/v1/registration/status", nil, &out)
}

// Player is the input for registering or creating a player
type Player struct {
	Name    string `json:"name"`
	Dota2ID string `json:"dota2id"`
	MMR     string `json:"mmr"`
	Notes   string `json:"notes,omitempty"`
}

// Register submits a public registration
func (c *Client) Register(ctx context.Context, p Player) (*response.Player, error) {
	var out response.PlayerResponse
	if err := c.Do(ctx, http.MethodPost, "/api/v1/registration/players", p, &out); err != nil {
		return nil, err
	}
	return &out.Player, nil
}

// ListPlayers lists one admin list, optionally filtered by a search term
func (c *Client) ListPlayers(ctx context.Context, list, search string) ([]response.Player, error) {
	path := "/api/v1/admin/" + list
	if search != "" {
		path += "?" + url.Values{"search": {search}}.Encode()
	}
	var out response.PlayerListResponse
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Players, nil
}

// CreatePlayer adds a player to a list as an admin
func (c *Client) CreatePlayer(ctx context.Context, list string, p Player) (*response.Player, error) {
	var out response.PlayerResponse
	if err := c.Do(ctx, http.MethodPost, "/api/v1/admin/"+list, p, &out); err != nil {
		return nil, err
	}
	return &out.Player, nil
}

// PlayerPatch changes some fields of a player. Nil fields are kept.
type PlayerPatch struct {
	Name    *string `json:"name,omitempty"`
	Dota2ID *string `json:"dota2id,omitempty"`
	MMR     *string `json:"mmr,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdatePlayer patches a player
func (c *Client) UpdatePlayer(ctx context.Context, list, id string, patch PlayerPatch) (*response.Player, error) {
	var out response.PlayerResponse
	if err := c.Do(ctx, http.MethodPatch, "/api/v1/admin/"+list+"/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out.Player, nil
}

// DeletePlayer removes one player
func (c *Client) DeletePlayer(ctx context.Context, list, id string) error {
	return c.Do(ctx, http.MethodDelete, "/api/v1/admin/"+list+"/"+url.PathEscape(id), nil, nil)
}

// ClearPlayers removes every player of a list
func (c *Client) ClearPlayers(ctx context.Context, list string) (int, error) {
	var out response.DeleteResponse
	if err := c.Do(ctx, http.MethodDelete, "/api/v1/admin/"+list, nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ImportOptions control duplicate handling of an import
type ImportOptions struct {
	SkipDuplicates bool
	UpdateExisting bool
}

// ImportText imports pasted text. An empty format is detected by the server.
func (c *Client) ImportText(ctx context.Context, list, text, format string, opts ImportOptions) (*response.ImportResponse, error) {
	body := map[string]any{
		"text":           text,
		"format":         format,
		"skipDuplicates": opts.SkipDuplicates,
		"updateExisting": opts.UpdateExisting,
	}
	var out response.ImportResponse
	return &out, c.Do(ctx, http.MethodPost, "/api/v1/admin/"+list+"/import", body, &out)
}

// ImportFile uploads a file; the server picks the parser from its extension
func (c *Client) ImportFile(ctx context.Context, list, filename string, data []byte, opts ImportOptions) (*response.ImportResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	_ = mw.WriteField("skipDuplicates", strconv.FormatBool(opts.SkipDuplicates))
	_ = mw.WriteField("updateExisting", strconv.FormatBool(opts.UpdateExisting))
	if err := mw.Close(); err != nil {
		return nil, err
	}

	payload := buf.Bytes()
	var out response.ImportResponse
	err = c.withRelogin(ctx, func() error {
		return c.send(ctx, http.MethodPost, "/api/v1/admin/"+list+"/import/file",
			bytes.NewReader(payload), mw.FormDataContentType(), &out)
	})
	return &out, err
}

// ListSessions lists registration sessions, newest first
func (c *Client) ListSessions(ctx context.Context) ([]response.RegistrationSession, error) {
	var out response.RegistrationSessionListResponse
	if err := c.Do(ctx, http.MethodGet, "/api/v1/admin/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CreateSession creates a registration session
func (c *Client) CreateSession(ctx context.Context, req request.CreateSessionRequest) (*response.RegistrationSession, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/admin/sessions", req)
}

// GetSession returns one registration session
func (c *Client) GetSession(ctx context.Context, id string) (*response.RegistrationSession, error) {
	return c.sessionCall(ctx, http.MethodGet, "/api/v1/admin/sessions/"+url.PathEscape(id), nil)
}

// ActivateSession makes a session the active one
func (c *Client) ActivateSession(ctx context.Context, id string) (*response.RegistrationSession, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/admin/sessions/"+url.PathEscape(id)+"/activate", nil)
}

// CloseSession closes a session early
func (c *Client) CloseSession(ctx context.Context, id string) (*response.RegistrationSession, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/admin/sessions/"+url.PathEscape(id)+"/close", nil)
}

// ReopenSession reopens a closed session
func (c *Client) ReopenSession(ctx context.Context, id string, req request.ReopenSessionRequest) (*response.RegistrationSession, error) {
	return c.sessionCall(ctx, http.MethodPost, "/api/v1/admin/sessions/"+url.PathEscape(id)+"/reopen", req)
}

func (c *Client) sessionCall(ctx context.Context, method, path string, body any) (*response.RegistrationSession, error) {
	var out response.RegistrationSessionResponse
	if err := c.Do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// Notify sends a webhook message
func (c *Client) Notify(ctx context.Context, content string) error {
	return c.Do(ctx, http.MethodPost, "/api/v1/admin/notifications", request.NotificationRequest{Content: content}, nil)
}

func jsonBody(v any) io.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}
