// Package discord serves the /dota slash command over Discord's HTTP
// interactions endpoint. Every command is executed against the admin API
// through apiclient using the bot's own admin session.
package discord

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mcoot/dotareg/internal/apiclient"
	"github.com/mcoot/dotareg/internal/dependencies/clock"
)

// Discord drops interactions not answered within three seconds
const defaultResponseTimeout = 2500 * time.Millisecond

// maxContentLength is Discord's message content limit
const maxContentLength = 2000

var ErrInvalidPublicKey = errors.New("invalid discord public key")

// Bot answers slash command interactions
type Bot struct {
	api     *apiclient.Client
	pubKey  ed25519.PublicKey
	logger  *slog.Logger
	clock   clock.Clock
	timeout time.Duration
}

// Option configures a Bot
type Option func(*Bot)

// WithClock replaces the time source used for relative dates
func WithClock(c clock.Clock) Option {
	return func(b *Bot) { b.clock = c }
}

// WithResponseTimeout bounds the API calls made for one interaction
func WithResponseTimeout(d time.Duration) Option {
	return func(b *Bot) { b.timeout = d }
}

// New creates a Bot. publicKey is the application's hex-encoded ed25519 key.
func New(api *apiclient.Client, publicKey string, logger *slog.Logger, opts ...Option) (*Bot, error) {
	raw, err := hex.DecodeString(publicKey)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}

	b := &Bot{
		api:     api,
		pubKey:  ed25519.PublicKey(raw),
		logger:  logger,
		clock:   clock.New(),
		timeout: defaultResponseTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// ServeHTTP handles POSTs from Discord to the interactions endpoint
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !discordgo.VerifyInteraction(r, b.pubKey) {
		b.logger.Warn("interaction signature rejected", "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var inter discordgo.Interaction
	if err := inter.UnmarshalJSON(body); err != nil {
		b.logger.Warn("failed to decode interaction", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var resp *discordgo.InteractionResponse
	switch inter.Type {
	case discordgo.InteractionPing:
		resp = &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong}
	case discordgo.InteractionApplicationCommand:
		ctx, cancel := context.WithTimeout(r.Context(), b.timeout)
		defer cancel()
		resp = b.Handle(ctx, &inter)
	default:
		b.logger.Warn("unsupported interaction type", "type", inter.Type.String())
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		b.logger.Error("failed to write interaction response", "error", err)
	}
}

// Handle dispatches an application command to its sub-command handler
func (b *Bot) Handle(ctx context.Context, inter *discordgo.Interaction) *discordgo.InteractionResponse {
	data := inter.ApplicationCommandData()
	if data.Name != CommandName {
		return reply(fmt.Sprintf("unknown command '%s'", data.Name), false)
	}
	if len(data.Options) == 0 {
		return reply(helpText, false)
	}

	sub := data.Options[0]
	opts := newOptions(sub.Options)
	h, ok := subCommandHandlers[SubCommand(sub.Name)]
	if !ok {
		return reply(helpText, false)
	}

	content, err := h(ctx, b, opts)
	if err != nil {
		b.logger.Info("command failed",
			"sub_command", sub.Name,
			"user", invoker(inter),
			"error", err,
		)
		return reply(errorText(err), false)
	}

	b.logger.Info("command handled", "sub_command", sub.Name, "user", invoker(inter))
	return reply(content, opts.flag(optBroadcast))
}

func reply(content string, broadcast bool) *discordgo.InteractionResponse {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: truncateContent(content),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
	if broadcast {
		resp.Data.Flags = 0
	}
	return resp
}

func errorText(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return "Error: " + apiErr.Message
	}
	var inputErr inputError
	if errors.As(err, &inputErr) {
		return "Error: " + inputErr.Error()
	}
	return "Error: the registration service is unavailable"
}

// truncateContent cuts s to Discord's message limit, counted in runes
func truncateContent(s string) string {
	runes := []rune(s)
	if len(runes) <= maxContentLength {
		return s
	}
	const suffix = "\n..."
	return string(runes[:maxContentLength-len(suffix)]) + suffix
}

func invoker(inter *discordgo.Interaction) string {
	switch {
	case inter.Member != nil && inter.Member.User != nil:
		return inter.Member.User.Username
	case inter.User != nil:
		return inter.User.Username
	default:
		return ""
	}
}
