package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/dotareg/internal/api/response"
	"github.com/mcoot/dotareg/internal/services/registration"
)

// StatusEvent is the event name carrying a response.RegistrationStatus
const StatusEvent = "status"

// Broadcaster publishes the public registration status to the hub.
// A nil Broadcaster does nothing.
type Broadcaster struct {
	hub          *Hub
	registration *registration.Service
	logger       *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub, reg *registration.Service, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:          hub,
		registration: reg,
		logger:       logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// StatusMessage renders the current status as an SSE message
func (b *Broadcaster) StatusMessage(ctx context.Context) ([]byte, error) {
	status, err := b.registration.PublicStatus(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(response.RegistrationStatusFromModel(status))
	if err != nil {
		return nil, err
	}
	return formatMessage(StatusEvent, string(data)), nil
}

// StatusChanged re-evaluates the public status and sends it to every client
func (b *Broadcaster) StatusChanged(ctx context.Context) {
	if b == nil || b.hub.ClientCount() == 0 {
		return
	}
	msg, err := b.StatusMessage(ctx)
	if err != nil {
		b.logger.ErrorContext(ctx, "sse failed to evaluate status", slog.Any("error", err))
		return
	}
	b.hub.Broadcast(msg)
}

// Hub returns the hub clients are served from
func (b *Broadcaster) Hub() *Hub {
	return b.hub
}
