package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/dotareg/internal/services/notify"
)

// MockDispatcher records sent messages and returns Err from Send
type MockDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
	Err      error
}

// Ensure MockDispatcher implements Dispatcher
var _ notify.Dispatcher = (*MockDispatcher)(nil)

// NewMockDispatcher creates a new MockDispatcher
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Send records msg
func (d *MockDispatcher) Send(ctx context.Context, msg notify.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return d.Err
}

// Messages returns a copy of every recorded message
func (d *MockDispatcher) Messages() []notify.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Message(nil), d.messages...)
}
