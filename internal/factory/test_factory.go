package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/dotareg/internal/dependencies/mocks"
	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/services/auth"
	"github.com/mcoot/dotareg/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock      *mocks.MockClock
	MockIDs        *mocks.MockIDGenerator
	MockDispatcher *mocks.MockDispatcher
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDGenerator()
	mockDispatcher := mocks.NewMockDispatcher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, mockIDs, mockDispatcher,
		metrics.NewWithRegistry(prometheus.NewRegistry()), auth.DefaultConfig(), logger)

	return &TestApp{
		App:            app,
		MockClock:      mockClock,
		MockIDs:        mockIDs,
		MockDispatcher: mockDispatcher,
	}
}
