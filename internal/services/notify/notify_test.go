package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/dotareg/internal/metrics"
	"github.com/mcoot/dotareg/internal/testutil"
)

const testWebhookURL = "https://discord.com/api/webhooks/123456/secret-token"

type rewriteHostRoundTripper struct {
	base *url.URL
	up   http.RoundTripper
}

func (rt rewriteHostRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	u := *req.URL
	u.Scheme = rt.base.Scheme
	u.Host = rt.base.Host
	req2.URL = &u
	return rt.up.RoundTrip(req2)
}

func newTestDispatcher(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *WebhookDispatcher {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	base, err := url.Parse(ts.URL)
	require.NoError(t, err)

	client := &http.Client{
		Timeout:   timeout,
		Transport: rewriteHostRoundTripper{base: base, up: http.DefaultTransport},
	}
	d, err := NewWebhookDispatcher(Config{WebhookURL: testWebhookURL, Username: "RegBot"}, client, testutil.NopLogger(), metrics.New())
	require.NoError(t, err)
	return d
}

func TestSendPostsContentAndUsername(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}, time.Second)

	err := d.Send(context.Background(), Message{Content: "  Alice registered  "})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "/webhooks/123456/secret-token"), gotPath)
	assert.Equal(t, "Alice registered", gotBody["content"])
	assert.Equal(t, "RegBot", gotBody["username"])
}

func TestSendMessageUsernameOverridesDefault(t *testing.T) {
	var gotBody map[string]any
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}, time.Second)

	require.NoError(t, d.Send(context.Background(), Message{Content: "hi", Username: "Admin"}))
	assert.Equal(t, "Admin", gotBody["username"])
}

func TestSendFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, time.Second)

	err := d.Send(context.Background(), Message{Content: "hello"})

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendTimesOut(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}, 50*time.Millisecond)

	start := time.Now()
	err := d.Send(context.Background(), Message{Content: "hello"})

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	d := newTestDispatcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, time.Second)

	assert.ErrorIs(t, d.Send(context.Background(), Message{Content: "   "}), ErrEmptyMessage)
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := ParseWebhookURL("https://discord.com/api/v10/webhooks/42/abc")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "abc", token)

	for _, raw := range []string{"", "not a url", "https://discord.com/api/webhooks/42", "https://example.com/hooks/1/2"} {
		_, _, err := ParseWebhookURL(raw)
		assert.ErrorIs(t, err, ErrInvalidWebhookURL, raw)
	}
}

func TestNewWithoutURLIsNop(t *testing.T) {
	d, err := New(Config{}, testutil.NopLogger(), nil)
	require.NoError(t, err)

	_, ok := d.(*NopDispatcher)
	assert.True(t, ok)
	assert.ErrorIs(t, d.Send(context.Background(), Message{Content: "x"}), ErrNotConfigured)
}
