package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/bridge/internal/action"
	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/middleware"
	"github.com/openclaw/bridge/internal/monitoring"
)

type fakeDispatcher struct {
	outcome action.Outcome
	gotReq  action.Request
	gotID   string
	calls   int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req action.Request, requestID string) action.Outcome {
	f.calls++
	f.gotReq = req
	f.gotID = requestID
	out := f.outcome
	out.RequestID = requestID
	return out
}

const testClientKey = "test-client-key"

func newTestServer(outcome action.Outcome) (*Server, *fakeDispatcher) {
	cfg := config.Default()
	cfg.Server.ClientKey = testClientKey
	cfg.RateLimit.Enabled = false

	d := &fakeDispatcher{outcome: outcome}
	srv := NewServer(cfg, d, monitoring.NewMetrics(), logging.NewNop())
	return srv, d
}

func validBody(t *testing.T, mutate func(m map[string]any)) string {
	t.Helper()
	m := map[string]any{
		"version":   "1",
		"action":    "summarize",
		"source":    "chrome",
		"selection": "some text",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if mutate != nil {
		mutate(m)
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

func postAction(srv *Server, body string, withKey bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/action", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set(middleware.ClientKeyHeader, testClientKey)
	}
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) action.Outcome {
	t.Helper()
	var out action.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{Status: action.StatusSent})

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Contains(t, w.Body.String(), ServiceName)
}

func TestActionSentIs200(t *testing.T) {
	srv, d := newTestServer(action.Outcome{Status: action.StatusSent})

	w := postAction(srv, validBody(t, nil), true)

	assert.Equal(t, http.StatusOK, w.Code)
	out := decodeOutcome(t, w)
	assert.Equal(t, action.StatusSent, out.Status)
	assert.True(t, strings.HasPrefix(out.RequestID, "req_"))
	assert.Equal(t, 1, d.calls)
	assert.Equal(t, out.RequestID, d.gotID)
}

func TestActionQueuedIs202(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{
		Status: action.StatusQueued, ErrorCode: action.CodeUpstreamTimeout, RetryAfterMS: 5000,
	})

	w := postAction(srv, validBody(t, nil), true)

	assert.Equal(t, http.StatusAccepted, w.Code)
	out := decodeOutcome(t, w)
	assert.Equal(t, action.CodeUpstreamTimeout, out.ErrorCode)
	assert.Equal(t, 5000, out.RetryAfterMS)
}

func TestActionFailedIs502(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{
		Status: action.StatusFailed, ErrorCode: action.CodeUpstreamUnavailable,
	})

	w := postAction(srv, validBody(t, nil), true)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestActionWithoutClientKeyIs401(t *testing.T) {
	srv, d := newTestServer(action.Outcome{Status: action.StatusSent})

	w := postAction(srv, validBody(t, nil), false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED_CLIENT")
	assert.Zero(t, d.calls)
}

func TestUnconfiguredClientKeyRejectsEveryAction(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	d := &fakeDispatcher{outcome: action.Outcome{Status: action.StatusSent}}
	srv := NewServer(cfg, d, monitoring.NewMetrics(), logging.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/action", strings.NewReader(validBody(t, nil)))
	req.Header.Set("Content-Type", "application/json")
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED_CLIENT")
	assert.Zero(t, d.calls)
}

func TestMalformedJSONIs400(t *testing.T) {
	srv, d := newTestServer(action.Outcome{Status: action.StatusSent})

	w := postAction(srv, "{not json", true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, action.CodeInvalidPayload, decodeOutcome(t, w).ErrorCode)
	assert.Zero(t, d.calls)
}

func TestUnknownFieldIs400(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{Status: action.StatusSent})

	body := validBody(t, func(m map[string]any) { m["extraField"] = "surprise" })
	w := postAction(srv, body, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, action.CodeInvalidPayload, decodeOutcome(t, w).ErrorCode)
}

func TestOversizedBodyIs413(t *testing.T) {
	srv, d := newTestServer(action.Outcome{Status: action.StatusSent})

	body := validBody(t, func(m map[string]any) {
		m["selection"] = strings.Repeat("x", 70*1024)
	})
	w := postAction(srv, body, true)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, action.CodePayloadTooLarge, decodeOutcome(t, w).ErrorCode)
	assert.Zero(t, d.calls)
}

func TestUnsupportedActionIs400(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{Status: action.StatusSent})

	body := validBody(t, func(m map[string]any) { m["action"] = "translate" })
	w := postAction(srv, body, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, action.CodeUnsupportedAction, decodeOutcome(t, w).ErrorCode)
}

func TestStaleTimestampIs400(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{Status: action.StatusSent})

	body := validBody(t, func(m map[string]any) {
		m["timestamp"] = time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	})
	w := postAction(srv, body, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, action.CodeStaleTimestamp, decodeOutcome(t, w).ErrorCode)
}

func TestActionAliasReachesDispatcherCanonicalized(t *testing.T) {
	srv, d := newTestServer(action.Outcome{Status: action.StatusSent})

	body := validBody(t, func(m map[string]any) { m["action"] = " Summarise " })
	w := postAction(srv, body, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "summarize", d.gotReq.Action)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(action.Outcome{Status: action.StatusSent})

	postAction(srv, validBody(t, nil), true)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bridge_http_requests_total")
}

func TestRateLimitKicksIn(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ClientKey = testClientKey
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Enabled: true}

	srv := NewServer(cfg, &fakeDispatcher{outcome: action.Outcome{Status: action.StatusSent}},
		monitoring.NewMetrics(), logging.NewNop())

	first := postAction(srv, validBody(t, nil), true)
	second := postAction(srv, validBody(t, nil), true)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
