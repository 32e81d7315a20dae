package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/health"
)

func startTestBroker(t *testing.T) *bus.Broker {
	t.Helper()
	b := bus.NewBroker()
	go b.Run()
	t.Cleanup(func() {
		_ = b.Send(bus.NewEnvelope("", bus.Stop{}))
	})
	return b
}

type stubChecker struct {
	name    string
	healthy bool
}

func (c stubChecker) Name() string { return c.name }
func (c stubChecker) Check(ctx context.Context) health.Result {
	return health.Result{Healthy: c.healthy, Message: "stub", CheckedAt: time.Now()}
}

// toggleChecker lets a test flip health mid-run, unlike stubChecker's
// fixed verdict.
type toggleChecker struct {
	name    string
	healthy bool
}

func (c *toggleChecker) Name() string { return c.name }
func (c *toggleChecker) Check(ctx context.Context) health.Result {
	return health.Result{Healthy: c.healthy, Message: "toggle", CheckedAt: time.Now()}
}

func TestHealthHandlerAllHealthy(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, []health.Checker{stubChecker{name: "broker", healthy: true}}, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.healthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["broker"])
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, []health.Checker{stubChecker{name: "persistence", healthy: false}}, http.NotFoundHandler())

	// DefaultConfig().Retries consecutive failures are required before
	// the accumulated Status flips unhealthy; one bad probe alone must
	// not flip the reported state.
	var w *httptest.ResponseRecorder
	for i := 0; i < health.DefaultConfig().Retries; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w = httptest.NewRecorder()
		srv.healthHandler(w, req)
	}

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "unhealthy", resp.Status)
}

func TestHealthHandlerTransientFailureStaysHealthy(t *testing.T) {
	b := startTestBroker(t)
	checker := &toggleChecker{name: "broker", healthy: true}
	srv := NewServer(b, []health.Checker{checker}, http.NotFoundHandler())

	checker.healthy = false
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.healthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "a single flaky probe must not flip reported health")
}

func TestHealthHandlerRejectsNonGet(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, nil, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()
	srv.healthHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func fakeAuth(t *testing.T, b *bus.Broker, answer func(bus.AuthenticationRequest) bus.AuthenticationResponse) {
	t.Helper()
	_, ch, err := b.Subscribe("^auth$")
	require.NoError(t, err)

	go func() {
		for e := range ch {
			req, ok := e.Body.(bus.AuthenticationRequest)
			if !ok {
				continue
			}
			_ = b.Send(bus.NewEnvelope(bus.ReplyTopic(e.ID), answer(req)))
		}
	}()
}

func TestLoginHandlerSuccess(t *testing.T) {
	b := startTestBroker(t)
	fakeAuth(t, b, func(req bus.AuthenticationRequest) bus.AuthenticationResponse {
		return bus.AuthenticationResponse{Token: "tok-123"}
	})
	srv := NewServer(b, nil, http.NotFoundHandler())

	body, _ := json.Marshal(loginRequest{User: "alice", Password: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.loginHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "tok-123", resp.Token)
	assert.Empty(t, resp.Error)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	b := startTestBroker(t)
	fakeAuth(t, b, func(req bus.AuthenticationRequest) bus.AuthenticationResponse {
		return bus.AuthenticationResponse{Err: "bad password"}
	})
	srv := NewServer(b, nil, http.NotFoundHandler())

	body, _ := json.Marshal(loginRequest{User: "alice", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.loginHandler(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Token)
}

func TestLoginHandlerRejectsMalformedBody(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, nil, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	srv.loginHandler(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginHandlerRejectsNonPost(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, nil, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()
	srv.loginHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServerRoutesRegistered(t *testing.T) {
	b := startTestBroker(t)
	srv := NewServer(b, []health.Checker{stubChecker{name: "broker", healthy: true}}, http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
