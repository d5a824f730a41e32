package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/isseis/go-safe-pty-guard/internal/guard/dispatch"
	"github.com/isseis/go-safe-pty-guard/internal/guard/environment"
	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

type stubProcess struct{}

func (stubProcess) Pid() int { return 1234 }

type stubSpawner struct{}

func (stubSpawner) Spawn(context.Context, dispatch.SpawnSpec) (dispatch.Process, error) {
	return stubProcess{}, nil
}

type stubLauncher struct{ opened []string }

func (l *stubLauncher) Open(_ context.Context, rawURL string) error {
	l.opened = append(l.opened, rawURL)
	return nil
}

func newTestServer(t *testing.T, profiles map[dispatch.Channel]ratelimit.Config) (*Server, *stubLauncher) {
	t.Helper()
	launcher := &stubLauncher{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := dispatch.New(ratelimit.New(), dispatch.Options{
		Profiles: profiles,
		HostEnv:  map[string]string{"PATH": "/bin"},
		Platform: environment.PlatformPOSIX,
		Shell:    "/bin/sh",
		Spawner:  stubSpawner{},
		Launcher: launcher,
		Clock:    func() time.Time { return now },
	})
	return NewServer(d, testToken, nil), launcher
}

func do(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeDecision(t *testing.T, rec *httptest.ResponseRecorder) dispatch.Decision {
	t.Helper()
	var decision dispatch.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	return decision
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthentication(t *testing.T) {
	s, _ := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/v1/channels/pty-write", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/v1/channels/pty-write", "", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/v1/limits", "", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/channels/pty-write", "", testToken).Code)
}

func TestEmptyServerTokenRejectsEverything(t *testing.T) {
	d := dispatch.New(nil, dispatch.Options{})
	s := NewServer(d, "", nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodPost, "/v1/channels/pty-write", "", "").Code)
}

func TestDispatch_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		allowed    bool
	}{
		{name: "create pty", path: "/v1/channels/pty-create", body: `{"cols":80,"rows":24}`, wantStatus: http.StatusOK, allowed: true},
		{name: "open https", path: "/v1/channels/open-external", body: `{"url":"https://example.com"}`, wantStatus: http.StatusOK, allowed: true},
		{name: "open javascript", path: "/v1/channels/open-external", body: `{"url":"javascript:alert(1)"}`, wantStatus: http.StatusBadRequest},
		{name: "unknown channel", path: "/v1/channels/run-anything", body: `{}`, wantStatus: http.StatusNotFound},
		{name: "bad payload", path: "/v1/channels/pty-create", body: `{"cwd":1}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, nil)
			rec := do(t, s, http.MethodPost, tt.path, tt.body, testToken)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.allowed, decodeDecision(t, rec).Allowed)
		})
	}
}

func TestDispatch_RateLimitedReturns429(t *testing.T) {
	s, _ := newTestServer(t, map[dispatch.Channel]ratelimit.Config{
		dispatch.ChannelPTYResize: {MaxTokens: 1, RefillRate: 0},
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/channels/pty-resize", "", testToken).Code)
	rec := do(t, s, http.MethodPost, "/v1/channels/pty-resize", "", testToken)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limited", decodeDecision(t, rec).Reason)
}

func TestDispatch_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/v1/channels/pty-create", "", testToken)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDispatch_BodyTooLarge(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := `{"url":"https://example.com/` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := do(t, s, http.MethodPost, "/v1/channels/open-external", body, testToken)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDispatch_BodyReadFailure(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/channels/pty-create", iotest.ErrReader(errors.New("connection reset")))
	req.Header.Set(TokenHeader, testToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to read request body")
}

func TestLimitsAndReset(t *testing.T) {
	s, _ := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/channels/pty-kill", "", testToken).Code)

	rec := do(t, s, http.MethodGet, "/v1/limits", "", testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var body limitsBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Buckets, "pty-kill")

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodPost, "/v1/limits/reset", "", testToken).Code)

	rec = do(t, s, http.MethodGet, "/v1/limits", "", testToken)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Buckets)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusNotImplemented, statusFor(dispatch.ErrNotConfigured))
	assert.Equal(t, http.StatusInternalServerError, statusFor(dispatch.ErrSpawnFailed))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(&dispatch.RateLimitedError{Channel: dispatch.ChannelPTYWrite}))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
