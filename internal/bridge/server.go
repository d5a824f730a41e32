// Package bridge exposes the dispatcher to the embedded terminal UI over a
// loopback HTTP endpoint. It is only a transport: every decision is made by
// the dispatcher and its guards.
package bridge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/isseis/go-safe-pty-guard/internal/guard/dispatch"
	"github.com/isseis/go-safe-pty-guard/internal/guard/ratelimit"
)

// TokenHeader carries the per-run bridge token.
const TokenHeader = "X-Guard-Token"

const (
	maxBodyBytes      = 1 << 20
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves dispatcher calls over HTTP.
type Server struct {
	dispatcher *dispatch.Dispatcher
	token      string
	logger     *slog.Logger
	router     *mux.Router
}

// NewServer creates a Server for d. Every request except /healthz must carry
// token in the X-Guard-Token header, so that web pages able to reach the
// loopback port cannot drive the dispatcher. If logger is nil, slog.Default() is used.
func NewServer(d *dispatch.Dispatcher, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		dispatcher: d,
		token:      token,
		logger:     logger,
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler of the bridge.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(s.authenticate)
	api.HandleFunc("/channels/{channel}", s.handleDispatch).Methods(http.MethodPost)
	api.HandleFunc("/limits", s.handleLimits).Methods(http.MethodGet)
	api.HandleFunc("/limits/reset", s.handleReset).Methods(http.MethodPost)
	return r
}

// authenticate rejects requests without the bridge token. An empty server token rejects everything.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(TokenHeader)
		if s.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			s.logger.Warn("Bridge request rejected", "path", r.URL.Path, "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing or invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("Bridge listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return
		}
		s.logger.Debug("Failed to read request body", "channel", channel, "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
		return
	}

	decision, err := s.dispatcher.Dispatch(r.Context(), channel, payload)
	writeJSON(w, statusFor(err), decision)
}

func (s *Server) handleLimits(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, limitsBody{Buckets: s.dispatcher.Limits()})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.dispatcher.ResetLimits()
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps a dispatch error to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, dispatch.ErrUnknownChannel):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, dispatch.ErrInvalidPayload), errors.Is(err, dispatch.ErrUnsafeURL):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrNotConfigured):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type limitsBody struct {
	Buckets map[string]ratelimit.BucketState `json:"buckets"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
