package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"skymap/internal/config"
	"skymap/internal/orchestrator"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// CSRFHeader carries the anti-forgery token on protected requests.
const CSRFHeader = "X-Skymap-Csrf"

const shutdownTimeout = 5 * time.Second

// AuthService is the orchestrator surface the API exposes.
type AuthService interface {
	SignIn(ctx context.Context, slot auth.Slot) (auth.DeviceCodePrompt, error)
	SignOut(slot auth.Slot) error
	SignOutAll() error
	Status(slot auth.Slot) (auth.SlotStatus, error)
	StatusAll() auth.StatusResponse
	GetValidToken(ctx context.Context, slot auth.Slot, expectedTenantID string) (*orchestrator.TokenInfo, error)
}

// Server is the local HTTP API.
type Server struct {
	cfg     config.ServerConfig
	service AuthService

	// csrfToken is minted once per process. The UI fetches it from the
	// csrf endpoint and replays it on protected requests; a page in
	// another origin cannot read it, so it cannot forge a sign-out.
	csrfToken string

	httpServer *http.Server
}

// New creates the server. The listen address is validated at config load
// time to be loopback-only.
func New(cfg config.ServerConfig, service AuthService) *Server {
	s := &Server{
		cfg:       cfg,
		service:   service,
		csrfToken: uuid.NewString(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/auth/csrf", s.handleCSRF)
	mux.HandleFunc("GET /api/auth/status", s.handleStatus)
	mux.HandleFunc("GET /api/auth/device-code", s.handleDeviceCodeStatus)
	mux.HandleFunc("POST /api/auth/device-code", s.requireCSRF(s.handleDeviceCode))
	mux.HandleFunc("POST /api/auth/sign-out", s.requireCSRF(s.handleSignOut))
	mux.HandleFunc("GET /api/auth/token", s.requireCSRF(s.handleToken))

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "API listening on %s", s.cfg.ListenAddr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("Server", "API shut down")
	return nil
}
