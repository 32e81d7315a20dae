package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/cuemby/busline/pkg/bus"
	"github.com/cuemby/busline/pkg/health"
	"github.com/cuemby/busline/pkg/log"
	"github.com/cuemby/busline/pkg/metrics"
)

// Server wires /health, /auth/login, /rtc, and /metrics onto a ServeMux.
type Server struct {
	broker       *bus.Broker
	checkers     []health.Checker
	healthConfig health.Config
	mux          *http.ServeMux
	rtc          http.Handler

	statusMu sync.Mutex
	statuses map[string]*health.Status
}

// NewServer builds a Server backed by broker for /auth/login requests,
// checkers for /health, and rtc (typically a *wsgateway.Gateway) for
// /rtc. Each checker gets its own accumulating Status, so one flaky
// probe doesn't flip the reported health until it fails
// DefaultConfig().Retries times in a row.
func NewServer(broker *bus.Broker, checkers []health.Checker, rtc http.Handler) *Server {
	statuses := make(map[string]*health.Status, len(checkers))
	for _, c := range checkers {
		statuses[c.Name()] = health.NewStatus()
	}

	s := &Server{
		broker:       broker,
		checkers:     checkers,
		healthConfig: health.DefaultConfig(),
		mux:          http.NewServeMux(),
		rtc:          rtc,
		statuses:     statuses,
	}

	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/auth/login", s.loginHandler)
	s.mux.Handle("/rtc", s.rtc)
	s.mux.Handle("/metrics", metrics.Handler())

	return s
}

// Start runs the server on addr and blocks until it exits.
func (s *Server) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// Handler returns the mux for embedding in a test server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string, len(s.checkers))
	healthy := true

	for _, c := range s.checkers {
		result := c.Check(r.Context())

		s.statusMu.Lock()
		status := s.statuses[c.Name()]
		status.Update(result, s.healthConfig)
		inStartPeriod := status.InStartPeriod(s.healthConfig)
		checkHealthy := status.Healthy || inStartPeriod
		s.statusMu.Unlock()

		if checkHealthy {
			checks[c.Name()] = "ok"
		} else {
			checks[c.Name()] = result.Message
			healthy = false
		}
	}

	status := http.StatusOK
	body := healthResponse{Status: "ok"}
	if len(checks) > 0 {
		body.Checks = checks
	}
	if !healthy {
		status = http.StatusServiceUnavailable
		body.Status = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("httpapi")

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoginError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reply, err := s.broker.Request(ctx, bus.NewRequest("auth", bus.AuthenticationRequest{
		User:     req.User,
		Password: req.Password,
	}))
	if err != nil || reply == nil {
		logger.Warn().Err(err).Str("user", req.User).Msg("login request failed")
		writeLoginError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}

	resp, ok := reply.Body.(bus.AuthenticationResponse)
	if !ok {
		writeLoginError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}
	if resp.Err != "" {
		writeLoginError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(loginResponse{Token: resp.Token})
}

func writeLoginError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(loginResponse{Error: message})
}
