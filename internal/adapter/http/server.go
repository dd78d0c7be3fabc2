package http

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cwygoda/gather/internal/domain"
)

// Server is the HTTP adapter for the target service.
type Server struct {
	svc     *domain.TargetService
	router  chi.Router
	server  *http.Server
	secret  string
	logger  *zap.Logger
	metrics http.Handler
}

// NewServer creates a new HTTP server. Mutating routes require a signature
// when secret is set. metrics may be nil.
func NewServer(svc *domain.TargetService, addr, secret string, logger *zap.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:     svc,
		router:  chi.NewRouter(),
		secret:  secret,
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Get("/targets", s.handleListTargets)
	s.router.Get("/failures", s.handleListFailures)

	s.router.Group(func(r chi.Router) {
		r.Use(s.verify)
		r.Post("/targets", s.handleAddTargets)
		r.Delete("/targets/{position}", s.handleRemoveTarget)
		r.Post("/runs", s.handleRun)
		r.Delete("/failures", s.handleClearFailures)
	})
}

// addRequest is the request body for POST /targets. Either field may be used.
type addRequest struct {
	URL  string   `json:"url"`
	URLs []string `json:"urls"`
}

// runRequest is the request body for POST /runs.
type runRequest struct {
	Task string `json:"task"`
}

// runResponse is the JSON response for POST /runs.
type runResponse struct {
	Failures    []domain.Failure `json:"failures"`
	Interrupted bool             `json:"interrupted,omitempty"`
}

// errorResponse is the JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAddTargets(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	urls := req.URLs
	if req.URL != "" {
		urls = append(urls, req.URL)
	}
	if len(urls) == 0 {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	added, err := s.svc.Add(r.Context(), urls...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.internalError(w, r, "add targets", err)
		return
	}
	if len(added) == 0 {
		s.writeError(w, http.StatusConflict, domain.ErrDuplicateTarget.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	entries := s.svc.List()
	if entries == nil {
		entries = []domain.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRemoveTarget(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid position")
		return
	}

	if err := s.svc.Remove(r.Context(), pos); err != nil {
		if errors.Is(err, domain.ErrPositionOutOfRange) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.internalError(w, r, "remove target", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	task, err := domain.ParseTask(req.Task)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	failures, err := s.svc.Run(r.Context(), task)
	resp := runResponse{Failures: failures}
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConfiguration):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case domain.IsInterrupted(err):
		resp.Interrupted = true
	default:
		s.internalError(w, r, "run", err)
		return
	}
	if resp.Failures == nil {
		resp.Failures = []domain.Failure{}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	failures := s.svc.Failures()
	if failures == nil {
		failures = []domain.Failure{}
	}
	s.writeJSON(w, http.StatusOK, failures)
}

func (s *Server) handleClearFailures(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearFailures(r.Context()); err != nil {
		s.internalError(w, r, "clear failures", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// verify rejects requests without a valid signature when a secret is set.
// The body is restored for the next handler.
func (s *Server) verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		if err := s.verifySignature(r, body); err != nil {
			s.logger.Warn("signature verification failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			s.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

const maxTimestampSkew = 5 * time.Minute

func (s *Server) verifySignature(r *http.Request, body []byte) error {
	timestamp := r.Header.Get("X-Timestamp")
	if timestamp == "" {
		return fmt.Errorf("missing X-Timestamp header")
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return fmt.Errorf("invalid X-Timestamp: must be ISO8601/RFC3339 format")
	}

	skew := time.Since(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimestampSkew {
		return fmt.Errorf("X-Timestamp too far from current time (skew: %v, max: %v)", skew.Truncate(time.Second), maxTimestampSkew)
	}

	signature := r.Header.Get("X-Signature")
	if signature == "" {
		return fmt.Errorf("missing X-Signature header")
	}

	if signature != Sign(timestamp, body, s.secret) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// Sign returns the hex SHA256 of "${timestamp}\n${body}\n${secret}".
func Sign(timestamp string, body []byte, secret string) string {
	payload := fmt.Sprintf("%s\n%s\n%s", timestamp, body, secret)
	hash := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(hash[:])
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error(op+" failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.server.Addr
}
