// Package server exposes the orrery over HTTP: the conversation endpoint,
// the body registry, a live snapshot stream and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
	"solar-system-ai/internal/config"
	"solar-system-ai/internal/metrics"
	"solar-system-ai/internal/sim"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

type Server struct {
	cfg        config.ServerConfig
	relay      chat.Relay
	loop       *sim.Loop
	bodies     []celestial.Body
	metrics    *metrics.MetricsCollector
	limiter    *IPRateLimiter
	hub        *Hub
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer wires the HTTP surface to a relay and a frame loop. It registers
// its frame hooks on loop, so it must be called before loop.Run.
func NewServer(cfg config.ServerConfig, relay chat.Relay, loop *sim.Loop, bodies []celestial.Body, m *metrics.MetricsCollector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		relay:   relay,
		loop:    loop,
		bodies:  bodies,
		metrics: m,
		limiter: newPerMinuteLimiter(cfg.RatePerMinute),
		hub:     NewHub(cfg.StreamEvery, logger),
		logger:  logger,
	}

	loop.OnFrame(func(*sim.State, float64) { m.RecordFrame() })
	loop.OnFrame(s.hub.Publish)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask-planet", s.handleAskPlanet)
	mux.HandleFunc("GET /bodies", s.handleBodies)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.withRequestID(s.withCORS(mux))
}

// Hub returns the snapshot stream hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the fixed port and blocks until Shutdown. It serves HTTPS
// when TLS hosts are configured.
func (s *Server) Start() error {
	tlsConfig, err := setupTLS(s.cfg.TLS, s.logger)
	if err != nil {
		return err
	}

	if tlsConfig != nil {
		s.httpServer.TLSConfig = tlsConfig
		s.logger.Info("Starting HTTPS server", zap.String("addr", s.httpServer.Addr), zap.Strings("hosts", s.cfg.TLS.Hosts))
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		err = s.httpServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	origin := s.cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		h.Set("Access-Control-Expose-Headers", RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type askRequest struct {
	Message string `json:"message"`
	Planet  string `json:"planet"`
}

type askResponse struct {
	Response string `json:"response"`
}

// unknownBody labels asks whose planet is not in the registry
const unknownBody = "unknown"

// bodyLabel maps a requested planet onto a bounded set of metric labels
func (s *Server) bodyLabel(planet string) string {
	if body, ok := celestial.FindObjectByName(s.bodies, planet); ok {
		return body.Name
	}
	return unknownBody
}

// handleAskPlanet relays one message and answers with the body's reply.
// Downstream failures are logged and reported only as a generic 500.
func (s *Server) handleAskPlanet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := w.Header().Get(RequestIDHeader)

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordAsk(unknownBody, metrics.OutcomeBadRequest, time.Since(start))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if s.limiter != nil && !s.limiter.Allow(r) {
		s.metrics.RecordAsk(s.bodyLabel(req.Planet), metrics.OutcomeRateLimited, time.Since(start))
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	reply, err := s.relay.Reply(r.Context(), req.Planet, req.Message)
	if err != nil {
		s.logger.Error("Relay failed",
			zap.String("request_id", requestID),
			zap.String("planet", req.Planet),
			zap.Error(err))
		s.metrics.RecordAsk(s.bodyLabel(req.Planet), metrics.OutcomeError, time.Since(start))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(chat.FailureMessage))
		return
	}

	s.metrics.RecordAsk(s.bodyLabel(req.Planet), metrics.OutcomeOK, time.Since(start))
	s.logger.Debug("Relay answered",
		zap.String("request_id", requestID),
		zap.String("planet", req.Planet),
		zap.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, askResponse{Response: reply})
}

type bodiesResponse struct {
	Sun    sunInfo          `json:"sun"`
	Bodies []celestial.Body `json:"bodies"`
}

type sunInfo struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
}

func (s *Server) handleBodies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bodiesResponse{
		Sun:    sunInfo{Name: celestial.SunName, Radius: celestial.SunRadius},
		Bodies: s.bodies,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
