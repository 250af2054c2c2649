package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
	"github.com/wricardo/memory-match-game/transport/websocket"
)

var validate = validator.New()

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	metrics http.Handler
	logger  zerolog.Logger
}

// Option configures the server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetricsHandler mounts h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewServer creates a new API server. When hub is non-nil the server also
// handles the actions its WebSocket clients send.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	if hub != nil {
		hub.SetHandler(s)
	}
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/select", s.handleSelectCard).Methods("POST")
	api.HandleFunc("/sessions/{id}/restart", s.handleRestart).Methods("POST")
	api.HandleFunc("/sessions/{id}/difficulty", s.handleChangeDifficulty).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Configuration
	api.HandleFunc("/difficulties", s.handleListDifficulties).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors to HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrUnknownDifficulty), errors.Is(err, engine.ErrUnknownCard):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrEngineClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads an optional JSON body into dst and validates it
func decodeBody(r *http.Request, dst any) error {
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("invalid request body: %w", err)
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// Request bodies

type createSessionRequest struct {
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,max=16"`
}

type selectCardRequest struct {
	Card *int `json:"card" validate:"required,min=0"`
	Wait bool `json:"wait,omitempty"`
}

type changeDifficultyRequest struct {
	Difficulty string `json:"difficulty" validate:"required,max=16"`
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.Difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Sort:  query.Get("sort"),  // "created" (default), "accessed"
		Order: query.Get("order"), // "asc", "desc" (default)
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	sessions, err := s.service.ListSessions(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetGameState(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSelectCard(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req selectCardRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.SelectCard(r.Context(), sessionID, *req.Card, req.Wait)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Restart(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleChangeDifficulty(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req changeDifficultyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.service.ChangeDifficulty(r.Context(), sessionID, req.Difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	query := r.URL.Query()
	opts := service.HistoryOptions{Order: query.Get("order")}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		opts.Limit = limit
	}

	history, err := s.service.GetMoveHistory(r.Context(), sessionID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Configuration Handlers

func (s *Server) handleListDifficulties(w http.ResponseWriter, r *http.Request) {
	difficulties, err := s.service.ListDifficulties(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"difficulties": difficulties,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusNotImplemented, "websocket transport disabled")
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	// Verify session exists
	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.hub.ServeWS(w, r, info.ID, func() any {
		state, err := s.service.GetGameState(context.Background(), info.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("session", info.ID).Msg("websocket snapshot failed")
			return nil
		}
		return state
	})
}

// HandleClientMessage applies an action received over a WebSocket. Results
// reach clients through the session presenter, so selections do not wait.
func (s *Server) HandleClientMessage(ctx context.Context, sessionID string, msg *websocket.ClientMessage) error {
	var err error
	switch msg.Action {
	case websocket.ActionSelect:
		if msg.Card == nil {
			return errors.New("select requires a card")
		}
		_, err = s.service.SelectCard(ctx, sessionID, *msg.Card, false)
	case websocket.ActionRestart:
		_, err = s.service.Restart(ctx, sessionID)
	case websocket.ActionDifficulty:
		_, err = s.service.ChangeDifficulty(ctx, sessionID, msg.Difficulty)
	default:
		err = fmt.Errorf("unknown action %q", msg.Action)
	}
	return err
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusRecorder captures the response status for request logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
