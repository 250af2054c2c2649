package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, difficulty string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SelectCard(ctx context.Context, sessionID string, card int, wait bool) (*SelectResult, error)
	Restart(ctx context.Context, sessionID string) (*engine.GameState, error)
	ChangeDifficulty(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, difficulty engine.Difficulty) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager serves the difficulty catalog
type ConfigManager interface {
	ListDifficulties() []*DifficultyInfo
	DefaultDifficulty() engine.Difficulty
}

// MetricsRecorder receives gameplay counters
type MetricsRecorder interface {
	BoardDealt(difficulty engine.Difficulty)
	SelectionHandled(difficulty engine.Difficulty, outcome engine.Outcome)
}

// Session represents an active game session
type Session struct {
	ID        string
	Engine    engine.Engine
	CreatedAt time.Time

	mu             sync.RWMutex
	lastAccessedAt time.Time
}

// NewSession creates a session first accessed at its creation time
func NewSession(id string, eng engine.Engine, createdAt time.Time) *Session {
	return &Session{ID: id, Engine: eng, CreatedAt: createdAt, lastAccessedAt: createdAt}
}

// LastAccessedAt returns when the session was last used
func (s *Session) LastAccessedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccessedAt
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastAccessedAt = t
	s.mu.Unlock()
}
