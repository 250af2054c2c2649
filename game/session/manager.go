package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = service.ErrSessionAlreadyExists
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// idLength is the number of characters kept from a generated UUID
const idLength = 8

// PresenterFactory builds the presenter attached to a new session's engine
type PresenterFactory func(sessionID string) engine.Presenter

// Manager handles game session lifecycle
type Manager struct {
	sessions      map[string]*service.Session
	engineOptions func() []engine.Option
	presenters    PresenterFactory
	now           func() time.Time
	logger        zerolog.Logger
	mu            sync.RWMutex
}

// Option configures a Manager
type Option func(*Manager)

// WithEngineOptions supplies engine tuning for every new session. The function
// is called per session so reloaded settings apply to later games.
func WithEngineOptions(f func() []engine.Option) Option {
	return func(m *Manager) { m.engineOptions = f }
}

// WithPresenterFactory attaches a presenter to every new session
func WithPresenterFactory(f PresenterFactory) Option {
	return func(m *Manager) { m.presenters = f }
}

// WithNow replaces the wall clock used for access times
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager logger. Engines receive a child logger tagged with their session ID.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:      make(map[string]*service.Session),
		engineOptions: func() []engine.Option { return nil },
		now:           time.Now,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID and difficulty. An empty ID
// is replaced by a generated one.
func (m *Manager) Create(id string, difficulty engine.Difficulty) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionIDLocked()
	} else if strings.TrimSpace(id) != id || strings.ContainsAny(id, "/?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionAlreadyExists, id)
	}

	opts := append([]engine.Option{}, m.engineOptions()...)
	opts = append(opts, engine.WithLogger(m.logger.With().Str("session", id).Logger()))
	if m.presenters != nil {
		opts = append(opts, engine.WithPresenter(m.presenters(id)))
	}

	eng, err := engine.NewEngine(difficulty, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	session := service.NewSession(id, eng, m.now())
	m.sessions[strings.ToLower(id)] = session

	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session and closes its engine
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	session, exists := m.sessions[strings.ToLower(id)]
	if exists {
		delete(m.sessions, strings.ToLower(id))
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.Engine.Close()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	session.Touch(m.now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-maxAge)
	var expired []*service.Session
	for key, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, key)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	// engines are closed outside the lock; Close may wait on a presenter
	for _, session := range expired {
		session.Engine.Close()
		m.logger.Debug().Str("session", session.ID).Msg("expired session removed")
	}
	return len(expired)
}

// CloseAll closes every session, used on shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*service.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Engine.Close()
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionIDLocked returns a short unused ID taken from a random UUID
func (m *Manager) generateSessionIDLocked() string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
		if _, exists := m.sessions[id]; !exists {
			return id
		}
	}
}
