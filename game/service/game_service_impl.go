package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	metrics  MetricsRecorder
	logger   zerolog.Logger
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithMetrics records board and selection counters
func WithMetrics(m MetricsRecorder) Option {
	return func(s *gameServiceImpl) { s.metrics = m }
}

// WithLogger sets the service logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		metrics:  nopMetrics{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session. An empty difficulty selects the configured default.
func (s *gameServiceImpl) CreateSession(ctx context.Context, difficulty string) (*SessionInfo, error) {
	d, err := s.resolveDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create("", d)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.metrics.BoardDealt(d)
	s.logger.Info().Str("session", session.ID).Str("difficulty", string(d)).Msg("session created")

	return toSessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionInfo(session), nil
}

// ListSessions returns active sessions, most recently created first unless opts say otherwise
func (s *gameServiceImpl) ListSessions(ctx context.Context, opts ListOptions) ([]*SessionInfo, error) {
	sessions := s.sessions.List()

	byAccess := strings.EqualFold(opts.Sort, "accessed")
	asc := strings.EqualFold(opts.Order, "asc")
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i].CreatedAt, sessions[j].CreatedAt
		if byAccess {
			a, b = sessions[i].LastAccessedAt(), sessions[j].LastAccessedAt()
		}
		if asc {
			return a.Before(b)
		}
		return a.After(b)
	})
	if opts.Limit > 0 && len(sessions) > opts.Limit {
		sessions = sessions[:opts.Limit]
	}

	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, toSessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its timers
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// SelectCard flips a card. With wait set, a selection that completes a pair
// blocks until the pair has been resolved or ctx ends.
func (s *gameServiceImpl) SelectCard(ctx context.Context, sessionID string, card int, wait bool) (*SelectResult, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Engine.SelectCard(card)
	if err != nil {
		return nil, fmt.Errorf("select card %d: %w", card, err)
	}
	s.metrics.SelectionHandled(sess.Engine.GetDifficulty(), outcome)

	if wait && outcome == engine.OutcomePairComplete {
		if err := sess.Engine.AwaitResolution(ctx); err != nil {
			return nil, fmt.Errorf("waiting for pair evaluation: %w", err)
		}
	}

	state := sess.Engine.GetState().Masked()
	s.logger.Debug().
		Str("session", sess.ID).
		Int("card", card).
		Str("outcome", string(outcome)).
		Int("moves", state.Moves).
		Msg("card selected")

	return &SelectResult{
		Card:      card,
		Outcome:   outcome,
		Accepted:  outcome.Accepted(),
		Resolved:  state.Phase != engine.PhaseResolving,
		GameState: state,
	}, nil
}

// Restart deals a new board at the current difficulty
func (s *gameServiceImpl) Restart(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.Restart(); err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}
	s.metrics.BoardDealt(sess.Engine.GetDifficulty())
	return sess.Engine.GetState().Masked(), nil
}

// ChangeDifficulty deals a new board at another difficulty
func (s *gameServiceImpl) ChangeDifficulty(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error) {
	d, err := engine.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.Initialize(d); err != nil {
		return nil, fmt.Errorf("change difficulty: %w", err)
	}
	s.metrics.BoardDealt(d)
	s.logger.Info().Str("session", sess.ID).Str("difficulty", string(d)).Msg("difficulty changed")
	return sess.Engine.GetState().Masked(), nil
}

// GetGameState retrieves the current game state with hidden symbols masked
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState().Masked(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListDifficulties returns the difficulty catalog
func (s *gameServiceImpl) ListDifficulties(ctx context.Context) ([]*DifficultyInfo, error) {
	return s.configs.ListDifficulties(), nil
}

// touch looks up a session and records the access
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *gameServiceImpl) resolveDifficulty(name string) (engine.Difficulty, error) {
	if strings.TrimSpace(name) == "" {
		return s.configs.DefaultDifficulty(), nil
	}
	return engine.ParseDifficulty(name)
}

func toSessionInfo(sess *Session) *SessionInfo {
	state := sess.Engine.GetState().Masked()
	return &SessionInfo{
		ID:             sess.ID,
		Difficulty:     state.Difficulty,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		GameState:      state,
	}
}

type nopMetrics struct{}

func (nopMetrics) BoardDealt(engine.Difficulty)                       {}
func (nopMetrics) SelectionHandled(engine.Difficulty, engine.Outcome) {}
