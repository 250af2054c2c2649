package service

import (
	"time"

	"github.com/wricardo/memory-match-game/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	Difficulty     engine.Difficulty `json:"difficulty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// SelectResult contains the result of a card selection
type SelectResult struct {
	Card      int               `json:"card"`
	Outcome   engine.Outcome    `json:"outcome"`
	Accepted  bool              `json:"accepted"`
	Resolved  bool              `json:"resolved"` // false while a completed pair is still face up
	GameState *engine.GameState `json:"game_state"`
}

// ListOptions configures session listing
type ListOptions struct {
	Sort  string `json:"sort"`  // "created" or "accessed"
	Order string `json:"order"` // "asc" or "desc"
	Limit int    `json:"limit"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// DifficultyInfo describes a difficulty tier
type DifficultyInfo struct {
	ID        string `json:"id"` // The identifier to use for session creation
	Label     string `json:"label"`
	Pairs     int    `json:"pairs"`
	Cards     int    `json:"cards"`
	Columns   int    `json:"columns"`
	Rows      int    `json:"rows"`
	IsDefault bool   `json:"is_default"`
}
