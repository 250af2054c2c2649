package websocket

import (
	"sync"

	"github.com/wricardo/memory-match-game/game/engine"
)

// BoardEvent carries a freshly dealt board, symbols masked
type BoardEvent struct {
	Cards []engine.Card `json:"cards"`
}

// CardEvent reports one card's new state. Symbol is set for face-up cards.
type CardEvent struct {
	Card   int              `json:"card"`
	State  engine.CardState `json:"state"`
	Symbol string           `json:"symbol,omitempty"`
}

// StatsEvent reports the counters
type StatsEvent struct {
	Moves        int `json:"moves"`
	MatchedPairs int `json:"matched_pairs"`
}

// TimerEvent reports the timer display
type TimerEvent struct {
	Elapsed string `json:"elapsed"`
}

// CompletedEvent reports a won game
type CompletedEvent struct {
	Elapsed    string `json:"elapsed"`
	Moves      int    `json:"moves"`
	Difficulty string `json:"difficulty"`
}

// sessionPresenter turns engine presenter calls into hub events
type sessionPresenter struct {
	hub       *Hub
	sessionID string

	mu      sync.Mutex
	symbols []string
}

// Presenter returns an engine.Presenter broadcasting to the clients of sessionID
func (h *Hub) Presenter(sessionID string) engine.Presenter {
	return &sessionPresenter{hub: h, sessionID: sessionID}
}

func (p *sessionPresenter) RenderBoard(cards []engine.Card) {
	p.mu.Lock()
	p.symbols = make([]string, len(cards))
	for i, c := range cards {
		p.symbols[i] = c.Symbol
	}
	p.mu.Unlock()

	p.hub.BroadcastEvent(p.sessionID, EventBoard, BoardEvent{Cards: engine.MaskCards(cards)})
}

func (p *sessionPresenter) RenderCardState(id int, state engine.CardState) {
	event := CardEvent{Card: id, State: state}
	if state != engine.Hidden {
		p.mu.Lock()
		if id >= 0 && id < len(p.symbols) {
			event.Symbol = p.symbols[id]
		}
		p.mu.Unlock()
	}
	p.hub.BroadcastEvent(p.sessionID, EventCard, event)
}

func (p *sessionPresenter) UpdateStats(moves, matchedPairs int) {
	p.hub.BroadcastEvent(p.sessionID, EventStats, StatsEvent{Moves: moves, MatchedPairs: matchedPairs})
}

func (p *sessionPresenter) UpdateTimerDisplay(elapsed string) {
	p.hub.BroadcastEvent(p.sessionID, EventTimer, TimerEvent{Elapsed: elapsed})
}

func (p *sessionPresenter) ShowCompletion(elapsed string, moves int, difficultyLabel string) {
	p.hub.BroadcastEvent(p.sessionID, EventCompleted, CompletedEvent{
		Elapsed:    elapsed,
		Moves:      moves,
		Difficulty: difficultyLabel,
	})
}
