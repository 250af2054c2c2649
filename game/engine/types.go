package engine

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty selects the board size for a game
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"

	// Game constants
	SymbolCount         = 12
	DefaultRevealDelay  = time.Second
	DefaultTickInterval = time.Second
	MaxSelection        = 2
	WebSocketBufferSize = 256
)

// DefaultSymbols is the card alphabet used when no other is configured
var DefaultSymbols = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}

var difficultyPairs = map[Difficulty]int{
	Easy:   6,
	Medium: 8,
	Hard:   12,
}

// difficultyColumns is the grid width each board is drawn with
var difficultyColumns = map[Difficulty]int{
	Easy:   4,
	Medium: 4,
	Hard:   6,
}

// Difficulties returns all tiers ordered from smallest to largest board
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty converts user input into a Difficulty
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
	return d, nil
}

// Valid reports whether d is one of the known tiers
func (d Difficulty) Valid() bool {
	_, ok := difficultyPairs[d]
	return ok
}

// PairCount returns the number of matching pairs on the board, or 0 for an unknown tier
func (d Difficulty) PairCount() int {
	return difficultyPairs[d]
}

// CardCount returns the number of cards on the board
func (d Difficulty) CardCount() int {
	return 2 * d.PairCount()
}

// Layout returns the display grid as columns x rows
func (d Difficulty) Layout() (columns, rows int) {
	columns = difficultyColumns[d]
	if columns == 0 {
		return 0, 0
	}
	return columns, d.CardCount() / columns
}

// Label returns the capitalized name shown in completion summaries
func (d Difficulty) Label() string {
	if d == "" {
		return ""
	}
	s := string(d)
	return strings.ToUpper(s[:1]) + s[1:]
}

// CardState is the face state of a single card
type CardState string

const (
	Hidden   CardState = "hidden"
	Revealed CardState = "revealed"
	Matched  CardState = "matched"
)

// Phase is the coarse lifecycle state of a game
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseActive    Phase = "active"
	PhaseResolving Phase = "resolving"
	PhaseWon       Phase = "won"
)

// Outcome describes what a card selection did
type Outcome string

const (
	OutcomeRevealed        Outcome = "revealed"
	OutcomePairComplete    Outcome = "pair_complete"
	OutcomeBusy            Outcome = "busy"
	OutcomeAlreadyRevealed Outcome = "already_revealed"
	OutcomeAlreadyMatched  Outcome = "already_matched"
	OutcomeGameOver        Outcome = "game_over"
)

// Accepted reports whether the selection changed the board
func (o Outcome) Accepted() bool {
	return o == OutcomeRevealed || o == OutcomePairComplete
}

// Card represents a single card on the board
type Card struct {
	ID     int       `json:"id"`
	Symbol string    `json:"symbol,omitempty"`
	State  CardState `json:"state"`
}

// GameState is a point-in-time snapshot of a game
type GameState struct {
	Difficulty      Difficulty `json:"difficulty"`
	DifficultyLabel string     `json:"difficulty_label"`
	Phase           Phase      `json:"phase"`
	Cards           []Card     `json:"cards"`
	Selection       []int      `json:"selection"`
	MatchedPairs    int        `json:"matched_pairs"`
	TotalPairs      int        `json:"total_pairs"`
	Moves           int        `json:"moves"`
	Elapsed         string     `json:"elapsed"`
	ElapsedMS       int64      `json:"elapsed_ms"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Won             bool       `json:"won"`
}

// Masked returns a copy of the state with the symbols of hidden cards removed,
// suitable for sending to remote players
func (gs *GameState) Masked() *GameState {
	masked := *gs
	masked.Cards = MaskCards(gs.Cards)
	masked.Selection = append([]int(nil), gs.Selection...)
	return &masked
}

// MaskCards copies cards, blanking the symbol of every hidden card
func MaskCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		if c.State == Hidden {
			c.Symbol = ""
		}
		out[i] = c
	}
	return out
}

// MoveHistoryEntry records one completed two-card selection
type MoveHistoryEntry struct {
	MoveNumber   int    `json:"move_number"`
	FirstCard    int    `json:"first_card"`
	SecondCard   int    `json:"second_card"`
	FirstSymbol  string `json:"first_symbol"`
	SecondSymbol string `json:"second_symbol"`
	Matched      bool   `json:"matched"`
	ElapsedMS    int64  `json:"elapsed_ms"`
	Timestamp    int64  `json:"timestamp"`
}
