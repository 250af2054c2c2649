package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrUnknownCard       = errors.New("unknown card")
	ErrEngineClosed      = errors.New("engine closed")
)

// Engine provides the main interface for game operations
type Engine interface {
	// Lifecycle
	Initialize(d Difficulty) error
	Restart() error
	Close()

	// Input
	SelectCard(id int) (Outcome, error)
	AwaitResolution(ctx context.Context) error

	// State
	GetState() *GameState
	GetDifficulty() Difficulty
	GetPhase() Phase
	GetMoves() int
	GetMatchedPairs() int
	GetElapsed() time.Duration
	GetMoveHistory() []MoveHistoryEntry
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(e *GameEngine) { e.clock = c }
}

// WithSource replaces the shuffle randomness
func WithSource(src Source) Option {
	return func(e *GameEngine) { e.rng = src }
}

// WithSymbols replaces the card alphabet
func WithSymbols(symbols []string) Option {
	return func(e *GameEngine) { e.symbols = append([]string(nil), symbols...) }
}

// WithRevealDelay sets how long a completed pair stays face up before it resolves
func WithRevealDelay(d time.Duration) Option {
	return func(e *GameEngine) { e.revealDelay = d }
}

// WithTickInterval sets the timer display refresh period
func WithTickInterval(d time.Duration) Option {
	return func(e *GameEngine) { e.tickInterval = d }
}

// WithPresenter sets the display collaborator
func WithPresenter(p Presenter) Option {
	return func(e *GameEngine) { e.presenter = p }
}

// WithLogger sets the engine logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *GameEngine) { e.logger = l }
}

// GameEngine implements the Engine interface. All state is guarded by mu;
// scheduled callbacks carry the generation they were armed in and are
// dropped if the board has been replaced since.
type GameEngine struct {
	mu sync.Mutex

	clock        Clock
	rng          Source
	symbols      []string
	revealDelay  time.Duration
	tickInterval time.Duration
	presenter    Presenter
	logger       zerolog.Logger

	difficulty   Difficulty
	phase        Phase
	cards        []Card
	selection    []int
	matchedPairs int
	moves        int
	startedAt    time.Time
	finishedAt   time.Time
	history      []MoveHistoryEntry

	generation uint64
	tickTimer  Timer
	evalTimer  Timer
	resolved   chan struct{}
	pending    bool
	closed     bool
}

// NewEngine creates an engine and initializes a board for the difficulty
func NewEngine(d Difficulty, opts ...Option) (*GameEngine, error) {
	e := &GameEngine{
		clock:        SystemClock{},
		rng:          globalSource{},
		symbols:      append([]string(nil), DefaultSymbols...),
		revealDelay:  DefaultRevealDelay,
		tickInterval: DefaultTickInterval,
		presenter:    NopPresenter{},
		logger:       zerolog.Nop(),
		resolved:     closedChan(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := ValidateSymbols(e.symbols); err != nil {
		return nil, err
	}
	if e.revealDelay <= 0 {
		return nil, fmt.Errorf("reveal delay must be positive, got %s", e.revealDelay)
	}
	if e.tickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", e.tickInterval)
	}
	if e.presenter == nil {
		e.presenter = NopPresenter{}
	}

	if err := e.Initialize(d); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize discards the current game and deals a new board
func (e *GameEngine) Initialize(d Difficulty) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeLocked(d)
}

// Restart deals a new board at the current difficulty
func (e *GameEngine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initializeLocked(e.difficulty)
}

func (e *GameEngine) initializeLocked(d Difficulty) error {
	if e.closed {
		return ErrEngineClosed
	}
	cards, err := NewBoard(d, e.symbols, e.rng)
	if err != nil {
		return err
	}

	e.stopTimersLocked()
	e.generation++
	e.settleLocked()

	e.difficulty = d
	e.phase = PhaseIdle
	e.cards = cards
	e.selection = e.selection[:0]
	e.matchedPairs = 0
	e.moves = 0
	e.startedAt = time.Time{}
	e.finishedAt = time.Time{}
	e.history = nil

	e.presenter.RenderBoard(copyCards(e.cards))
	e.presenter.UpdateStats(0, 0)
	e.presenter.UpdateTimerDisplay(FormatElapsed(0))

	e.logger.Debug().
		Str("difficulty", string(d)).
		Int("cards", len(cards)).
		Msg("board dealt")
	return nil
}

// SelectCard flips a card. Selections that the admission rules reject are
// reported through the Outcome and leave the game unchanged.
func (e *GameEngine) SelectCard(id int) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", ErrEngineClosed
	}
	if id < 0 || id >= len(e.cards) {
		return "", fmt.Errorf("%w: %d (board has %d cards)", ErrUnknownCard, id, len(e.cards))
	}
	if e.phase == PhaseWon {
		return OutcomeGameOver, nil
	}

	if e.phase == PhaseIdle {
		e.startedAt = e.clock.Now()
		e.phase = PhaseActive
		e.scheduleTickLocked()
		e.logger.Debug().Str("difficulty", string(e.difficulty)).Msg("timer started")
	}

	if len(e.selection) >= MaxSelection {
		return OutcomeBusy, nil
	}
	switch e.cards[id].State {
	case Revealed:
		return OutcomeAlreadyRevealed, nil
	case Matched:
		return OutcomeAlreadyMatched, nil
	}

	e.cards[id].State = Revealed
	e.selection = append(e.selection, id)
	e.presenter.RenderCardState(id, Revealed)

	if len(e.selection) < MaxSelection {
		return OutcomeRevealed, nil
	}

	e.moves++
	e.presenter.UpdateStats(e.moves, e.matchedPairs)
	e.phase = PhaseResolving
	e.pending = true
	e.resolved = make(chan struct{})

	gen := e.generation
	e.evalTimer = e.clock.AfterFunc(e.revealDelay, func() { e.resolve(gen) })
	return OutcomePairComplete, nil
}

// resolve compares the two face-up cards once the reveal delay has passed
func (e *GameEngine) resolve(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || len(e.selection) != MaxSelection {
		return
	}
	e.evalTimer = nil

	first, second := e.selection[0], e.selection[1]
	matched := e.cards[first].Symbol == e.cards[second].Symbol

	next := Hidden
	if matched {
		next = Matched
	}
	e.cards[first].State = next
	e.cards[second].State = next
	e.presenter.RenderCardState(first, next)
	e.presenter.RenderCardState(second, next)

	now := e.clock.Now()
	e.history = append(e.history, MoveHistoryEntry{
		MoveNumber:   e.moves,
		FirstCard:    first,
		SecondCard:   second,
		FirstSymbol:  e.cards[first].Symbol,
		SecondSymbol: e.cards[second].Symbol,
		Matched:      matched,
		ElapsedMS:    now.Sub(e.startedAt).Milliseconds(),
		Timestamp:    now.Unix(),
	})

	e.selection = e.selection[:0]
	e.phase = PhaseActive

	if matched {
		e.matchedPairs++
		e.presenter.UpdateStats(e.moves, e.matchedPairs)
		e.checkWinLocked(now)
	}

	e.logger.Debug().
		Int("move", e.moves).
		Bool("matched", matched).
		Int("matched_pairs", e.matchedPairs).
		Msg("pair resolved")

	e.settleLocked()
}

func (e *GameEngine) checkWinLocked(now time.Time) {
	if e.matchedPairs != e.difficulty.PairCount() {
		return
	}
	e.phase = PhaseWon
	e.finishedAt = now
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}

	elapsed := FormatElapsed(e.finishedAt.Sub(e.startedAt))
	e.presenter.UpdateTimerDisplay(elapsed)
	e.presenter.ShowCompletion(elapsed, e.moves, e.difficulty.Label())

	e.logger.Debug().
		Str("difficulty", string(e.difficulty)).
		Int("moves", e.moves).
		Str("elapsed", elapsed).
		Msg("game won")
}

func (e *GameEngine) scheduleTickLocked() {
	gen := e.generation
	e.tickTimer = e.clock.AfterFunc(e.tickInterval, func() { e.tick(gen) })
}

// tick refreshes the timer display and re-arms itself while the game runs
func (e *GameEngine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation || (e.phase != PhaseActive && e.phase != PhaseResolving) {
		return
	}
	e.presenter.UpdateTimerDisplay(FormatElapsed(e.clock.Now().Sub(e.startedAt)))
	e.scheduleTickLocked()
}

// AwaitResolution blocks until no pair evaluation is pending
func (e *GameEngine) AwaitResolution(ctx context.Context) error {
	e.mu.Lock()
	ch := e.resolved
	e.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all timers. The engine rejects further input.
func (e *GameEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.stopTimersLocked()
	e.generation++
	e.settleLocked()
	e.closed = true
}

// GetState returns a snapshot of the current game
func (e *GameEngine) GetState() *GameState {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := e.elapsedLocked()
	state := &GameState{
		Difficulty:      e.difficulty,
		DifficultyLabel: e.difficulty.Label(),
		Phase:           e.phase,
		Cards:           copyCards(e.cards),
		Selection:       append([]int{}, e.selection...),
		MatchedPairs:    e.matchedPairs,
		TotalPairs:      e.difficulty.PairCount(),
		Moves:           e.moves,
		Elapsed:         FormatElapsed(elapsed),
		ElapsedMS:       elapsed.Milliseconds(),
		Won:             e.phase == PhaseWon,
	}
	if !e.startedAt.IsZero() {
		started := e.startedAt
		state.StartedAt = &started
	}
	if !e.finishedAt.IsZero() {
		finished := e.finishedAt
		state.FinishedAt = &finished
	}
	return state
}

// GetDifficulty returns the difficulty of the current board
func (e *GameEngine) GetDifficulty() Difficulty {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

// GetPhase returns the current phase
func (e *GameEngine) GetPhase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// GetMoves returns the number of completed pair selections
func (e *GameEngine) GetMoves() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moves
}

// GetMatchedPairs returns the number of pairs found
func (e *GameEngine) GetMatchedPairs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchedPairs
}

// GetElapsed returns the time since the first selection, frozen once the game is won
func (e *GameEngine) GetElapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsedLocked()
}

// GetMoveHistory returns the resolved pairs of the current board
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]MoveHistoryEntry(nil), e.history...)
}

func (e *GameEngine) elapsedLocked() time.Duration {
	switch {
	case e.startedAt.IsZero():
		return 0
	case !e.finishedAt.IsZero():
		return e.finishedAt.Sub(e.startedAt)
	default:
		return e.clock.Now().Sub(e.startedAt)
	}
}

func (e *GameEngine) stopTimersLocked() {
	if e.tickTimer != nil {
		e.tickTimer.Stop()
		e.tickTimer = nil
	}
	if e.evalTimer != nil {
		e.evalTimer.Stop()
		e.evalTimer = nil
	}
}

// settleLocked wakes AwaitResolution callers
func (e *GameEngine) settleLocked() {
	if e.pending {
		close(e.resolved)
		e.pending = false
	}
}

func copyCards(cards []Card) []Card {
	return append([]Card(nil), cards...)
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
