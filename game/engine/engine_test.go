package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type cardUpdate struct {
	ID    int
	State CardState
}

type completion struct {
	Elapsed string
	Moves   int
	Label   string
}

// recordingPresenter captures every outbound instruction for assertions
type recordingPresenter struct {
	mu          sync.Mutex
	boards      [][]Card
	cardUpdates []cardUpdate
	stats       [][2]int
	timers      []string
	completions []completion
}

func (p *recordingPresenter) RenderBoard(cards []Card) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boards = append(p.boards, cards)
}

func (p *recordingPresenter) RenderCardState(id int, state CardState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cardUpdates = append(p.cardUpdates, cardUpdate{id, state})
}

func (p *recordingPresenter) UpdateStats(moves, matchedPairs int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = append(p.stats, [2]int{moves, matchedPairs})
}

func (p *recordingPresenter) UpdateTimerDisplay(elapsed string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timers = append(p.timers, elapsed)
}

func (p *recordingPresenter) ShowCompletion(elapsed string, moves int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completions = append(p.completions, completion{elapsed, moves, label})
}

func (p *recordingPresenter) lastTimer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.timers) == 0 {
		return ""
	}
	return p.timers[len(p.timers)-1]
}

func (p *recordingPresenter) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.boards, p.cardUpdates, p.stats, p.timers, p.completions = nil, nil, nil, nil, nil
}

func newTestEngine(t *testing.T, d Difficulty) (*GameEngine, *ManualClock, *recordingPresenter) {
	t.Helper()
	clock := NewManualClock(testStart)
	presenter := &recordingPresenter{}
	e, err := NewEngine(d,
		WithClock(clock),
		WithPresenter(presenter),
		WithSource(NewSeededSource(42)),
	)
	require.NoError(t, err)
	return e, clock, presenter
}

// positionsBySymbol maps each symbol to the two card ids carrying it
func positionsBySymbol(e *GameEngine) map[string][]int {
	out := make(map[string][]int)
	for _, c := range e.GetState().Cards {
		out[c.Symbol] = append(out[c.Symbol], c.ID)
	}
	return out
}

// mismatchedPair returns two card ids with different symbols, both hidden
func mismatchedPair(t *testing.T, e *GameEngine) (int, int) {
	t.Helper()
	cards := e.GetState().Cards
	for _, a := range cards {
		for _, b := range cards {
			if a.State == Hidden && b.State == Hidden && a.Symbol != b.Symbol {
				return a.ID, b.ID
			}
		}
	}
	t.Fatal("no mismatched hidden pair on board")
	return 0, 0
}

func selectPair(t *testing.T, e *GameEngine, a, b int) {
	t.Helper()
	outcome, err := e.SelectCard(a)
	require.NoError(t, err)
	require.Equal(t, OutcomeRevealed, outcome)
	outcome, err = e.SelectCard(b)
	require.NoError(t, err)
	require.Equal(t, OutcomePairComplete, outcome)
}

func TestNewEngine(t *testing.T) {
	for _, d := range Difficulties() {
		t.Run(string(d), func(t *testing.T) {
			e, clock, presenter := newTestEngine(t, d)

			state := e.GetState()
			assert.Equal(t, d, state.Difficulty)
			assert.Equal(t, PhaseIdle, state.Phase)
			assert.Len(t, state.Cards, d.CardCount())
			assert.Equal(t, 0, state.Moves)
			assert.Equal(t, 0, state.MatchedPairs)
			assert.Equal(t, d.PairCount(), state.TotalPairs)
			assert.Empty(t, state.Selection)
			assert.Equal(t, "00:00", state.Elapsed)
			assert.Nil(t, state.StartedAt)

			require.Len(t, presenter.boards, 1)
			assert.Len(t, presenter.boards[0], d.CardCount())
			assert.Equal(t, [][2]int{{0, 0}}, presenter.stats)
			assert.Equal(t, []string{"00:00"}, presenter.timers)
			assert.Zero(t, clock.Pending(), "idle game must not schedule anything")
		})
	}
}

func TestNewEngine_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		d    Difficulty
		opts []Option
	}{
		{"unknown difficulty", Difficulty("extreme"), nil},
		{"short alphabet", Easy, []Option{WithSymbols([]string{"a", "b"})}},
		{"duplicate symbols", Easy, []Option{WithSymbols([]string{"a", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"})}},
		{"zero reveal delay", Easy, []Option{WithRevealDelay(0)}},
		{"negative tick", Easy, []Option{WithTickInterval(-time.Second)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.d, tt.opts...)
			assert.Error(t, err)
		})
	}

	_, err := NewEngine(Difficulty("extreme"))
	assert.ErrorIs(t, err, ErrUnknownDifficulty)
}

func TestEngine_SelectCard_UnknownCard(t *testing.T) {
	e, _, _ := newTestEngine(t, Easy)

	for _, id := range []int{-1, 12, 100} {
		_, err := e.SelectCard(id)
		assert.ErrorIs(t, err, ErrUnknownCard, "id %d", id)
	}
	assert.Equal(t, PhaseIdle, e.GetPhase(), "rejected ids must not start the game")
}

func TestEngine_FirstSelectionStartsTimer(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)

	outcome, err := e.SelectCard(0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevealed, outcome)
	assert.Equal(t, PhaseActive, e.GetPhase())

	state := e.GetState()
	require.NotNil(t, state.StartedAt)
	assert.Equal(t, testStart, *state.StartedAt)
	assert.Equal(t, Revealed, state.Cards[0].State)
	assert.Equal(t, []int{0}, state.Selection)
	assert.Equal(t, []cardUpdate{{0, Revealed}}, presenter.cardUpdates)

	clock.Advance(65 * time.Second)
	assert.Equal(t, "01:05", presenter.lastTimer())
	assert.Equal(t, 65*time.Second, e.GetElapsed())
}

func TestEngine_MatchingPair(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)
	pair := positionsBySymbol(e)["4"]
	require.Len(t, pair, 2)

	selectPair(t, e, pair[0], pair[1])
	assert.Equal(t, PhaseResolving, e.GetPhase())
	assert.Equal(t, 1, e.GetMoves())
	assert.Equal(t, 0, e.GetMatchedPairs(), "match is not counted before the reveal delay")

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, Revealed, e.GetState().Cards[pair[0]].State)

	clock.Advance(time.Millisecond)
	state := e.GetState()
	assert.Equal(t, Matched, state.Cards[pair[0]].State)
	assert.Equal(t, Matched, state.Cards[pair[1]].State)
	assert.Equal(t, 1, state.MatchedPairs)
	assert.Equal(t, 1, state.Moves)
	assert.Empty(t, state.Selection)
	assert.Equal(t, PhaseActive, state.Phase)
	assert.Equal(t, [2]int{1, 1}, presenter.stats[len(presenter.stats)-1])
}

func TestEngine_NonMatchingPair(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)
	a, b := mismatchedPair(t, e)

	selectPair(t, e, a, b)
	clock.Advance(DefaultRevealDelay)

	state := e.GetState()
	assert.Equal(t, Hidden, state.Cards[a].State)
	assert.Equal(t, Hidden, state.Cards[b].State)
	assert.Equal(t, 0, state.MatchedPairs)
	assert.Equal(t, 1, state.Moves)
	assert.Empty(t, state.Selection)
	assert.Contains(t, presenter.cardUpdates, cardUpdate{a, Hidden})
	assert.Contains(t, presenter.cardUpdates, cardUpdate{b, Hidden})
}

func TestEngine_ThirdCardIgnored(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)
	a, b := mismatchedPair(t, e)
	selectPair(t, e, a, b)

	third := -1
	for _, c := range e.GetState().Cards {
		if c.ID != a && c.ID != b {
			third = c.ID
			break
		}
	}
	before := e.GetState()
	updates := len(presenter.cardUpdates)

	outcome, err := e.SelectCard(third)
	require.NoError(t, err)
	assert.Equal(t, OutcomeBusy, outcome)
	assert.Equal(t, before, e.GetState())
	assert.Len(t, presenter.cardUpdates, updates)

	// the dropped click is not replayed after resolution
	clock.Advance(DefaultRevealDelay)
	assert.Equal(t, Hidden, e.GetState().Cards[third].State)
}

func TestEngine_AlreadyRevealedAndMatchedIgnored(t *testing.T) {
	e, clock, _ := newTestEngine(t, Easy)
	pair := positionsBySymbol(e)["2"]

	outcome, err := e.SelectCard(pair[0])
	require.NoError(t, err)
	require.Equal(t, OutcomeRevealed, outcome)

	outcome, err = e.SelectCard(pair[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRevealed, outcome)
	assert.Equal(t, []int{pair[0]}, e.GetState().Selection)
	assert.Equal(t, 0, e.GetMoves())

	_, err = e.SelectCard(pair[1])
	require.NoError(t, err)
	clock.Advance(DefaultRevealDelay)

	before := e.GetState()
	outcome, err = e.SelectCard(pair[1])
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyMatched, outcome)
	assert.Equal(t, before, e.GetState())
}

func TestEngine_MoveCountOncePerPair(t *testing.T) {
	e, clock, _ := newTestEngine(t, Medium)
	positions := positionsBySymbol(e)

	for i := 1; i <= 3; i++ {
		a, b := mismatchedPair(t, e)
		selectPair(t, e, a, b)
		clock.Advance(DefaultRevealDelay)
		assert.Equal(t, i, e.GetMoves())
	}

	pair := positions["1"]
	_, err := e.SelectCard(pair[0])
	require.NoError(t, err)
	assert.Equal(t, 3, e.GetMoves(), "a single flip is not a move")
	_, err = e.SelectCard(pair[1])
	require.NoError(t, err)
	assert.Equal(t, 4, e.GetMoves())
}

func TestEngine_WinCondition(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)
	positions := positionsBySymbol(e)

	for i, symbol := range DefaultSymbols[:Easy.PairCount()] {
		pair := positions[symbol]
		selectPair(t, e, pair[0], pair[1])
		clock.Advance(DefaultRevealDelay)

		if i < Easy.PairCount()-1 {
			assert.NotEqual(t, PhaseWon, e.GetPhase(), "won after %d pairs", i+1)
			assert.Empty(t, presenter.completions)
		}
	}

	state := e.GetState()
	assert.Equal(t, PhaseWon, state.Phase)
	assert.True(t, state.Won)
	assert.Equal(t, 6, state.MatchedPairs)
	assert.Equal(t, 6, state.Moves)
	require.NotNil(t, state.FinishedAt)
	assert.Equal(t, "00:06", state.Elapsed)

	require.Len(t, presenter.completions, 1)
	assert.Equal(t, completion{"00:06", 6, "Easy"}, presenter.completions[0])
	assert.Zero(t, clock.Pending(), "timer must be stopped on win")

	timers := len(presenter.timers)
	clock.Advance(time.Minute)
	assert.Len(t, presenter.timers, timers, "no ticks after win")
	assert.Equal(t, 6*time.Second, e.GetElapsed())

	outcome, err := e.SelectCard(0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGameOver, outcome)
}

func TestEngine_EasyScenario(t *testing.T) {
	e, clock, _ := newTestEngine(t, Easy)
	positions := positionsBySymbol(e)
	// easy boards deal symbols 1 to 6, so the mismatch uses 5 and 6
	threes, fives, sixes := positions["3"], positions["5"], positions["6"]
	require.Len(t, threes, 2)
	require.Len(t, fives, 2)
	require.Len(t, sixes, 2)

	selectPair(t, e, threes[0], threes[1])
	clock.Advance(DefaultRevealDelay)
	state := e.GetState()
	assert.Equal(t, Matched, state.Cards[threes[0]].State)
	assert.Equal(t, Matched, state.Cards[threes[1]].State)
	assert.Equal(t, 1, state.MatchedPairs)
	assert.Equal(t, 1, state.Moves)

	selectPair(t, e, fives[0], sixes[0])
	clock.Advance(DefaultRevealDelay)
	state = e.GetState()
	assert.Equal(t, Hidden, state.Cards[fives[0]].State)
	assert.Equal(t, Hidden, state.Cards[sixes[0]].State)
	assert.Equal(t, 1, state.MatchedPairs)
	assert.Equal(t, 2, state.Moves)
}

func TestEngine_InitializeMidGame(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Easy)
	pair := positionsBySymbol(e)["1"]
	selectPair(t, e, pair[0], pair[1])

	require.NoError(t, e.Initialize(Hard))
	presenter.reset()

	state := e.GetState()
	assert.Equal(t, Hard, state.Difficulty)
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Len(t, state.Cards, 24)
	assert.Equal(t, 0, state.Moves)
	assert.Equal(t, 0, state.MatchedPairs)
	assert.Empty(t, state.Selection)
	assert.Empty(t, e.GetMoveHistory())
	assert.Equal(t, 0, CountByState(state.Cards, Revealed))
	assert.Zero(t, clock.Pending(), "pending evaluation and ticks are cancelled")

	clock.Advance(10 * time.Second)
	assert.Empty(t, presenter.cardUpdates, "stale evaluation must not touch the new board")
	assert.Empty(t, presenter.timers)

	assert.ErrorIs(t, e.Initialize(Difficulty("nope")), ErrUnknownDifficulty)
	assert.Equal(t, Hard, e.GetDifficulty(), "failed initialize keeps the current board")
}

func TestEngine_Restart(t *testing.T) {
	e, clock, presenter := newTestEngine(t, Medium)
	a, b := mismatchedPair(t, e)
	selectPair(t, e, a, b)
	clock.Advance(DefaultRevealDelay)

	require.NoError(t, e.Restart())
	state := e.GetState()
	assert.Equal(t, Medium, state.Difficulty)
	assert.Len(t, state.Cards, 16)
	assert.Equal(t, 0, state.Moves)
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Len(t, presenter.boards, 2)
	assert.Equal(t, "00:00", presenter.lastTimer())
}

func TestEngine_AwaitResolution(t *testing.T) {
	e, clock, _ := newTestEngine(t, Easy)

	require.NoError(t, e.AwaitResolution(context.Background()), "nothing pending returns at once")

	a, b := mismatchedPair(t, e)
	selectPair(t, e, a, b)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.AwaitResolution(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- e.AwaitResolution(context.Background()) }()
	clock.Advance(DefaultRevealDelay)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("AwaitResolution did not return after the pair resolved")
	}
}

func TestEngine_Close(t *testing.T) {
	e, clock, _ := newTestEngine(t, Easy)
	a, b := mismatchedPair(t, e)
	selectPair(t, e, a, b)

	e.Close()
	e.Close()
	assert.Zero(t, clock.Pending())

	_, err := e.SelectCard(0)
	assert.ErrorIs(t, err, ErrEngineClosed)
	assert.ErrorIs(t, e.Restart(), ErrEngineClosed)
	assert.NoError(t, e.AwaitResolution(context.Background()))
}

func TestEngine_MoveHistory(t *testing.T) {
	e, clock, _ := newTestEngine(t, Easy)
	positions := positionsBySymbol(e)

	a, b := mismatchedPair(t, e)
	selectPair(t, e, a, b)
	clock.Advance(DefaultRevealDelay)

	pair := positions["6"]
	selectPair(t, e, pair[0], pair[1])
	clock.Advance(DefaultRevealDelay)

	history := e.GetMoveHistory()
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].MoveNumber)
	assert.False(t, history[0].Matched)
	assert.Equal(t, a, history[0].FirstCard)
	assert.Equal(t, b, history[0].SecondCard)
	assert.Equal(t, int64(1000), history[0].ElapsedMS)

	assert.Equal(t, 2, history[1].MoveNumber)
	assert.True(t, history[1].Matched)
	assert.Equal(t, "6", history[1].FirstSymbol)
	assert.Equal(t, "6", history[1].SecondSymbol)
}
