package autoplay

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
)

// ErrStuck is returned when a game is not won within the flip budget
var ErrStuck = errors.New("autoplay: flip budget exhausted")

// Table is a game the strategy can play. States are masked: hidden cards
// carry no symbol.
type Table interface {
	State(ctx context.Context) (*engine.GameState, error)
	// Flip selects a card and returns once a completed pair has resolved
	Flip(ctx context.Context, card int) (engine.Outcome, *engine.GameState, error)
	// LastMove returns the most recently resolved pair
	LastMove(ctx context.Context) (*engine.MoveHistoryEntry, error)
}

// Result summarizes a finished game
type Result struct {
	Difficulty engine.Difficulty
	Won        bool
	Moves      int
	Flips      int
	Elapsed    string
}

// Play flips cards chosen by s until the game on t is won
func Play(ctx context.Context, t Table, s *Strategy, logger zerolog.Logger) (*Result, error) {
	state, err := t.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	// a perfect memory never needs more than two flips per card
	budget := 4 * len(state.Cards)
	flips := 0
	for !state.Won {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if flips >= budget {
			return nil, fmt.Errorf("%w after %d flips", ErrStuck, flips)
		}

		s.Observe(state)
		card, ok := s.Next(state)
		if !ok {
			return nil, fmt.Errorf("%w: no hidden card left", ErrStuck)
		}

		var outcome engine.Outcome
		outcome, state, err = t.Flip(ctx, card)
		if err != nil {
			return nil, fmt.Errorf("failed to flip card %d: %w", card, err)
		}
		flips++

		logger.Debug().
			Int("card", card).
			Str("outcome", string(outcome)).
			Int("moves", state.Moves).
			Msg("flipped")

		if outcome == engine.OutcomePairComplete {
			move, err := t.LastMove(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read last move: %w", err)
			}
			if move != nil {
				s.ObserveMove(*move)
			}
		}
	}

	return &Result{
		Difficulty: state.Difficulty,
		Won:        state.Won,
		Moves:      state.Moves,
		Flips:      flips,
		Elapsed:    state.Elapsed,
	}, nil
}

// EngineTable plays an in-process engine
type EngineTable struct {
	Engine engine.Engine
	// Settle runs after a pair completes, before waiting for its resolution.
	// With a manual clock it advances past the reveal delay.
	Settle func()
}

func (t *EngineTable) State(ctx context.Context) (*engine.GameState, error) {
	return t.Engine.GetState().Masked(), nil
}

func (t *EngineTable) Flip(ctx context.Context, card int) (engine.Outcome, *engine.GameState, error) {
	outcome, err := t.Engine.SelectCard(card)
	if err != nil {
		return "", nil, err
	}
	if outcome == engine.OutcomePairComplete {
		if t.Settle != nil {
			t.Settle()
		}
		if err := t.Engine.AwaitResolution(ctx); err != nil {
			return "", nil, err
		}
	}
	return outcome, t.Engine.GetState().Masked(), nil
}

func (t *EngineTable) LastMove(ctx context.Context) (*engine.MoveHistoryEntry, error) {
	history := t.Engine.GetMoveHistory()
	if len(history) == 0 {
		return nil, nil
	}
	move := history[len(history)-1]
	return &move, nil
}
