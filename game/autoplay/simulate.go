package autoplay

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
)

// SimulationConfig controls an in-process batch of games
type SimulationConfig struct {
	Games       int
	Seed        uint64
	RevealDelay time.Duration
	// EngineOptions are applied before the simulation's clock and source
	EngineOptions []engine.Option
	Logger        zerolog.Logger
}

// Stats summarizes a batch of games at one difficulty
type Stats struct {
	Difficulty engine.Difficulty
	Games      int
	MinMoves   int
	MaxMoves   int
	AvgMoves   float64
	// AvgSeconds is measured on the simulation clock
	AvgSeconds float64
}

// Simulate plays cfg.Games games at difficulty d with the memory strategy.
// Each game gets its own manual clock and a source seeded from cfg.Seed.
func Simulate(ctx context.Context, d engine.Difficulty, cfg SimulationConfig) (*Stats, error) {
	if cfg.Games <= 0 {
		return nil, fmt.Errorf("games must be positive, got %d", cfg.Games)
	}
	delay := cfg.RevealDelay
	if delay <= 0 {
		delay = engine.DefaultRevealDelay
	}

	stats := &Stats{Difficulty: d, Games: cfg.Games}
	totalMoves, totalMS := 0, int64(0)
	for i := 0; i < cfg.Games; i++ {
		clock := engine.NewManualClock(time.Unix(0, 0).UTC())
		opts := append([]engine.Option{}, cfg.EngineOptions...)
		opts = append(opts,
			engine.WithClock(clock),
			engine.WithRevealDelay(delay),
			engine.WithSource(engine.NewSeededSource(cfg.Seed+uint64(i))),
		)

		eng, err := engine.NewEngine(d, opts...)
		if err != nil {
			return nil, err
		}
		table := &EngineTable{Engine: eng, Settle: func() { clock.Advance(delay) }}
		result, err := Play(ctx, table, NewStrategy(), cfg.Logger)
		elapsed := eng.GetElapsed()
		eng.Close()
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", i+1, err)
		}

		totalMoves += result.Moves
		totalMS += elapsed.Milliseconds()
		if i == 0 || result.Moves < stats.MinMoves {
			stats.MinMoves = result.Moves
		}
		if result.Moves > stats.MaxMoves {
			stats.MaxMoves = result.Moves
		}
	}

	stats.AvgMoves = float64(totalMoves) / float64(cfg.Games)
	stats.AvgSeconds = float64(totalMS) / 1000 / float64(cfg.Games)
	return stats, nil
}
