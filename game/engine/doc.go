// Package engine provides the core game logic for the memory match game.
//
// The engine package implements:
//   - Board generation with an unbiased Fisher-Yates shuffle
//   - Card selection admission rules
//   - Delayed pair evaluation (match or revert)
//   - Move counting, elapsed time and win detection
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState is a snapshot of a single game, and
// Presenter is the outbound display contract the engine drives.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.Easy, engine.WithPresenter(p))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := gameEngine.SelectCard(3)
//	state := gameEngine.GetState()
//
// Game Rules:
//
// The board holds two cards of each symbol, face down. The first selection
// starts the timer. Two cards may be face up at once; once the second is
// chosen the move counter increases and, after the reveal delay, the pair
// either stays up as matched or turns back over. Further selections are
// ignored while a pair is being resolved. The game is won when every pair
// is matched.
//
// Timing:
//
// All scheduling goes through a Clock. SystemClock is used in production and
// ManualClock lets tests and simulations advance time explicitly.
package engine
