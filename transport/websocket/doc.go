// Package websocket provides WebSocket transport for the memory match game.
//
// The websocket package implements:
//   - Session-aware WebSocket connections
//   - An engine.Presenter per session that streams display updates
//   - Inbound player actions routed to a MessageHandler
//   - Connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the hub goroutine owns the client registry.
//
// Message Protocol:
//
// Outgoing frames are {session_id, event, data} with events:
//   - state: full masked snapshot, sent once on connect
//   - board: a new board was dealt
//   - card: one card changed state (symbol included when face up)
//   - stats: moves and matched pairs
//   - timer: the MM:SS display
//   - completed: the game was won
//   - error: an inbound action failed
//
// Incoming frames are {action, card, difficulty} with actions select,
// restart and difficulty.
//
// Usage:
//
//	hub := websocket.NewHub(log.Logger)
//	go hub.Run(ctx)
//	hub.SetHandler(apiServer)
//
//	sessions := session.NewManager(session.WithPresenterFactory(hub.Presenter))
//
// Concurrency:
//
// Presenter calls never block the engine. Events are queued on a buffered
// channel and dropped with a warning when it is full; clients that fall
// behind are disconnected.
package websocket
