// Package session provides session management for the memory match game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session lifecycle management
//   - Concurrent access control
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Session represents an individual game session with its own engine instance
// and metadata like creation time and last access time.
//
// Session Identifiers:
//
// Generated IDs are the first eight hex characters of a random UUID. Lookups
// are case-insensitive. Callers may also choose their own ID.
//
// Concurrency:
//
// The session manager is thread-safe and supports concurrent operations.
// Multiple goroutines can safely create, retrieve, and modify different
// sessions simultaneously. Internal locking ensures data consistency.
//
// Usage:
//
//	manager := session.NewManager(
//		session.WithEngineOptions(cfg.EngineOptions),
//		session.WithPresenterFactory(hub.Presenter),
//	)
//
//	// Create a new session
//	sess, err := manager.Create("", engine.Medium)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve existing session
//	sess, err = manager.Get(sessionID)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// List all active sessions
//	sessions := manager.List()
//
// Cleanup:
//
// Sessions can be explicitly deleted or may expire based on inactivity.
// Either way the session's engine is closed so its timers stop firing.
package session
