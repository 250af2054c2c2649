// Package service provides the business logic layer for the memory match game.
//
// The service package implements:
//   - Multi-session game management
//   - Card selection with optional waiting for pair evaluation
//   - Restarts and difficulty changes
//   - Paginated move history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager serves the difficulty catalog and the default tier.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine instance; the service never
// holds a lock across engine calls, so a caller waiting on a pair evaluation
// does not block other sessions.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "medium")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.SelectCard(ctx, info.ID, 3, true)
//
// Snapshots returned to callers mask the symbol of every hidden card.
package service
