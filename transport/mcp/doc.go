// Package mcp provides a Model Context Protocol server for the Memory Match Game.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for game operations
//   - Text rendering of boards, selections and history
//
// The server is a thin client: every tool call is proxied to the REST API,
// so MCP agents share sessions with browsers and other HTTP clients.
//
// MCP Tools:
//   - create_session: Create a session at a chosen difficulty
//   - list_sessions: List all active sessions
//   - get_session: Get specific session details
//   - game_state: Board as a text grid plus moves, pairs and time
//   - select_card: Flip a card, waiting for a completed pair by default
//   - restart_game: Deal a new board
//   - change_difficulty: Deal a new board at another difficulty
//   - move_history: Resolved pairs with pagination
//   - list_difficulties: Difficulty tiers and their grids
//   - game_instructions: Rules and a playing strategy
//
// Transport Modes:
//
// The MCP server returned by GetMCPServer is served over stdio with
// server.ServeStdio, or over HTTP by handing JSON-RPC request bodies to
// its HandleMessage method (the /mcp endpoint).
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
