// Package api provides HTTP REST API handlers for the memory match game.
//
// The api package implements:
//   - RESTful endpoints for game operations
//   - Session management endpoints
//   - The difficulty catalog
//   - WebSocket upgrade handling and WebSocket action dispatch
//   - Health and Prometheus endpoints
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"difficulty": "medium"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current state, hidden symbols masked
//   - POST /api/sessions/{id}/select - Flip a card ({"card": 3, "wait": true})
//   - POST /api/sessions/{id}/restart - Deal a new board
//   - POST /api/sessions/{id}/difficulty - Deal a board at another tier
//   - GET /api/sessions/{id}/history - Resolved pairs (?page=1&limit=20&order=desc)
//
// Configuration:
//   - GET /api/difficulties - List difficulty tiers
//
// Other:
//   - GET /health
//   - GET /metrics
//   - GET /ws?session={id}
//
// Error Handling:
//
// Errors are returned as JSON with an HTTP status derived from the error:
// unknown sessions are 404, unknown cards and difficulties are 400, a
// closed session is 410 and a wait that outlives the request is 504.
//
//	{
//	  "error": "error message"
//	}
//
// Usage:
//
//	server := api.NewServer(gameService, hub,
//		api.WithLogger(log.Logger),
//		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
//	)
//	http.ListenAndServe(":8080", server)
package api
