package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Match Game",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Match Game - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Find every pair of matching cards. Flip two cards per move; a matching pair stays
face up, a mismatch is turned back after a short delay.

AVAILABLE TOOLS:
- create_session: Start a new game (easy, medium or hard)
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Show the board
- select_card: Flip a card by its number
- restart_game: Deal a new board at the same difficulty
- change_difficulty: Deal a new board at another difficulty
- move_history: View resolved pairs
- list_difficulties: List difficulty tiers
- game_instructions: Rules and strategy

NOTE: select_card waits for a completed pair to resolve by default, so the board
it returns is always ready for the next flip.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with an optional difficulty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "easy (6 pairs), medium (8 pairs) or hard (12 pairs); defaults to the server default",
					"enum":        []string{"easy", "medium", "hard"},
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Show the board, moves, matched pairs and elapsed time",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_card",
		Description: "Flip a card. Cards are numbered from 0, left to right and top to bottom",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"card": map[string]interface{}{
					"type":        "integer",
					"description": "Card number",
					"minimum":     0,
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Wait for a completed pair to resolve before returning (default true)",
				},
			},
			Required: []string{"session_id", "card"},
		},
	}, c.handleSelectCard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "restart_game",
		Description: "Deal a new board at the current difficulty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRestart)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_difficulty",
		Description: "Deal a new board at another difficulty",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"difficulty": map[string]interface{}{
					"type":        "string",
					"description": "easy, medium or hard",
					"enum":        []string{"easy", "medium", "hard"},
				},
			},
			Required: []string{"session_id", "difficulty"},
		},
	}, c.handleChangeDifficulty)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the resolved pairs of the current game with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Entries per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"description": "asc (oldest first) or desc (newest first, default)",
					"enum":        []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_difficulties",
		Description: "List the difficulty tiers",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListDifficulties)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of the game and a playing strategy",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(id string, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if difficulty := request.GetString("difficulty", ""); difficulty != "" {
		body["difficulty"] = difficulty
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nDifficulty: %s\n\n%s",
		session.ID, session.Difficulty.Label(), formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, http.MethodGet, "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "in progress"
		if s.GameState != nil && s.GameState.Won {
			status = "won"
		}
		fmt.Fprintf(&b, "- %s (Difficulty: %s, Created: %s, %s)\n",
			s.ID, s.Difficulty, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodGet, sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelectCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := request.RequireInt("card")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"card": card,
		"wait": request.GetBool("wait", true),
	}

	var result service.SelectResult
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/select"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSelectResult(&result)), nil
}

func (c *Client) handleRestart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/restart"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("New board dealt\n\n" + formatGameState(&state)), nil
}

func (c *Client) handleChangeDifficulty(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	difficulty, err := request.RequireString("difficulty")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	body := map[string]string{"difficulty": difficulty}
	if err := c.apiCall(ctx, http.MethodPost, sessionPath(sessionID, "/difficulty"), body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Difficulty changed to %s\n\n%s", state.DifficultyLabel, formatGameState(&state))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if order := request.GetString("order", ""); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, http.MethodGet, path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListDifficulties(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Difficulties []service.DifficultyInfo `json:"difficulties"`
	}
	if err := c.apiCall(ctx, http.MethodGet, "/api/difficulties", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Difficulties:\n\n")
	for _, d := range response.Difficulties {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "• %s%s\n  %d pairs, %d cards in a %dx%d grid\n\n",
			d.ID, marker, d.Pairs, d.Cards, d.Columns, d.Rows)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Memory Match Game - Complete Instructions

GAME OBJECTIVE:
Turn every card face up by finding all matching pairs in as few moves as possible.

GAME MECHANICS:
• Cards are numbered from 0, left to right and top to bottom
• Flip one card, then a second card. Two flips make one move
• A matching pair stays face up for good
• A mismatched pair is shown for about a second, then turned face down again
• While a pair is being shown, further flips are ignored
• Flipping a card that is already face up or matched does nothing
• The clock starts on your first flip and stops when the last pair is found

BOARD LEGEND:
[??] = face-down card
[ 7] = face-up card showing symbol 7
( 7) = matched card

DIFFICULTIES:
• easy   - 6 pairs, 4x3 grid
• medium - 8 pairs, 4x4 grid
• hard   - 12 pairs, 6x4 grid

STRATEGY:
1. Keep a written map of every symbol you have seen and its card number
2. Before flipping, check whether you already know both cards of a pair
3. Otherwise flip a card you have never seen
4. If its symbol matches one you remember, flip the remembered card next
5. If not, flip another unseen card and remember both symbols
A perfect memory finishes easy in 6 to roughly 10 moves.

TOOLS:
• select_card waits for a completed pair to resolve by default
• Pass wait=false to see a mismatched pair while it is still face up
• move_history lists every resolved pair with its symbols

Good luck and have fun!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nDifficulty: %s\nCreated: %s\n\n%s",
		session.ID, session.Difficulty.Label(),
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Difficulty: %s | Moves: %d | Pairs: %d/%d | Time: %s\n\n",
		state.DifficultyLabel, state.Moves, state.MatchedPairs, state.TotalPairs, state.Elapsed)
	result.WriteString(engine.FormatBoard(state.Cards, state.Difficulty))

	switch {
	case state.Won:
		fmt.Fprintf(&result, "\nYOU WIN! %d moves in %s", state.Moves, state.Elapsed)
	case state.Phase == engine.PhaseResolving:
		result.WriteString("\nA pair is being shown, wait before flipping again")
	case len(state.Selection) == 1:
		fmt.Fprintf(&result, "\nCard %d is face up, pick its partner", state.Selection[0])
	}

	return result.String()
}

func formatSelectResult(result *service.SelectResult) string {
	var b strings.Builder
	switch result.Outcome {
	case engine.OutcomeRevealed:
		fmt.Fprintf(&b, "Card %d flipped", result.Card)
	case engine.OutcomePairComplete:
		fmt.Fprintf(&b, "Card %d flipped, pair complete", result.Card)
	case engine.OutcomeBusy:
		b.WriteString("Ignored: a pair is still being shown")
	case engine.OutcomeAlreadyRevealed:
		fmt.Fprintf(&b, "Ignored: card %d is already face up", result.Card)
	case engine.OutcomeAlreadyMatched:
		fmt.Fprintf(&b, "Ignored: card %d is already matched", result.Card)
	case engine.OutcomeGameOver:
		b.WriteString("Ignored: the game is already won")
	default:
		fmt.Fprintf(&b, "Card %d: %s", result.Card, result.Outcome)
	}
	if result.GameState != nil {
		if symbol := cardSymbol(result.GameState, result.Card); symbol != "" && result.Accepted {
			fmt.Fprintf(&b, " (symbol %s)", symbol)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func cardSymbol(state *engine.GameState, id int) string {
	if id < 0 || id >= len(state.Cards) {
		return ""
	}
	return state.Cards[id].Symbol
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d), Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	if len(history.Moves) == 0 {
		b.WriteString("(no moves yet)\n")
		return b.String()
	}
	for _, move := range history.Moves {
		status := "✓"
		if !move.Matched {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. cards %d & %d: %s / %s %s\n",
			move.MoveNumber, move.FirstCard, move.SecondCard,
			move.FirstSymbol, move.SecondSymbol, status)
	}
	return b.String()
}
