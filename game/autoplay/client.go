package autoplay

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

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

// Client plays a session through the REST API. It implements Table.
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client plays
func (c *Client) SessionID() string {
	return c.sessionID
}

// UseSession makes the client play an existing session
func (c *Client) UseSession(id string) {
	c.sessionID = id
}

// CreateSession starts a new session; an empty difficulty uses the server default
func (c *Client) CreateSession(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
	body := map[string]string{}
	if difficulty != "" {
		body["difficulty"] = difficulty
	}

	var session service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return &session, nil
}

// Restart deals a new board in the current session
func (c *Client) Restart(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/restart"), nil, &state); err != nil {
		return nil, fmt.Errorf("restart: %w", err)
	}
	return &state, nil
}

func (c *Client) State(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

func (c *Client) Flip(ctx context.Context, card int) (engine.Outcome, *engine.GameState, error) {
	body := map[string]any{"card": card, "wait": true}
	var result service.SelectResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/select"), body, &result); err != nil {
		return "", nil, fmt.Errorf("select card: %w", err)
	}
	return result.Outcome, result.GameState, nil
}

func (c *Client) LastMove(ctx context.Context) (*engine.MoveHistoryEntry, error) {
	var history service.HistoryResponse
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/history?limit=1&order=desc"), nil, &history); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if len(history.Moves) == 0 {
		return nil, nil
	}
	return &history.Moves[0], nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, errResp.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
