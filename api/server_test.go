package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
	"github.com/wricardo/memory-match-game/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, difficulty string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context, opts service.ListOptions) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	SelectCardFunc       func(ctx context.Context, sessionID string, card int, wait bool) (*service.SelectResult, error)
	RestartFunc          func(ctx context.Context, sessionID string) (*engine.GameState, error)
	ChangeDifficultyFunc func(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error)

	// Game State
	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListDifficultiesFunc func(ctx context.Context) ([]*service.DifficultyInfo, error)
}

func (m *MockGameService) CreateSession(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, difficulty)
	}
	return &service.SessionInfo{ID: "test-session", Difficulty: engine.Easy, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, Difficulty: engine.Easy, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context, opts service.ListOptions) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, opts)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) SelectCard(ctx context.Context, sessionID string, card int, wait bool) (*service.SelectResult, error) {
	if m.SelectCardFunc != nil {
		return m.SelectCardFunc(ctx, sessionID, card, wait)
	}
	return &service.SelectResult{Card: card, Outcome: engine.OutcomeRevealed, Accepted: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Restart(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) ChangeDifficulty(ctx context.Context, sessionID, difficulty string) (*engine.GameState, error) {
	if m.ChangeDifficultyFunc != nil {
		return m.ChangeDifficultyFunc(ctx, sessionID, difficulty)
	}
	return &engine.GameState{Difficulty: engine.Difficulty(difficulty)}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) ListDifficulties(ctx context.Context) ([]*service.DifficultyInfo, error) {
	if m.ListDifficultiesFunc != nil {
		return m.ListDifficultiesFunc(ctx)
	}
	return []*service.DifficultyInfo{{ID: "easy", Label: "Easy", Pairs: 6, Cards: 12, IsDefault: true}}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockGameService) *Server {
	t.Helper()
	hub := websocket.NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(t *testing.T, m *MockGameService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	setupTestServer(t, m).ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default difficulty",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
					if difficulty != "" {
						t.Errorf("Expected empty difficulty, got %q", difficulty)
					}
					return &service.SessionInfo{ID: "sess-123", Difficulty: engine.Easy}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				assert.Equal(t, "sess-123", resp.ID)
			},
		},
		{
			name:        "Create session with specific difficulty",
			requestBody: map[string]string{"difficulty": "hard"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "sess-456", Difficulty: engine.Difficulty(difficulty)}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				assert.Equal(t, engine.Hard, resp.Difficulty)
			},
		},
		{
			name:        "Unknown difficulty",
			requestBody: map[string]string{"difficulty": "nightmare"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: %q", engine.ErrUnknownDifficulty, difficulty)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, difficulty string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				assert.Equal(t, "service error", resp["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	var got service.ListOptions
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context, opts service.ListOptions) ([]*service.SessionInfo, error) {
			got = opts
			return []*service.SessionInfo{{ID: "sess-1"}, {ID: "sess-2"}}, nil
		},
	}

	w := serve(t, mock, makeRequest("GET", "/api/sessions?sort=accessed&order=asc&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ListOptions{Sort: "accessed", Order: "asc", Limit: 5}, got)

	var resp map[string]any
	parseResponse(t, w, &resp)
	assert.Equal(t, 2.0, resp["count"])
	assert.Len(t, resp["sessions"], 2)

	t.Run("bad limit is ignored", func(t *testing.T) {
		serve(t, mock, makeRequest("GET", "/api/sessions?limit=abc", nil))
		assert.Zero(t, got.Limit)
	})

	t.Run("service error", func(t *testing.T) {
		failing := &MockGameService{
			ListSessionsFunc: func(ctx context.Context, opts service.ListOptions) ([]*service.SessionInfo, error) {
				return nil, fmt.Errorf("boom")
			},
		}
		w := serve(t, failing, makeRequest("GET", "/api/sessions", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	notFound := func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
		return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
	}

	t.Run("get existing", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("GET", "/api/sessions/sess-123", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp service.SessionInfo
		parseResponse(t, w, &resp)
		assert.Equal(t, "sess-123", resp.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		w := serve(t, &MockGameService{GetSessionFunc: notFound}, makeRequest("GET", "/api/sessions/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		var deleted string
		mock := &MockGameService{DeleteSessionFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		}}
		w := serve(t, mock, makeRequest("DELETE", "/api/sessions/abc", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", deleted)
	})

	t.Run("delete missing", func(t *testing.T) {
		mock := &MockGameService{DeleteSessionFunc: func(ctx context.Context, id string) error {
			return service.ErrSessionNotFound
		}}
		w := serve(t, mock, makeRequest("DELETE", "/api/sessions/abc", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// Game Operation Tests

func TestSelectCard(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		err            error
		expectedStatus int
		expectedWait   bool
	}{
		{"select card", map[string]any{"card": 3}, nil, http.StatusOK, false},
		{"select and wait", map[string]any{"card": 0, "wait": true}, nil, http.StatusOK, true},
		{"missing card", map[string]any{}, nil, http.StatusBadRequest, false},
		{"negative card", map[string]any{"card": -1}, nil, http.StatusBadRequest, false},
		{"no body", nil, nil, http.StatusBadRequest, false},
		{"unknown card", map[string]any{"card": 99}, fmt.Errorf("select: %w", engine.ErrUnknownCard), http.StatusBadRequest, false},
		{"session gone", map[string]any{"card": 1}, engine.ErrEngineClosed, http.StatusGone, false},
		{"wait timed out", map[string]any{"card": 1, "wait": true}, context.DeadlineExceeded, http.StatusGatewayTimeout, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mock := &MockGameService{
				SelectCardFunc: func(ctx context.Context, sessionID string, card int, wait bool) (*service.SelectResult, error) {
					called = true
					assert.Equal(t, "s1", sessionID)
					assert.Equal(t, tt.expectedWait, wait)
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.SelectResult{Card: card, Outcome: engine.OutcomeRevealed, Accepted: true, Resolved: true, GameState: &engine.GameState{}}, nil
				},
			}

			w := serve(t, mock, makeRequest("POST", "/api/sessions/s1/select", tt.body))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedStatus == http.StatusOK {
				var resp service.SelectResult
				parseResponse(t, w, &resp)
				assert.Equal(t, engine.OutcomeRevealed, resp.Outcome)
				assert.True(t, resp.Accepted)
			}
			if tt.expectedStatus == http.StatusBadRequest && tt.err == nil {
				assert.False(t, called, "invalid requests never reach the service")
			}
		})
	}
}

func TestRestartAndChangeDifficulty(t *testing.T) {
	t.Run("restart", func(t *testing.T) {
		mock := &MockGameService{RestartFunc: func(ctx context.Context, id string) (*engine.GameState, error) {
			return &engine.GameState{Phase: engine.PhaseIdle, Elapsed: "00:00"}, nil
		}}
		w := serve(t, mock, makeRequest("POST", "/api/sessions/s1/restart", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var state engine.GameState
		parseResponse(t, w, &state)
		assert.Equal(t, engine.PhaseIdle, state.Phase)
	})

	t.Run("change difficulty", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("POST", "/api/sessions/s1/difficulty", map[string]string{"difficulty": "medium"}))
		require.Equal(t, http.StatusOK, w.Code)
		var state engine.GameState
		parseResponse(t, w, &state)
		assert.Equal(t, engine.Medium, state.Difficulty)
	})

	t.Run("difficulty required", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("POST", "/api/sessions/s1/difficulty", map[string]string{}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown difficulty", func(t *testing.T) {
		mock := &MockGameService{ChangeDifficultyFunc: func(ctx context.Context, id, d string) (*engine.GameState, error) {
			return nil, engine.ErrUnknownDifficulty
		}}
		w := serve(t, mock, makeRequest("POST", "/api/sessions/s1/difficulty", map[string]string{"difficulty": "x"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetGameState(t *testing.T) {
	mock := &MockGameService{GetGameStateFunc: func(ctx context.Context, id string) (*engine.GameState, error) {
		if id != "s1" {
			return nil, service.ErrSessionNotFound
		}
		return &engine.GameState{
			Difficulty: engine.Easy,
			Cards:      []engine.Card{{ID: 0, State: engine.Hidden}, {ID: 1, Symbol: "4", State: engine.Revealed}},
		}, nil
	}}

	w := serve(t, mock, makeRequest("GET", "/api/sessions/s1/state", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"symbol":""`)
	assert.Contains(t, w.Body.String(), `"symbol":"4"`)

	w = serve(t, mock, makeRequest("GET", "/api/sessions/zz/state", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetHistory(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{GetMoveHistoryFunc: func(ctx context.Context, id string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
		got = opts
		return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{{MoveNumber: 1}}, TotalMoves: 1, Page: 1, PageSize: 5, TotalPages: 1}, nil
	}}

	w := serve(t, mock, makeRequest("GET", "/api/sessions/s1/history?page=2&limit=5&order=asc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.HistoryOptions{Page: 2, Limit: 5, Order: "asc"}, got)

	var resp service.HistoryResponse
	parseResponse(t, w, &resp)
	assert.Equal(t, 1, resp.TotalMoves)
}

func TestListDifficulties(t *testing.T) {
	w := serve(t, &MockGameService{}, makeRequest("GET", "/api/difficulties", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Difficulties []service.DifficultyInfo `json:"difficulties"`
	}
	parseResponse(t, w, &resp)
	require.Len(t, resp.Difficulties, 1)
	assert.Equal(t, "easy", resp.Difficulties[0].ID)
}

func TestHealthAndMetrics(t *testing.T) {
	w := serve(t, &MockGameService{}, makeRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	// not mounted without a handler
	w = serve(t, &MockGameService{}, makeRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("memory_match_boards_dealt_total 1\n"))
	})
	server := NewServer(&MockGameService{}, nil, WithMetricsHandler(metrics))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, makeRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boards_dealt")
}

func TestWebSocketEndpoint(t *testing.T) {
	t.Run("session required", func(t *testing.T) {
		w := serve(t, &MockGameService{}, makeRequest("GET", "/ws", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		mock := &MockGameService{GetSessionFunc: func(ctx context.Context, id string) (*service.SessionInfo, error) {
			return nil, service.ErrSessionNotFound
		}}
		w := serve(t, mock, makeRequest("GET", "/ws?session=zz", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("disabled without hub", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, makeRequest("GET", "/ws?session=a", nil))
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func TestHandleClientMessage(t *testing.T) {
	var calls []string
	mock := &MockGameService{
		SelectCardFunc: func(ctx context.Context, id string, card int, wait bool) (*service.SelectResult, error) {
			calls = append(calls, fmt.Sprintf("select %s %d %v", id, card, wait))
			return &service.SelectResult{}, nil
		},
		RestartFunc: func(ctx context.Context, id string) (*engine.GameState, error) {
			calls = append(calls, "restart "+id)
			return &engine.GameState{}, nil
		},
		ChangeDifficultyFunc: func(ctx context.Context, id, d string) (*engine.GameState, error) {
			calls = append(calls, "difficulty "+id+" "+d)
			return &engine.GameState{}, nil
		},
	}
	server := NewServer(mock, nil)
	ctx := context.Background()

	card := 5
	require.NoError(t, server.HandleClientMessage(ctx, "s1", &websocket.ClientMessage{Action: websocket.ActionSelect, Card: &card}))
	require.NoError(t, server.HandleClientMessage(ctx, "s1", &websocket.ClientMessage{Action: websocket.ActionRestart}))
	require.NoError(t, server.HandleClientMessage(ctx, "s1", &websocket.ClientMessage{Action: websocket.ActionDifficulty, Difficulty: "hard"}))

	assert.Equal(t, []string{"select s1 5 false", "restart s1", "difficulty s1 hard"}, calls)

	assert.Error(t, server.HandleClientMessage(ctx, "s1", &websocket.ClientMessage{Action: websocket.ActionSelect}))
	assert.Error(t, server.HandleClientMessage(ctx, "s1", &websocket.ClientMessage{Action: "dance"}))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrSessionAlreadyExists, http.StatusConflict},
		{engine.ErrUnknownCard, http.StatusBadRequest},
		{engine.ErrUnknownDifficulty, http.StatusBadRequest},
		{engine.ErrEngineClosed, http.StatusGone},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
