package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/memory-match-game/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for a client action to complete, including a pair evaluation.
	actionTimeout = 10 * time.Second
)

// Outbound event names
const (
	EventState     = "state"
	EventBoard     = "board"
	EventCard      = "card"
	EventStats     = "stats"
	EventTimer     = "timer"
	EventCompleted = "completed"
	EventError     = "error"
)

// Inbound actions
const (
	ActionSelect     = "select"
	ActionRestart    = "restart"
	ActionDifficulty = "difficulty"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is an outbound frame
type Message struct {
	SessionID string `json:"session_id"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
}

// ClientMessage is an inbound frame
type ClientMessage struct {
	Action     string `json:"action"`
	Card       *int   `json:"card,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// MessageHandler applies client actions to a session
type MessageHandler interface {
	HandleClientMessage(ctx context.Context, sessionID string, msg *ClientMessage) error
}

// Client represents a WebSocket client
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string

	// snapshot produces the initial state frame once the client is registered
	snapshot func() any
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	handlerMu sync.RWMutex
	handler   MessageHandler

	logger zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, engine.WebSocketBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetHandler installs the inbound message handler
func (h *Hub) SetHandler(handler MessageHandler) {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.handler = handler
}

// Run starts the hub's event loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and attaches the client to sessionID. When
// snapshot is non-nil it is called by the hub right after registration and its
// result is delivered as a state event before any later broadcast.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, snapshot func() any) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionID,
		snapshot:  snapshot,
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastEvent queues an event for every client of a session. It never
// blocks; when the queue is full the event is dropped.
func (h *Hub) BroadcastEvent(sessionID, event string, data any) {
	message := &Message{SessionID: sessionID, Event: event, Data: data}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn().Str("session", sessionID).Str("event", event).Msg("broadcast queue full, event dropped")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	if client.snapshot != nil {
		state := client.snapshot()
		if data, err := json.Marshal(&Message{SessionID: client.sessionID, Event: EventState, Data: state}); err == nil {
			client.send <- data
		}
	}

	h.logger.Debug().
		Str("session", client.sessionID).
		Str("client", client.id).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			h.logger.Debug().
				Str("session", client.sessionID).
				Str("client", client.id).
				Int("clients", len(clients)).
				Msg("client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Str("event", message.Event).Msg("failed to marshal broadcast message")
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// slow consumer
				h.unregisterClient(client)
			}
		}
	}
}

// dispatch hands an inbound frame to the handler and reports failures back to the client
func (c *Client) dispatch(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(EventError, map[string]string{"message": "invalid message: " + err.Error()})
		return
	}

	c.hub.handlerMu.RLock()
	handler := c.hub.handler
	c.hub.handlerMu.RUnlock()
	if handler == nil {
		c.reply(EventError, map[string]string{"message": "this server does not accept actions"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := handler.HandleClientMessage(ctx, c.sessionID, &msg); err != nil {
		c.hub.logger.Debug().Err(err).Str("session", c.sessionID).Str("action", msg.Action).Msg("client action failed")
		c.reply(EventError, map[string]string{"message": err.Error()})
	}
}

// reply queues an event for the client's session
func (c *Client) reply(event string, data any) {
	c.hub.BroadcastEvent(c.sessionID, event, data)
}

// readPump pumps messages from the WebSocket connection to the handler
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			break
		}
		c.dispatch(raw)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
