package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tlog-viewer/backend/internal/events"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeError     = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// WebSocket message structure. Ingest events use the event type
// ("ingest.completed", ...) as Type and the job id as ID.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Hub fans ingest events out to every connected WebSocket client.
// A client that cannot keep up is disconnected rather than slowing
// ingestion down.
type Hub struct {
	upgrader       websocket.Upgrader
	maxMessageSize int64

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub creates a hub. maxMessageSize bounds messages read from clients.
func NewHub(maxMessageSize int64) *Hub {
	if maxMessageSize <= 0 {
		maxMessageSize = 64 * 1024
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMessageSize: maxMessageSize,
		clients:        make(map[*wsClient]struct{}),
	}
}

// HandleWebSocket upgrades the connection and streams ingest events until
// the client disconnects.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: ws, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[WebSocket] Client connected (%d total)", n)

	go client.writePump()
	client.enqueue(encodeMessage(WSMessage{Type: MsgTypeConnected}))

	h.readLoop(client)

	h.remove(client)
	log.Printf("[WebSocket] Client disconnected")
	return nil
}

// Publish implements events.Publisher.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	wsMsg := WSMessage{Type: string(e.Type), ID: e.JobID, Payload: payload}
	if !e.Timestamp.IsZero() {
		wsMsg.Timestamp = e.Timestamp.UnixMilli()
	}
	msg := encodeMessage(wsMsg)

	var slow []*wsClient
	h.mu.RLock()
	for client := range h.clients {
		if !client.enqueue(msg) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.Printf("[WebSocket] Dropping slow client")
		h.remove(client)
	}
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.close()
	}
	return nil
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.close()
}

func (h *Hub) readLoop(client *wsClient) {
	ws := client.conn
	ws.SetReadLimit(h.maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Connection error: %v", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case MsgTypePing:
			client.enqueue(encodeMessage(WSMessage{Type: MsgTypePong, ID: msg.ID}))
		default:
			client.enqueue(encodeMessage(WSMessage{
				Type:    MsgTypeError,
				ID:      msg.ID,
				Payload: mustJSON(map[string]string{"message": "Unknown message type: " + msg.Type}),
			}))
		}
	}
}

// enqueue queues msg without blocking. It reports false when the client is
// closed or its buffer is full.
func (cl *wsClient) enqueue(msg []byte) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.closed {
		return false
	}
	select {
	case cl.send <- msg:
		return true
	default:
		return false
	}
}

func (cl *wsClient) close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if !cl.closed {
		cl.closed = true
		close(cl.send)
	}
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeMessage(msg WSMessage) []byte {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	data, _ := json.Marshal(msg)
	return data
}

func mustJSON(v interface{}) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

var _ events.Publisher = (*Hub)(nil)
