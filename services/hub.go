package services

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/grandebingo/bingo90-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans engine events out to every connected observer. The engine emits
// while holding its own mutex, so Broadcast only appends to a queue and never
// blocks; the run loop drains the queue in order, and all delivery runs
// through that one loop, so clients see events exactly as the engine
// committed them.
type Hub struct {
	game       *Engine
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	mu    sync.Mutex
	queue []WSMessage
	wake  chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		wake:       make(chan struct{}, 1),
	}
}

// AttachEngine wires the engine in after construction; hub and engine
// reference each other.
func (h *Hub) AttachEngine(e *Engine) {
	h.game = e
}

func (h *Hub) Start() {
	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			// drain events committed before this client existed, then take
			// the snapshot; everything still queued afterwards is newer than
			// the snapshot, so this client never sees state regress
			h.flush()
			h.clients[client] = true
			h.game.ClientConnected()
			client.emit(EvInitialState, h.game.Snapshot())
			logger.Debugf("client connected (total=%d)", len(h.clients))

		case client := <-h.unregister:
			h.flush()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				h.game.ClientDisconnected()
			}
			logger.Debugf("client disconnected (total=%d)", len(h.clients))

		case <-h.wake:
			h.flush()
		}
	}
}

// flush delivers every queued event, oldest first.
func (h *Hub) flush() {
	h.mu.Lock()
	pending := h.queue
	h.queue = nil
	h.mu.Unlock()

	for _, msg := range pending {
		b, err := json.Marshal(msg)
		if err != nil {
			logger.Errorf("marshal %s event: %v", msg.Event, err)
			continue
		}
		for client := range h.clients {
			select {
			case client.send <- b:
			default:
				logger.Warnf("dropping %s event to slow client", msg.Event)
			}
		}
	}
}

// Broadcast implements Broadcaster. Non-blocking: the caller may hold the
// engine mutex.
func (h *Hub) Broadcast(event string, data any) {
	h.mu.Lock()
	h.queue = append(h.queue, WSMessage{Event: event, Data: data})
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// ServeWS upgrades the connection and registers the observer.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("websocket upgrade: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
