package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/middleware"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/services"
)

// Hub relays analysis progress from Redis pub/sub to websocket clients. One
// subscription is held per analysis while at least one client watches it.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tickets     *middleware.Tickets
	upgrader    websocket.Upgrader
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

// NewHub returns a hub. redisClient may be nil, in which case every
// connection attempt is answered with 503.
func NewHub(redisClient *redis.Client, tickets *middleware.Tickets, frontendURL string) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		tickets:     tickets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(frontendURL),
		},
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

func originChecker(frontendURL string) func(r *http.Request) bool {
	allowed, err := url.Parse(frontendURL)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if err != nil {
			return false
		}
		u, perr := url.Parse(origin)
		if perr != nil {
			return false
		}
		return strings.EqualFold(u.Scheme, allowed.Scheme) && strings.EqualFold(u.Host, allowed.Host)
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.redisClient == nil {
		writeError(w, http.StatusServiceUnavailable, "Progress updates are not available.")
		return
	}

	analysisID, err := h.tickets.Verify(r.URL.Query().Get("ticket"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired analysis ticket.")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(analysisID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(analysisID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(analysisID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[analysisID] = append(h.connections[analysisID], conn)

	if len(h.connections[analysisID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[analysisID] = cancel
		go h.subscribeToPubSub(ctx, analysisID)
	}

	log.Printf("WebSocket connected: analysis %s (total: %d)", analysisID, len(h.connections[analysisID]))
}

func (h *Hub) unregisterConnection(analysisID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[analysisID]
	for i, c := range conns {
		if c == conn {
			h.connections[analysisID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[analysisID]) == 0 {
		delete(h.connections, analysisID)
		if cancel, ok := h.cancelFuncs[analysisID]; ok {
			cancel()
			delete(h.cancelFuncs, analysisID)
		}
	}

	log.Printf("WebSocket disconnected: analysis %s", analysisID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, analysisID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, services.ProgressChannel(analysisID.String()))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(analysisID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(analysisID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[analysisID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed for analysis %s: %v", analysisID, err)
		}
	}
}

// Close drops every connection and subscription. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conns := range h.connections {
		for _, conn := range conns {
			conn.Close()
		}
		delete(h.connections, id)
	}
	for id, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, id)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
