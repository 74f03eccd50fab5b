package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

const (
	channelPrefix = "job_updates:"
	writeWait     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans generation progress out to websocket clients watching a job id.
// With a Redis client, events travel over pub/sub so any instance can serve
// the socket; without one they are delivered in-process.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if _, err := uuid.Parse(jobID); err != nil {
		http.Error(w, "jobId must be a UUID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(jobID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(jobID, conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

// Publish delivers msg to every client watching jobID.
func (h *Hub) Publish(ctx context.Context, jobID string, msg models.WSMessage) {
	if jobID == "" {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if h.redisClient != nil {
		if err := h.redisClient.Publish(ctx, channelPrefix+jobID, string(data)).Err(); err != nil {
			log.Printf("failed to publish progress for job %s: %v", jobID, err)
		}
		return
	}
	h.broadcast(jobID, data)
}

// ConnectionCount reports the open sockets for jobID.
func (h *Hub) ConnectionCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[jobID])
}

func (h *Hub) registerConnection(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[jobID] = append(h.connections[jobID], conn)

	// Start pub/sub subscription if this is the first connection for this job
	if h.redisClient != nil && len(h.connections[jobID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[jobID] = cancel
		go h.subscribeToPubSub(ctx, jobID)
	}

	log.Printf("WebSocket connected: job %s (total: %d)", jobID, len(h.connections[jobID]))
}

func (h *Hub) unregisterConnection(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[jobID]
	for i, c := range conns {
		if c == conn {
			h.connections[jobID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[jobID]) == 0 {
		delete(h.connections, jobID)
		if cancel, ok := h.cancelFuncs[jobID]; ok {
			cancel()
			delete(h.cancelFuncs, jobID)
		}
	}

	log.Printf("WebSocket disconnected: job %s", jobID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, jobID string) {
	pubsub := h.redisClient.Subscribe(ctx, channelPrefix+jobID)
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
			h.broadcast(jobID, []byte(msg.Payload))
		}
	}
}

// broadcast holds the write lock: a gorilla connection allows one writer at
// a time and publishers for the same job may run concurrently.
func (h *Hub) broadcast(jobID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[jobID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("WebSocket write failed for job %s: %v", jobID, err)
		}
	}
}
