package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"govbid/internal/logger"
)

// JobEvent reports a pipeline job status transition.
type JobEvent struct {
	JobID    uuid.UUID `json:"job_id"`
	BidID    uuid.UUID `json:"bid_id"`
	UserID   uuid.UUID `json:"user_id"`
	Kind     string    `json:"kind"`
	Status   string    `json:"status"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan JobEvent
	done     chan struct{}
	once     sync.Once
}

// Hub fans job events out to the connected streams of the owning user.
type Hub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	clients   map[uuid.UUID]map[*Client]struct{}
	Heartbeat time.Duration
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:       log.With("component", "SSEHub"),
		clients:   make(map[uuid.UUID]map[*Client]struct{}),
		Heartbeat: 15 * time.Second,
	}
}

func (h *Hub) Register(userID uuid.UUID) *Client {
	c := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan JobEvent, 16),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.log.Debug("SSE client subscribed", "client_id", c.ID, "user_id", userID)
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	c.once.Do(func() { close(c.done) })
}

// Broadcast delivers ev to the owner's clients without blocking; a client
// whose buffer is full misses the event.
func (h *Hub) Broadcast(ev JobEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[ev.UserID] {
		select {
		case c.Outbound <- ev:
		default:
			h.log.Warn("Dropping SSE message; outbound buffer full", "client_id", c.ID)
		}
	}
}

// Serve streams events to c until the request ends.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, c *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-c.Outbound:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: job\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
