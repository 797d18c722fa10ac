package realtime

import (
	"sync"

	"chat-notify-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub is the process-wide connection registry. One live client per user: a
// later Register for the same user replaces the earlier mapping. Absence of
// a key means offline.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client

	prefs  *PreferenceStore
	logger logger.ILogger
}

func NewHub(prefs *PreferenceStore, log logger.ILogger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		prefs:   prefs,
		logger:  log,
	}
}

// Register inserts or replaces the mapping for the client's user. The
// displaced client, if any, has its session torn down without an explicit
// "replaced" event. Broadcasts presence exactly once per call.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	prev, replaced := h.clients[c.UserID]
	h.clients[c.UserID] = c
	h.mu.Unlock()

	if replaced && prev != c {
		prev.shutdown()
	}

	// Preference record is created lazily on first connection.
	h.prefs.GetOrInit(c.UserID)

	h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": c.UserID})
	h.broadcastPresence()
}

// Unregister removes the mapping only if the registry still points at this
// exact client. A stale disconnect arriving after a reconnect must not evict
// the newer session. Broadcasts presence exactly once per call.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.UserID]; ok && cur == c {
		delete(h.clients, c.UserID)
		h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": c.UserID})
	}
	h.mu.Unlock()

	c.shutdown()
	h.broadcastPresence()
}

// Lookup returns the current live client for a user. The result is a
// point-in-time snapshot that can go stale immediately; callers treat a miss
// as offline, never as an error.
func (h *Hub) Lookup(userID uuid.UUID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	return c, ok
}

// IsOnline reports whether the user currently holds a live connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	_, ok := h.Lookup(userID)
	return ok
}

// OnlineUsers recomputes the presence set from the registry. Never cached.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.clients))
	for id := range h.clients {
		users = append(users, id.String())
	}
	return users
}

// SendEvent pushes one typed event to the user's live client, if any.
// Best-effort: offline targets and full send buffers are silent no-ops.
func (h *Hub) SendEvent(userID uuid.UUID, event string, payload interface{}) {
	target, ok := h.Lookup(userID)
	if !ok {
		return
	}

	data, err := EncodeEvent(event, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}

	if !target.enqueue(data) {
		h.logger.Warn("Hub", "Client send buffer full, dropping event", map[string]interface{}{"user_id": userID, "event": event})
	}
}

// broadcastPresence pushes the full online-user set to every registered
// client. Full-state replace, no deltas.
func (h *Hub) broadcastPresence() {
	data, err := EncodeEvent(EventOnlineUsers, h.OnlineUsers())
	if err != nil {
		h.logger.Error("Hub", "Failed to encode presence broadcast", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.logger.Warn("Hub", "Client send buffer full, dropping presence update", map[string]interface{}{"user_id": c.UserID})
		}
	}
}
