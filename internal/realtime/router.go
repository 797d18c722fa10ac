package realtime

import (
	"encoding/json"

	"chat-notify-be/internal/pkg/logger"

	"github.com/google/uuid"
)

type handlerFunc func(c *Client, data json.RawMessage)

// Router dispatches inbound session events to their targets. Routing to an
// offline or unknown user is normal steady-state behavior, not an error:
// the event is dropped and the dispatch loop carries on.
type Router struct {
	hub      *Hub
	prefs    *PreferenceStore
	logger   logger.ILogger
	handlers map[string]handlerFunc
}

func NewRouter(hub *Hub, prefs *PreferenceStore, log logger.ILogger) *Router {
	r := &Router{
		hub:    hub,
		prefs:  prefs,
		logger: log,
	}
	r.handlers = map[string]handlerFunc{
		EventTyping:            r.handleTyping,
		EventStopTyping:        r.handleStopTyping,
		EventUpdatePreferences: r.handleUpdatePreferences,
		EventMarkAsRead:        r.handleMarkAsRead,
	}
	return r
}

// Dispatch routes one raw inbound frame. Malformed frames and unknown events
// are logged and dropped; the connection stays open either way.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("Router", "Malformed inbound frame", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
		return
	}

	handler, ok := r.handlers[env.Event]
	if !ok {
		r.logger.Warn("Router", "Unknown inbound event", map[string]interface{}{"user_id": c.UserID, "event": env.Event})
		return
	}

	handler(c, env.Data)
}

func (r *Router) handleTyping(c *Client, data json.RawMessage) {
	if c.UserID == uuid.Nil {
		r.logger.Warn("Router", "Typing event from anonymous connection", nil)
		return
	}

	var payload TypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverID == uuid.Nil {
		r.logger.Warn("Router", "Malformed typing payload", map[string]interface{}{"user_id": c.UserID})
		return
	}

	r.deliverTo(payload.ReceiverID, EventUserTyping, UserTypingPayload{
		SenderID:   c.UserID,
		SenderName: payload.SenderName,
	})
}

func (r *Router) handleStopTyping(c *Client, data json.RawMessage) {
	if c.UserID == uuid.Nil {
		r.logger.Warn("Router", "StopTyping event from anonymous connection", nil)
		return
	}

	var payload StopTypingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ReceiverID == uuid.Nil {
		r.logger.Warn("Router", "Malformed stopTyping payload", map[string]interface{}{"user_id": c.UserID})
		return
	}

	r.deliverTo(payload.ReceiverID, EventUserStoppedTyping, UserStoppedTypingPayload{
		SenderID: c.UserID,
	})
}

func (r *Router) handleUpdatePreferences(c *Client, data json.RawMessage) {
	if c.UserID == uuid.Nil {
		r.logger.Warn("Router", "Preference update from anonymous connection", nil)
		return
	}

	var patch PreferencePatch
	if err := json.Unmarshal(data, &patch); err != nil {
		r.logger.Warn("Router", "Malformed preference patch", map[string]interface{}{"user_id": c.UserID})
		return
	}

	// Echo the full record back to the originating connection only.
	updated := r.prefs.Update(c.UserID, patch)
	r.echo(c, EventPreferencesEcho, updated)
}

// handleMarkAsRead is a pure UI echo. The durable read flag is mutated
// through the HTTP mark-as-read path; this event is not authoritative.
func (r *Router) handleMarkAsRead(c *Client, data json.RawMessage) {
	var payload MarkAsReadPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.NotificationID == uuid.Nil {
		r.logger.Warn("Router", "Malformed markAsRead payload", map[string]interface{}{"user_id": c.UserID})
		return
	}

	r.echo(c, EventMarkedAsReadEcho, payload)
}

func (r *Router) deliverTo(userID uuid.UUID, event string, payload interface{}) {
	target, ok := r.hub.Lookup(userID)
	if !ok {
		return // offline receiver, fire-and-forget
	}

	data, err := EncodeEvent(event, payload)
	if err != nil {
		r.logger.Error("Router", "Failed to encode event", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}
	target.enqueue(data)
}

func (r *Router) echo(c *Client, event string, payload interface{}) {
	data, err := EncodeEvent(event, payload)
	if err != nil {
		r.logger.Error("Router", "Failed to encode echo", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}
	c.enqueue(data)
}
