package handler

import (
	"errors"
	"time"

	"chat-notify-be/internal/dto"
	"chat-notify-be/internal/pkg/logger"
	"chat-notify-be/internal/pkg/serverutils"
	"chat-notify-be/internal/realtime"
	"chat-notify-be/internal/repository"
	"chat-notify-be/internal/service"
	"chat-notify-be/pkg/events"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service   *service.NotificationService
	publisher events.Publisher
	hub       *realtime.Hub
	router    *realtime.Router
	logger    logger.ILogger
}

func NewNotificationHandler(svc *service.NotificationService, pub events.Publisher, hub *realtime.Hub, router *realtime.Router, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service:   svc,
		publisher: pub,
		hub:       hub,
		router:    router,
		logger:    log,
	}
}

// ServeWs upgrades the connection and runs the realtime session. The JWT is
// the handshake parameter carrying the user id: a valid token registers the
// session for presence, anything else yields an anonymous session that is
// never registered.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	userID := uuid.Nil
	if tokenStr != "" {
		uid, err := serverutils.ParseUserID(tokenStr)
		if err != nil {
			h.logger.Warn("NotificationHandler", "Invalid token in WS handshake, serving anonymous session", map[string]interface{}{"error": err.Error()})
		} else {
			userID = uid
		}
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			realtime.ServeWS(h.hub, h.router, conn, userID)
			h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// GetNotifications returns one page of the caller's notifications.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, ok := serverutils.UserIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	resp, err := h.service.List(c.UserContext(), userID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(resp)
}

// MarkAsRead marks a specific notification as read.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, ok := serverutils.UserIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	if err := h.service.MarkAsRead(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true})
}

// MarkAllAsRead marks all the caller's notifications as read.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, ok := serverutils.UserIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	updated, err := h.service.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true, "updated": updated})
}

// DeleteNotification deletes one notification. No realtime push: the caller
// initiated the delete and already knows.
func (h *NotificationHandler) DeleteNotification(c *fiber.Ctx) error {
	userID, ok := serverutils.UserIDFromLocals(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ID"})
	}

	if _, err := h.service.Delete(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true})
}

// TriggerEvent publishes a domain event to exercise the fan-out flow.
func (h *NotificationHandler) TriggerEvent(c *fiber.Ctx) error {
	var req dto.TriggerEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := dto.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}
	if _, ok := req.Payload["recipient_id"]; !ok {
		if uid, ok := serverutils.UserIDFromLocals(c); ok {
			req.Payload["recipient_id"] = uid.String()
		}
	}

	if h.publisher == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Event publisher not configured"})
	}

	evt := events.BaseEvent{
		Type:       req.Type,
		Data:       req.Payload,
		OccurredAt: time.Now(),
	}
	if err := h.publisher.Publish(c.UserContext(), evt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"status": "Event Published", "event": req.Type})
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")

	// WebSocket handshake carries its own credentials
	notif.Get("/ws", h.ServeWs)

	notif.Use(serverutils.JwtMiddleware)
	notif.Get("/", h.GetNotifications)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Patch("/:id/read", h.MarkAsRead)
	notif.Delete("/:id", h.DeleteNotification)

	debug := router.Group("/debug")
	debug.Use(serverutils.JwtMiddleware)
	debug.Post("/trigger-notification", h.TriggerEvent)
}
