package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chat-notify-be/internal/dto"
	"chat-notify-be/internal/model"
	"chat-notify-be/internal/pkg/logger"
	"chat-notify-be/internal/pkg/mailer"
	"chat-notify-be/internal/realtime"
	"chat-notify-be/internal/repository"
	"chat-notify-be/pkg/events"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery defines how to push real-time updates. Implemented by
// the realtime Hub. Delivery is best-effort and never gates a durable write.
type NotificationDelivery interface {
	IsOnline(userID uuid.UUID) bool
	SendEvent(userID uuid.UUID, event string, payload interface{})
}

// Domain event types consumed off the bus.
const (
	EventMessageSent        = "MESSAGE_SENT"
	EventFriendRequest      = "FRIEND_REQUEST"
	EventSystemAnnouncement = "SYSTEM_ANNOUNCEMENT"
)

type NotificationService struct {
	repo       repository.NotificationRepository
	subscriber events.Subscriber
	delivery   NotificationDelivery
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(repo repository.NotificationRepository, sub events.Subscriber, delivery NotificationDelivery, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		subscriber: sub,
		delivery:   delivery,
		mailer:     mail,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	if s.subscriber == nil {
		s.logger.Warn("NotificationService", "No event bus configured, skipping consumer", nil)
		return
	}

	if err := s.subscriber.Subscribe("events.>", "notif-fanout-worker", s.handleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start notification consumer", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("NotificationService", "Notification consumer started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	// NATS subjects carry the stream prefix, the in-process bus does not.
	typeCode := strings.TrimPrefix(event.EventType(), "events.")

	var notifType string
	switch typeCode {
	case EventMessageSent:
		notifType = model.NotificationTypeMessage
	case EventFriendRequest:
		notifType = model.NotificationTypeFriendRequest
	case EventSystemAnnouncement:
		notifType = model.NotificationTypeSystem
	default:
		s.logger.Debug("NotificationService", fmt.Sprintf("Ignoring event type %s", typeCode), nil)
		return nil
	}

	payload := event.Payload()

	recipientID, ok := uuidField(payload, "recipient_id")
	if !ok {
		// Malformed event: drop rather than retry forever.
		s.logger.Warn("NotificationService", "Event missing recipient_id, dropping", map[string]interface{}{"type": typeCode})
		return nil
	}
	senderID, _ := uuidField(payload, "sender_id")
	title, _ := payload["title"].(string)
	message, _ := payload["message"].(string)

	input := CreateNotificationInput{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notifType,
		Title:       title,
		Message:     message,
	}
	if mid, ok := uuidField(payload, "message_id"); ok {
		input.MessageID = &mid
	}
	if extra, ok := payload["data"].(map[string]interface{}); ok {
		input.Data = extra
	}

	_, err := s.Create(ctx, input)
	return err // store failure is returned so the bus can redeliver
}

type CreateNotificationInput struct {
	RecipientID uuid.UUID
	SenderID    uuid.UUID
	Type        string
	Title       string
	Message     string
	MessageID   *uuid.UUID
	Data        map[string]interface{}
}

// Create persists a notification and, if the recipient is live, pushes
// newNotification followed by the fresh unread count. The durable write
// succeeds or fails on its own; fan-out never changes the outcome.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*model.Notification, error) {
	if input.Type == "" {
		input.Type = model.NotificationTypeMessage
	}

	notification := &model.Notification{
		ID:          uuid.New(),
		RecipientID: input.RecipientID,
		SenderID:    input.SenderID,
		Type:        input.Type,
		Title:       input.Title,
		Message:     input.Message,
		MessageID:   input.MessageID,
		CreatedAt:   time.Now(),
	}
	if input.Data != nil {
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification data: %w", err)
		}
		notification.Data = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to save notification: %w", err)
	}

	// Reload with the sender preloaded so the push carries display name and
	// avatar. If enrichment fails we still push the bare record.
	enriched, err := s.repo.GetByID(ctx, notification.ID)
	if err != nil {
		s.logger.Warn("NotificationService", "Sender enrichment failed", map[string]interface{}{"id": notification.ID, "error": err.Error()})
		enriched = notification
	}

	if s.delivery.IsOnline(input.RecipientID) {
		count, err := s.repo.UnreadCount(ctx, input.RecipientID)
		if err != nil {
			s.logger.Error("NotificationService", "Unread count query failed, skipping push", map[string]interface{}{"error": err.Error()})
			return enriched, nil
		}
		// Order matters: content first, badge second.
		s.delivery.SendEvent(input.RecipientID, realtime.EventNewNotification, enriched)
		s.delivery.SendEvent(input.RecipientID, realtime.EventUnreadCount, count)
	} else if s.mailer != nil {
		go s.mailOffline(enriched)
	}

	return enriched, nil
}

func (s *NotificationService) mailOffline(notification *model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.repo.GetUserByID(ctx, notification.RecipientID)
	if err != nil {
		return
	}
	if err := s.mailer.SendNotificationDigest(user.Email, notification.Title, notification.Message); err != nil {
		s.logger.Warn("NotificationService", "Offline email failed", map[string]interface{}{"user_id": notification.RecipientID, "error": err.Error()})
	}
}

// List returns one page of the recipient's notifications plus aggregates.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page, limit int) (*dto.ListNotificationsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	items, total, err := s.repo.ListByRecipient(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ListNotificationsResponse{
		Data:        items,
		UnreadCount: unread,
		Page:        page,
		TotalPages:  totalPages,
		Total:       total,
	}, nil
}

// MarkAsRead flips the read flag and pushes the fresh unread count to a live
// recipient. Returns repository.ErrNotFound for absent or foreign ids.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, userID, notificationID); err != nil {
		return err
	}

	if s.delivery.IsOnline(userID) {
		count, err := s.repo.UnreadCount(ctx, userID)
		if err != nil {
			s.logger.Error("NotificationService", "Unread count query failed after mark-read", map[string]interface{}{"error": err.Error()})
			return nil
		}
		s.delivery.SendEvent(userID, realtime.EventUnreadCount, count)
	}
	return nil
}

// MarkAllAsRead returns the number of rows updated regardless of presence.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.delivery.IsOnline(userID) {
		s.delivery.SendEvent(userID, realtime.EventUnreadCount, int64(0))
	}
	return updated, nil
}

// Delete removes a notification. The client initiated it, so there is
// nothing to push.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uuid.UUID) (*model.Notification, error) {
	return s.repo.Delete(ctx, userID, notificationID)
}

func uuidField(payload map[string]interface{}, key string) (uuid.UUID, bool) {
	str, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
