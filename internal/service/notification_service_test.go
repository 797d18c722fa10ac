package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-notify-be/internal/model"
	"chat-notify-be/internal/pkg/logger"
	"chat-notify-be/internal/realtime"
	"chat-notify-be/internal/repository"
	"chat-notify-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	byID      map[uuid.UUID]*model.Notification
	users     map[uuid.UUID]*model.User
	unread    int64
	markAll   int64
	createErr error
	markErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:  make(map[uuid.UUID]*model.Notification),
		users: make(map[uuid.UUID]*model.User),
	}
}

func (r *fakeRepo) Create(ctx context.Context, n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byID[n.ID] = n
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if sender, ok := r.users[n.SenderID]; ok {
		enriched := *n
		enriched.Sender = sender
		return &enriched, nil
	}
	return n, nil
}

func (r *fakeRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	var items []model.Notification
	for _, n := range r.byID {
		if n.RecipientID == recipientID {
			items = append(items, *n)
		}
	}
	return items, int64(len(items)), nil
}

func (r *fakeRepo) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return r.unread, nil
}

func (r *fakeRepo) MarkAsRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	if r.markErr != nil {
		return r.markErr
	}
	n, ok := r.byID[notificationID]
	if !ok || n.RecipientID != recipientID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r *fakeRepo) MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return r.markAll, nil
}

func (r *fakeRepo) Delete(ctx context.Context, recipientID, notificationID uuid.UUID) (*model.Notification, error) {
	n, ok := r.byID[notificationID]
	if !ok || n.RecipientID != recipientID {
		return nil, repository.ErrNotFound
	}
	delete(r.byID, notificationID)
	return n, nil
}

func (r *fakeRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type sentEvent struct {
	userID  uuid.UUID
	event   string
	payload interface{}
}

type fakeDelivery struct {
	online map[uuid.UUID]bool
	sent   []sentEvent
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{online: make(map[uuid.UUID]bool)}
}

func (d *fakeDelivery) IsOnline(userID uuid.UUID) bool {
	return d.online[userID]
}

func (d *fakeDelivery) SendEvent(userID uuid.UUID, event string, payload interface{}) {
	d.sent = append(d.sent, sentEvent{userID: userID, event: event, payload: payload})
}

func newTestService(repo *fakeRepo, delivery *fakeDelivery) *NotificationService {
	return NewNotificationService(repo, nil, delivery, nil, logger.Nop())
}

func TestCreateForOnlineRecipientPushesOrderedPair(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	sender := uuid.New()
	repo.users[sender] = &model.User{ID: sender, FullName: "Alice", ProfilePic: "alice.png"}
	delivery.online[bob] = true
	repo.unread = 4

	notif, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: bob,
		SenderID:    sender,
		Type:        model.NotificationTypeMessage,
		Title:       "New message",
		Message:     "hello",
	})
	require.NoError(t, err)
	require.NotNil(t, notif)
	require.NotNil(t, notif.Sender, "push payload must carry the enriched sender")
	assert.Equal(t, "Alice", notif.Sender.FullName)

	require.Len(t, delivery.sent, 2)
	assert.Equal(t, realtime.EventNewNotification, delivery.sent[0].event)
	assert.Equal(t, bob, delivery.sent[0].userID)
	assert.Equal(t, realtime.EventUnreadCount, delivery.sent[1].event)
	assert.Equal(t, int64(4), delivery.sent[1].payload)
}

func TestCreateForOfflineRecipientPushesNothing(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	notif, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: bob,
		SenderID:    uuid.New(),
		Title:       "t",
		Message:     "m",
	})
	require.NoError(t, err)

	assert.Empty(t, delivery.sent)
	// The durable write still happened.
	_, err = repo.GetByID(context.Background(), notif.ID)
	assert.NoError(t, err)
}

func TestCreateStoreFailureSkipsFanout(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("db down")
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	delivery.online[bob] = true

	_, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: bob,
		SenderID:    uuid.New(),
		Title:       "t",
		Message:     "m",
	})
	require.Error(t, err)
	assert.Empty(t, delivery.sent, "no fan-out after a failed durable write")
}

func TestCreateDefaultsType(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeDelivery())

	notif, err := svc.Create(context.Background(), CreateNotificationInput{
		RecipientID: uuid.New(),
		SenderID:    uuid.New(),
		Title:       "t",
		Message:     "m",
	})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationTypeMessage, notif.Type)
}

func TestMarkAsReadPushesFreshCount(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	id := uuid.New()
	repo.byID[id] = &model.Notification{ID: id, RecipientID: bob}
	delivery.online[bob] = true
	repo.unread = 3

	require.NoError(t, svc.MarkAsRead(context.Background(), bob, id))

	require.Len(t, delivery.sent, 1)
	assert.Equal(t, realtime.EventUnreadCount, delivery.sent[0].event)
	assert.Equal(t, int64(3), delivery.sent[0].payload)
}

func TestMarkAsReadNotFound(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	delivery.online[bob] = true

	err := svc.MarkAsRead(context.Background(), bob, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, delivery.sent, "a failed mutation never triggers fan-out")
}

func TestMarkAsReadOfflineRecipientNoPush(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	id := uuid.New()
	repo.byID[id] = &model.Notification{ID: id, RecipientID: bob}

	require.NoError(t, svc.MarkAsRead(context.Background(), bob, id))
	assert.Empty(t, delivery.sent)
}

func TestMarkAllAsReadReportsCountRegardlessOfPresence(t *testing.T) {
	repo := newFakeRepo()
	repo.markAll = 5
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()

	// Offline: durable count still reported, nothing pushed.
	updated, err := svc.MarkAllAsRead(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated)
	assert.Empty(t, delivery.sent)

	// Online: one unreadCountUpdate(0).
	delivery.online[bob] = true
	updated, err = svc.MarkAllAsRead(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated)
	require.Len(t, delivery.sent, 1)
	assert.Equal(t, realtime.EventUnreadCount, delivery.sent[0].event)
	assert.Equal(t, int64(0), delivery.sent[0].payload)
}

func TestDeleteNeverPushes(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	id := uuid.New()
	repo.byID[id] = &model.Notification{ID: id, RecipientID: bob}
	delivery.online[bob] = true

	deleted, err := svc.Delete(context.Background(), bob, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.ID)
	assert.Empty(t, delivery.sent)

	_, err = svc.Delete(context.Background(), bob, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandleEventCreatesAndFansOut(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	bob := uuid.New()
	sender := uuid.New()
	delivery.online[bob] = true
	repo.unread = 1

	// Subject as delivered by the NATS backend, prefix included.
	evt := events.BaseEvent{
		Type: "events.MESSAGE_SENT",
		Data: map[string]interface{}{
			"recipient_id": bob.String(),
			"sender_id":    sender.String(),
			"title":        "New message",
			"message":      "hey",
		},
		OccurredAt: time.Now(),
	}

	require.NoError(t, svc.handleEvent(context.Background(), evt))

	require.Len(t, repo.byID, 1)
	for _, n := range repo.byID {
		assert.Equal(t, model.NotificationTypeMessage, n.Type)
		assert.Equal(t, bob, n.RecipientID)
	}
	require.Len(t, delivery.sent, 2)
	assert.Equal(t, realtime.EventNewNotification, delivery.sent[0].event)
	assert.Equal(t, realtime.EventUnreadCount, delivery.sent[1].event)
}

func TestHandleEventMissingRecipientIsDropped(t *testing.T) {
	repo := newFakeRepo()
	delivery := newFakeDelivery()
	svc := newTestService(repo, delivery)

	evt := events.BaseEvent{
		Type:       "events.FRIEND_REQUEST",
		Data:       map[string]interface{}{"title": "x"},
		OccurredAt: time.Now(),
	}

	// Dropped, not retried: handler reports success.
	require.NoError(t, svc.handleEvent(context.Background(), evt))
	assert.Empty(t, repo.byID)
	assert.Empty(t, delivery.sent)
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeDelivery())

	evt := events.BaseEvent{
		Type:       "events.PAYMENT_SETTLED",
		Data:       map[string]interface{}{"recipient_id": uuid.New().String()},
		OccurredAt: time.Now(),
	}

	require.NoError(t, svc.handleEvent(context.Background(), evt))
	assert.Empty(t, repo.byID)
}

func TestListPaginationAggregates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, newFakeDelivery())

	bob := uuid.New()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		repo.byID[id] = &model.Notification{ID: id, RecipientID: bob}
	}
	repo.unread = 2

	resp, err := svc.List(context.Background(), bob, 0, 0) // defaults kick in
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, int64(2), resp.UnreadCount)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Len(t, resp.Data, 3)
}
