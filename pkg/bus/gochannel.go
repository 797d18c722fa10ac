package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-notify-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// eventsTopic is the single topic the in-process bus uses. The event type
// travels in message metadata instead of the topic name because gochannel
// topics have no wildcard matching.
const eventsTopic = "events"

const metaEventType = "event_type"

// GoChannelBus is the in-process event bus used when NATS is not configured.
// It implements both events.Publisher and events.Subscriber.
type GoChannelBus struct {
	pubSub *gochannel.GoChannel
}

// NewGoChannelBus creates an in-memory pub/sub backed by watermill gochannel.
func NewGoChannelBus() *GoChannelBus {
	return &GoChannelBus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{},
			watermill.NewStdLogger(false, false),
		),
	}
}

// Publish sends an event to all current subscribers.
func (b *GoChannelBus) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaEventType, event.EventType())
	msg.SetContext(ctx)

	return b.pubSub.Publish(eventsTopic, msg)
}

// Subscribe binds handler to the bus. The subject pattern and durable name
// are accepted for contract parity with the NATS backend; gochannel delivers
// every event to every subscriber and holds no consumer state.
func (b *GoChannelBus) Subscribe(subject string, durableName string, handler events.Handler) error {
	msgs, err := b.pubSub.Subscribe(context.Background(), eventsTopic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", eventsTopic, err)
	}

	go func() {
		for msg := range msgs {
			var payload map[string]interface{}
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				msg.Nack()
				continue
			}

			event := events.BaseEvent{
				Type:       msg.Metadata.Get(metaEventType),
				Data:       payload,
				OccurredAt: time.Now(),
			}

			if err := handler(msg.Context(), event); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts down the pub/sub and terminates subscriber goroutines.
func (b *GoChannelBus) Close() {
	b.pubSub.Close()
}
