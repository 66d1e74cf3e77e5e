package server

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/pulsefeed/pulsefeed-go/model"
	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

const topicNotifications = "notifications"

// NotificationEvent is the bus payload for a freshly created notification.
// The hub forwards it to the recipient's websocket connections.
type NotificationEvent struct {
	UserID  int                    `json:"user_id"`
	Type    model.NotificationType `json:"type"`
	ActorID int                    `json:"actor_id"`
	PostID  *int                   `json:"post_id,omitempty"`
}

// NewEventBus creates the in-process pub/sub that decouples request handlers
// from websocket delivery.
func NewEventBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
}

// PublishNotification puts event on the bus. Handlers call this and move on;
// delivery is the subscriber's problem.
func PublishNotification(bus *gochannel.GoChannel, event NotificationEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Log.WithError(err).Error("marshal notification event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := bus.Publish(topicNotifications, msg); err != nil {
		log.Log.WithError(err).Error("publish notification event")
	}
}

// ForwardNotifications subscribes to the bus and pushes each event to the
// recipient over the hub. Runs until the bus closes.
func ForwardNotifications(ctx context.Context, bus *gochannel.GoChannel, hub *Hub) error {
	messages, err := bus.Subscribe(ctx, topicNotifications)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			var event NotificationEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Log.WithError(err).Error("decode notification event")
				msg.Ack()
				continue
			}
			hub.BroadcastToUser(event.UserID, map[string]interface{}{
				"type": "notification",
				"data": event,
			})
			msg.Ack()
		}
	}()
	return nil
}
