// Package notifications provides the real-time fan-out layer: a
// room-centric WebSocket hub bridged across processes by Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// roomFrame is the payload published on chat room channels. Origin is
// the connection id of the sender so the origin process can exclude it
// from the local broadcast.
type roomFrame struct {
	Origin   string          `json:"origin,omitempty"`
	Envelope json.RawMessage `json:"envelope"`
}

// Notifier publishes fan-out payloads into Redis channels. With a nil
// Redis client every publish reports ErrDisabled and callers fall back
// to in-process delivery.
type Notifier struct {
	rdb *redis.Client
}

// ErrDisabled is returned by publish methods when Redis is not configured.
var ErrDisabled = fmt.Errorf("notifier disabled: no redis client")

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether cross-process delivery is available.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishRoom publishes an already-encoded envelope to a chat room
// channel, tagged with the originating connection id.
func (n *Notifier) PublishRoom(ctx context.Context, chatID uint, originConnID string, envelope []byte) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	frame, err := json.Marshal(roomFrame{Origin: originConnID, Envelope: envelope})
	if err != nil {
		return fmt.Errorf("marshal room frame: %w", err)
	}
	return n.rdb.Publish(ctx, RoomChannel(chatID), frame).Err()
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	return n.rdb.Publish(ctx, "notifications:broadcast", payload).Err()
}

// StartRoomSubscriber subscribes to `chat:room:*` and invokes onFrame
// for each incoming frame with the parsed chat id.
func (n *Notifier) StartRoomSubscriber(
	ctx context.Context, onFrame func(chatID uint, origin string, envelope []byte),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "chat:room:*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in RoomSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					var chatID uint
					if _, err := fmt.Sscanf(msg.Channel, "chat:room:%d", &chatID); err != nil {
						log.Printf("invalid room channel: %s", msg.Channel)
						return
					}
					var frame roomFrame
					if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
						log.Printf("invalid room frame on %s: %v", msg.Channel, err)
						return
					}
					onFrame(chatID, frame.Origin, frame.Envelope)
				}()
			}
		}
	}()

	return nil
}

// StartUserSubscriber subscribes to per-user and broadcast notification
// channels. onMessage receives 0 as userID for broadcast payloads.
func (n *Notifier) StartUserSubscriber(
	ctx context.Context, onMessage func(userID uint, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", "notifications:broadcast")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in UserSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					if msg.Channel == "notifications:broadcast" {
						onMessage(0, msg.Payload)
						return
					}
					var userID uint
					if _, err := fmt.Sscanf(msg.Channel, "notifications:user:%d", &userID); err != nil {
						log.Printf("invalid notification channel: %s", msg.Channel)
						return
					}
					onMessage(userID, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// RoomChannel derives the Redis channel name for a chat room.
func RoomChannel(chatID uint) string {
	return "chat:room:" + strconv.FormatUint(uint64(chatID), 10)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
