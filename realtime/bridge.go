package realtime

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Bridge carries events across instances through a redis pub/sub channel.
// Publish goes to redis; a Run loop on every instance replays received
// events into the local hub so each instance delivers to its own websocket
// clients.
type Bridge struct {
	rc      *redis.Client
	channel string
	hub     *Hub
	logger  *log.Logger
}

// NewBridge creates a bridge over the given redis channel.
func NewBridge(rc *redis.Client, channel string, hub *Hub, logger *log.Logger) *Bridge {
	return &Bridge{rc: rc, channel: channel, hub: hub, logger: logger}
}

// Publish sends the event through redis. Local delivery happens when the
// Run loop receives it back.
func (b *Bridge) Publish(ctx context.Context, projectID, event string, payload any) error {
	data, err := sonic.Marshal(Event{Project: projectID, Event: event, Payload: payload})
	if err != nil {
		return err
	}
	return b.rc.Publish(ctx, b.channel, data).Err()
}

// Run consumes the redis channel and fans received events into the local
// hub. It reconnects when the subscription drops and returns when ctx is
// done.
func (b *Bridge) Run(ctx context.Context) {
	for {
		sub := b.rc.Subscribe(ctx, b.channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var ev Event
				if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
					b.logger.Errorf("unable to parse event: %v", err)
					continue
				}
				if err := b.hub.Publish(ctx, ev.Project, ev.Event, ev.Payload); err != nil {
					b.logger.Errorf("deliver event: %v", err)
				}
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("event channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}
