package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bus fans events out to Redis pub/sub, Redis Streams (for replay), and
// the WebSocket hub feeding the dashboard.
type Bus struct {
	rdb     *redis.Client
	log     *zap.Logger
	ctx     context.Context
	wsHub   WSHub
	streams *Streams
}

type WSHub interface {
	Publish(channel string, message map[string]interface{})
}

func New(rdb *redis.Client, log *zap.Logger) *Bus {
	return &Bus{
		rdb:     rdb,
		log:     log,
		ctx:     context.Background(),
		streams: NewStreams(rdb, log),
	}
}

// SetWSHub sets the WebSocket hub for event broadcasting
func (b *Bus) SetWSHub(hub WSHub) {
	b.wsHub = hub
}

// GetStreams returns the streams provider
func (b *Bus) GetStreams() *Streams {
	return b.streams
}

// PublishInteraction publishes an event to an interaction's channel
func (b *Bus) PublishInteraction(interactionID string, event map[string]interface{}) error {
	return b.Publish("interaction:"+interactionID, event)
}

// PublishView publishes an event to a view's inbox channel
func (b *Bus) PublishView(viewID string, event map[string]interface{}) error {
	return b.Publish("view:"+viewID, event)
}

// PublishWorkflows publishes an event to the shared workflow channel
func (b *Bus) PublishWorkflows(event map[string]interface{}) error {
	return b.Publish("workflows", event)
}

// Publish publishes an event to a channel
func (b *Bus) Publish(channel string, event map[string]interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := b.rdb.Publish(b.ctx, channel, data).Err(); err != nil {
		b.log.Error("Failed to publish event", zap.String("channel", channel), zap.Error(err))
		return err
	}

	// Also land it in the stream so reconnecting dashboards can replay.
	seq, err := b.streams.PublishEvent(channel, event)
	if err != nil {
		b.log.Warn("Failed to publish to stream", zap.String("channel", channel), zap.Error(err))
	}

	eventWithSeq := make(map[string]interface{}, len(event)+1)
	for k, v := range event {
		eventWithSeq[k] = v
	}
	eventWithSeq["seq"] = seq

	if b.wsHub != nil {
		b.wsHub.Publish(channel, eventWithSeq)
	}
	return nil
}
