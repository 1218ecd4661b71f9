package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamEvent represents an event stored in Redis Streams
type StreamEvent struct {
	Channel   string
	Sequence  int64
	Event     map[string]interface{}
	Timestamp time.Time
}

// Streams manages Redis Streams for event replay
type Streams struct {
	rdb *redis.Client
	log *zap.Logger
	ctx context.Context
}

// NewStreams creates a new Streams manager
func NewStreams(rdb *redis.Client, log *zap.Logger) *Streams {
	return &Streams{
		rdb: rdb,
		log: log,
		ctx: context.Background(),
	}
}

// PublishEvent publishes an event to a Redis Stream with a per-channel
// sequence number.
func (s *Streams) PublishEvent(channel string, event map[string]interface{}) (int64, error) {
	streamKey := "stream:" + channel

	seq, err := s.rdb.Incr(s.ctx, "seq:"+channel).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	eventWithSeq := make(map[string]interface{}, len(event)+3)
	for k, v := range event {
		eventWithSeq[k] = v
	}
	eventWithSeq["seq"] = seq
	eventWithSeq["channel"] = channel
	eventWithSeq["timestamp"] = time.Now().Format(time.RFC3339)

	eventData, err := json.Marshal(eventWithSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	args := redis.XAddArgs{
		Stream: streamKey,
		ID:     "*",
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(eventData),
		},
	}
	if _, err := s.rdb.XAdd(s.ctx, &args).Result(); err != nil {
		return 0, fmt.Errorf("failed to add to stream: %w", err)
	}

	s.log.Debug("Published event to stream",
		zap.String("channel", channel),
		zap.Int64("sequence", seq),
	)
	return seq, nil
}

// GetLastSequence gets the last acknowledged sequence for a channel and
// connection.
func (s *Streams) GetLastSequence(channel, connectionID string) (int64, error) {
	seqStr, err := s.rdb.Get(s.ctx, ackKey(channel, connectionID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get last sequence: %w", err)
	}

	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sequence: %w", err)
	}
	return seq, nil
}

// AcknowledgeSequence records an acknowledgment for a sequence number
func (s *Streams) AcknowledgeSequence(channel, connectionID string, sequence int64) error {
	if err := s.rdb.Set(s.ctx, ackKey(channel, connectionID), sequence, 0).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge sequence: %w", err)
	}
	return nil
}

func ackKey(channel, connectionID string) string {
	return fmt.Sprintf("ack:%s:%s", channel, connectionID)
}

// ReplayEvents replays events from a given sequence number
func (s *Streams) ReplayEvents(channel string, sinceSeq int64, limit int64) ([]StreamEvent, error) {
	streamKey := "stream:" + channel

	res, err := s.rdb.XRange(s.ctx, streamKey, "-", "+").Result()
	if err == redis.Nil {
		return []StreamEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}

	var events []StreamEvent
	for _, msg := range res {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}

		var eventData map[string]interface{}
		if err := json.Unmarshal([]byte(data), &eventData); err != nil {
			s.log.Warn("Failed to unmarshal stream event", zap.Error(err))
			continue
		}

		seqF, _ := eventData["seq"].(float64)
		seq := int64(seqF)
		if seq <= sinceSeq {
			continue
		}

		channelName, _ := eventData["channel"].(string)
		timestamp := time.Now()
		if ts, _ := eventData["timestamp"].(string); ts != "" {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				timestamp = parsed
			}
		}

		event := make(map[string]interface{})
		for k, v := range eventData {
			if k != "seq" && k != "channel" && k != "timestamp" {
				event[k] = v
			}
		}

		events = append(events, StreamEvent{
			Channel:   channelName,
			Sequence:  seq,
			Event:     event,
			Timestamp: timestamp,
		})
		if int64(len(events)) >= limit {
			break
		}
	}
	return events, nil
}
