package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/constants"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PubSub publishes records to Redis channels and lets callers follow them.
type PubSub struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSub(client *redis.Client, logger *logrus.Logger) *PubSub {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSub{client: client, logger: logger}
}

// Channels lists the channels a record is published on.
func Channels(rec *Record) []string {
	return []string{
		constants.PubSubChannelExecutions,
		constants.PubSubChannelExecutionsIntent + rec.Intent,
		constants.PubSubChannelExecutionsState + rec.State,
	}
}

func (p *PubSub) PublishExecution(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	for _, channel := range Channels(rec) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish execution: %w", err)
	}
	return nil
}

// Follow delivers records published on channels matching pattern until
// ctx is done.
func (p *PubSub) Follow(ctx context.Context, pattern string, handler func(*Record)) error {
	sub := p.client.PSubscribe(ctx, pattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pattern, err)
	}
	p.logger.WithField("pattern", pattern).Info("subscribed to execution events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rec Record
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				p.logger.WithFields(logrus.Fields{
					"channel": msg.Channel,
					"error":   err,
				}).Warn("skipping malformed execution event")
				continue
			}
			handler(&rec)
		}
	}
}

func (p *PubSub) Close() error {
	return p.client.Close()
}
