// Package queue publishes conversion work onto per-backend Redis
// streams. Each backend worker pool consumes exactly one stream.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	r      redis.UniversalClient
	prefix string
	maxLen int64
}

func NewProducer(r redis.UniversalClient, streamPrefix string, maxLen int64) *Producer {
	return &Producer{r: r, prefix: streamPrefix, maxLen: maxLen}
}

func (p *Producer) stream(backend string) string {
	return p.prefix + ":" + backend
}

// Publish encodes the message as JSON and appends it to the named
// backend's stream. Delivery is at-least-once; ordering holds within a
// single stream only. A failure here affects this backend alone, the
// caller decides what to do about the rest of the fan-out.
func (p *Producer) Publish(ctx context.Context, backend string, msg TaskMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode task for %s: %w", backend, err)
	}
	err = p.r.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream(backend),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"payload": string(raw),
			"attempt": 0,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", backend, err)
	}
	return nil
}
