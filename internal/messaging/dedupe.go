package messaging

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses webhook redeliveries by remembering message IDs
// for a fixed window.
type Deduper struct {
	client *redis.Client
	window time.Duration
}

func NewDeduper(client *redis.Client, window time.Duration) *Deduper {
	return &Deduper{client: client, window: window}
}

// Seen records the message ID and reports whether it was already known.
// The claim and the check are a single SETNX so concurrent deliveries
// of the same ID cannot both pass.
func (d *Deduper) Seen(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	fresh, err := d.client.SetNX(ctx, dedupeKey(messageID), 1, d.window).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

func dedupeKey(messageID string) string {
	return "dedupe:msg:" + messageID
}
