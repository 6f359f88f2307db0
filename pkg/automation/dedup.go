package automation

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// EventDeduper guards the worker against redelivered events: the bus
// provides at-least-once delivery, the engine must consume each event
// exactly once.
type EventDeduper interface {
	// Seen marks the event ID as processed and reports whether it had been
	// processed before.
	Seen(ctx context.Context, eventID string) (bool, error)

	// Forget releases the claim on an event ID so a redelivery can be
	// processed again. Callers use it when handling fails after Seen.
	Forget(ctx context.Context, eventID string) error
}

// RedisDeduper tracks processed event IDs in Redis with a TTL, shared
// across worker replicas.
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: "automation:events:"}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	created, err := d.client.SetNX(ctx, d.prefix+eventID, 1, dedupTTL).Result()
	if err != nil {
		return false, err
	}

	return !created, nil
}

func (d *RedisDeduper) Forget(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, d.prefix+eventID).Err()
}

// MemoryDeduper tracks processed event IDs in process memory, for tests and
// single-instance development setups.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[eventID]; ok {
		return true, nil
	}

	d.seen[eventID] = struct{}{}

	return false, nil
}

func (d *MemoryDeduper) Forget(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.seen, eventID)

	return nil
}
