package cmd

import (
	"github.com/dealerdesk/automation/pkg/automation"
	"github.com/redis/go-redis/v9"
)

// NewDeduper returns a Redis-backed deduper when a Redis URL is configured,
// otherwise the per-process in-memory one. Single-instance deployments on
// the in-process bus do not need Redis; Kafka deployments should set it so
// redeliveries are filtered across worker restarts.
func NewDeduper(redisURL string) (automation.EventDeduper, error) {
	if redisURL == "" {
		return automation.NewMemoryDeduper(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return automation.NewRedisDeduper(redis.NewClient(opts)), nil
}
