package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/agriroute/internal/models"
)

// RedisStore keeps live trip progress in a Redis hash per (freight,
// driver). The consumer writes here; the API reads here when resolving
// effective status.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(addr, password, prefix string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, prefix: prefix}
}

// NewRedisStoreFromClient wraps an existing client, for callers that
// manage connection lifecycle themselves.
func NewRedisStoreFromClient(c *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: c, prefix: prefix}
}

func (r *RedisStore) key(freightID, driverID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, freightID, driverID)
}

func (r *RedisStore) Set(ctx context.Context, p models.DriverTripProgress) error {
	return r.client.HSet(ctx, r.key(p.FreightID, p.DriverID), map[string]interface{}{
		"status":      p.Status,
		"lat":         p.Lat,
		"lon":         p.Lon,
		"reported_at": p.ReportedAt.Format(time.RFC3339),
	}).Err()
}

func (r *RedisStore) GetStatus(ctx context.Context, freightID, driverID string) (string, error) {
	s, err := r.client.HGet(ctx, r.key(freightID, driverID), "status").Result()
	if err == redis.Nil {
		return "", nil
	}
	return s, err
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
