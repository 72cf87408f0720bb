// Package guard serializes the once-per-day login reward across requests and
// instances. Acquire succeeds for the first caller on a given user and day.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type LoginGuard interface {
	Acquire(ctx context.Context, userID, day string) (bool, error)
	Release(ctx context.Context, userID, day string) error
}

const dayLayout = "2006-01-02"

func key(userID, day string) string {
	return fmt.Sprintf("daily-login:%s:%s", userID, day)
}

// Memory is a single-process guard. Days older than yesterday are dropped
// the first time a later day is acquired.
type Memory struct {
	mu     sync.Mutex
	held   map[string]string // key -> day
	latest string
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]string)}
}

func (m *Memory) Acquire(_ context.Context, userID, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if day > m.latest {
		m.latest = day
		m.prune(day)
	}

	k := key(userID, day)
	if _, ok := m.held[k]; ok {
		return false, nil
	}
	m.held[k] = day
	return true, nil
}

// prune drops every key claimed before the day preceding day. Days use the
// YYYY-MM-DD layout, so string order is date order.
func (m *Memory) prune(day string) {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return
	}
	cutoff := t.AddDate(0, 0, -1).Format(dayLayout)
	for k, d := range m.held {
		if d < cutoff {
			delete(m.held, k)
		}
	}
}

func (m *Memory) Release(_ context.Context, userID, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.held, key(userID, day))
	return nil
}

// A claimed day expires on its own after two days.
const redisKeyTTL = 48 * time.Hour

// Redis shares the guard between API instances.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string) *Redis {
	return NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}))
}

func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Acquire(ctx context.Context, userID, day string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key(userID, day), time.Now().UTC().Format(time.RFC3339), redisKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire login guard: %w", err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, userID, day string) error {
	if err := r.client.Del(ctx, key(userID, day)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release login guard: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
