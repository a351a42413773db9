package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("schedule lock not acquired")

// Locker guards the check-then-write section of a booking. A booking touches
// two calendars (the doctor's and the patient's), so the critical section is
// keyed by both participants at once.
type Locker interface {
	WithScheduleLock(ctx context.Context, participantIDs []uuid.UUID, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleLocker creates a locker backed by per-participant Redis
// keys acquired in sorted order, so two bookings sharing either party
// serialize and bookings for the same pair cannot deadlock.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, participantIDs []uuid.UUID, fn func(ctx context.Context) error) error {
	keys := lockKeys(participantIDs)
	token := uuid.NewString()

	acquired := make([]string, 0, len(keys))
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			_ = l.release(ctx, acquired[i], token)
		}
	}()

	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire schedule lock %s: %w", key, err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		acquired = append(acquired, key)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func lockKeys(participantIDs []uuid.UUID) []string {
	keys := make([]string, 0, len(participantIDs))
	seen := make(map[string]struct{}, len(participantIDs))

	for _, id := range participantIDs {
		key := fmt.Sprintf("lock:schedule:%s", id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock %s: %w", key, err)
	}
	return nil
}

// LocalLocker serializes bookings within the process. Stands in for Redis in
// demo mode and in tests; not safe across multiple server instances.
type LocalLocker struct {
	mu sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

func (l *LocalLocker) WithScheduleLock(ctx context.Context, _ []uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}
