package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionLocker serializes mutating operations on one payment session.
type SessionLocker interface {
	// Lock blocks until the session is held or ctx ends. The returned func
	// releases it and is safe to call once.
	Lock(ctx context.Context, sessionID string) (func(), error)
}

// MemoryLocker is a keyed mutex for a single process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*sessionLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{ch: make(chan struct{}, 1)}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, sl, false)
		return nil, fmt.Errorf("lock session %s: %w", sessionID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(sessionID, sl, true) })
	}, nil
}

func (l *MemoryLocker) release(sessionID string, sl *sessionLock, held bool) {
	if held {
		<-sl.ch
	}
	l.mu.Lock()
	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, sessionID)
	}
	l.mu.Unlock()
}

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes sessions across replicas with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// NewRedisLocker builds a locker whose locks expire after ttl if the holder
// dies. ttl must exceed the gateway timeout.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, retry: 50 * time.Millisecond, prefix: "payment-session-lock:"}
}

func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := l.prefix + sessionID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("lock session %s: %w", sessionID, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("lock session %s: %w", sessionID, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}
