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

// pairKey is the same for (a, b) and (b, a).
func pairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// LocalPairLocker serializes pairs within one process.
type LocalPairLocker struct {
	mu    sync.Mutex
	locks map[string]*pairSlot
}

type pairSlot struct {
	held chan struct{}
	refs int
}

func NewLocalPairLocker() *LocalPairLocker {
	return &LocalPairLocker{locks: make(map[string]*pairSlot)}
}

func (l *LocalPairLocker) Lock(ctx context.Context, a, b uuid.UUID) (func(), error) {
	key := pairKey(a, b)

	l.mu.Lock()
	slot, ok := l.locks[key]
	if !ok {
		slot = &pairSlot{held: make(chan struct{}, 1)}
		l.locks[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.held <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.held
			l.release(key, slot)
		})
	}, nil
}

func (l *LocalPairLocker) release(key string, slot *pairSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of pairs currently tracked.
func (l *LocalPairLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

const (
	pairLockPrefix    = "friendship:pairlock:"
	pairLockRetryWait = 25 * time.Millisecond
)

var ErrPairLockTimeout = errors.New("timed out waiting for pair lock")

// releasePairLock deletes the key only if this holder still owns it.
var releasePairLock = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisPairLocker serializes pairs across instances with a SET NX lease.
// The lease expires after ttl so a crashed holder cannot wedge a pair.
type RedisPairLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPairLocker(client *redis.Client, ttl time.Duration) *RedisPairLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisPairLocker{client: client, ttl: ttl}
}

func (l *RedisPairLocker) Lock(ctx context.Context, a, b uuid.UUID) (func(), error) {
	key := pairLockPrefix + pairKey(a, b)
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring pair lock: %w", err)
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrPairLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pairLockRetryWait):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releasePairLock.Run(ctx, l.client, []string{key}, token).Err()
		})
	}, nil
}
