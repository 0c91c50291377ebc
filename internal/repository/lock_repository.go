package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKeyPrefix = "enrollment-sync:lock:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a held enrollment lock. Release it with LockRepository.Release.
type Lock struct {
	Key   string
	Token string
}

// LockRepository serializes reconciliations of the same enrollment across processes.
// Without a Redis client it degrades to an in-process lock table.
type LockRepository struct {
	client *redis.Client
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]localLock
}

type localLock struct {
	token     string
	expiresAt time.Time
}

// NewLockRepository constructs a lock repository. client may be nil.
func NewLockRepository(client *redis.Client, logger *zap.Logger) *LockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockRepository{client: client, logger: logger, local: map[string]localLock{}}
}

// LockKey returns the key guarding an enrollment.
func LockKey(enrollmentID string) string {
	return lockKeyPrefix + enrollmentID
}

// Acquire tries to take the enrollment lock for ttl. It returns false when someone else holds it.
func (r *LockRepository) Acquire(ctx context.Context, enrollmentID string, ttl time.Duration) (*Lock, bool, error) {
	lock := &Lock{Key: LockKey(enrollmentID), Token: uuid.NewString()}
	if r.client == nil {
		if !r.acquireLocal(lock, ttl) {
			return nil, false, nil
		}
		return lock, true, nil
	}

	ok, err := r.client.SetNX(ctx, lock.Key, lock.Token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", lock.Key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}

// Release drops the lock if it is still owned by the caller.
func (r *LockRepository) Release(ctx context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}
	if r.client == nil {
		r.releaseLocal(lock)
		return nil
	}

	deleted, err := releaseScript.Run(ctx, r.client, []string{lock.Key}, lock.Token).Int()
	if err != nil {
		return fmt.Errorf("redis release %s: %w", lock.Key, err)
	}
	if deleted == 0 {
		r.logger.Warn("enrollment lock expired before release", zap.String("key", lock.Key))
	}
	return nil
}

func (r *LockRepository) acquireLocal(lock *Lock, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if held, ok := r.local[lock.Key]; ok && now.Before(held.expiresAt) {
		return false
	}
	r.local[lock.Key] = localLock{token: lock.Token, expiresAt: now.Add(ttl)}
	return true
}

func (r *LockRepository) releaseLocal(lock *Lock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if held, ok := r.local[lock.Key]; ok && held.token == lock.Token {
		delete(r.local, lock.Key)
	}
}
