// Package runlock guards the daily broadcast run so that, with several
// server instances behind a load balancer, only one fires the dispatch for
// a given UTC day. The lock key carries the date and the holder keeps it
// after a successful run, so a second instance whose fire time lands later
// the same day finds the key taken until the TTL expires. Backed by Redis
// SET NX; when Redis is not configured, a no-op lock is used and
// single-instance deployment is assumed.
package runlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is acquired once per broadcast run. Release is only called when the
// run failed, so another instance may retry; a successful run keeps the
// day's lock until the TTL expires.
type Lock interface {
	// Acquire tries to take today's lock. Returns false if another holder
	// owns it.
	Acquire(ctx context.Context) (bool, error)
	// Release gives the lock back if this instance still owns it.
	Release(ctx context.Context) error
}

// New returns a Redis-backed lock when client is non-nil, otherwise a
// lock that always acquires.
func New(client *redis.Client, key string, ttl time.Duration) Lock {
	if client == nil {
		return noopLock{}
	}
	return newRedisLock(client, key, ttl)
}

type noopLock struct{}

func (noopLock) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLock) Release(context.Context) error         { return nil }

// redisLock holds a random ownership token so a crashed holder's expired
// lock can never be released by a new holder's stale Release.
type redisLock struct {
	client *redis.Client
	prefix string
	token  string
	ttl    time.Duration

	// key acquired most recently; empty when nothing is held.
	heldKey string

	now func() time.Time
}

func newRedisLock(client *redis.Client, key string, ttl time.Duration) *redisLock {
	b := make([]byte, 16)
	rand.Read(b)
	return &redisLock{
		client: client,
		prefix: key,
		token:  hex.EncodeToString(b),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (l *redisLock) Acquire(ctx context.Context) (bool, error) {
	key := fmt.Sprintf("runlock:%s:%s", l.prefix, l.now().UTC().Format("2006-01-02"))
	ok, err := l.client.SetNX(ctx, key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if ok {
		l.heldKey = key
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func (l *redisLock) Release(ctx context.Context) error {
	if l.heldKey == "" {
		return nil
	}
	if _, err := releaseScript.Run(ctx, l.client, []string{l.heldKey}, l.token).Result(); err != nil {
		return err
	}
	l.heldKey = ""
	return nil
}
