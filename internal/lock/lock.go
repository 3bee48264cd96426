// Package lock serializes matrix builds writing the same output relation
// across processes using Postgres session advisory locks.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/allisson/go-pglock/v3"
	"github.com/spaolacci/murmur3"

	"github.com/rudderlabs/rudder-go-kit/logger"
	obskit "github.com/rudderlabs/rudder-observability-kit/go/labels"
)

type Opt func(*Locker)

// WithRetryInterval sets how long Acquire waits between attempts while the
// lock is held elsewhere.
func WithRetryInterval(d time.Duration) Opt {
	return func(l *Locker) {
		l.retryInterval = d
	}
}

type Locker struct {
	db            *sql.DB
	log           logger.Logger
	retryInterval time.Duration
}

func New(db *sql.DB, log logger.Logger, opts ...Opt) *Locker {
	l := &Locker{
		db:            db,
		log:           log.Child("lock"),
		retryInterval: time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ID returns the advisory lock id used for key.
func ID(key string) int64 {
	return int64(murmur3.Sum64([]byte(key)))
}

// Acquire blocks until the advisory lock for key is held or ctx is done. The
// returned release function unlocks it and returns its connection to the
// pool.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	advisoryLock, err := pglock.NewLock(ctx, ID(key), l.db)
	if err != nil {
		return nil, fmt.Errorf("creating lock for %s: %w", key, err)
	}

	for {
		locked, err := advisoryLock.Lock(ctx)
		if err != nil {
			_ = advisoryLock.Close()
			return nil, fmt.Errorf("acquiring lock for %s: %w", key, err)
		}
		if locked {
			break
		}

		l.log.Debugn("Waiting for lock", logger.NewStringField("key", key))
		select {
		case <-ctx.Done():
			_ = advisoryLock.Close()
			return nil, fmt.Errorf("acquiring lock for %s: %w", key, ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}

	return func() {
		if err := advisoryLock.Unlock(context.WithoutCancel(ctx)); err != nil {
			l.log.Warnn("Unlocking", logger.NewStringField("key", key), obskit.Error(err))
		}
		if err := advisoryLock.Close(); err != nil {
			l.log.Warnn("Closing lock connection", logger.NewStringField("key", key), obskit.Error(err))
		}
	}, nil
}
