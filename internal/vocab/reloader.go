package vocab

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vocab-quiz-service/internal/domain"
)

// Reloader refreshes a Pool from its Source on a TTL. Loading failure is never
// fatal: the previous pool stays active and the failure is logged. Concurrent
// expirations collapse into a single load via singleflight.
type Reloader struct {
	pool   *Pool
	source Source
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.Mutex
	expiresAt time.Time
}

func NewReloader(pool *Pool, source Source, ttl time.Duration) *Reloader {
	return &Reloader{
		pool:   pool,
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Items returns the current pool, refreshing from the source first when the
// TTL has elapsed. It never fails; a broken source just keeps the old pool.
func (r *Reloader) Items(ctx context.Context) []domain.VocabularyItem {
	now := r.clock()

	r.mu.Lock()
	expired := !now.Before(r.expiresAt)
	r.mu.Unlock()

	if expired {
		_, _, _ = r.sf.Do("reload", func() (interface{}, error) {
			now := r.clock()
			next := now.Add(r.ttlWithJitter())
			r.mu.Lock()
			if now.Before(r.expiresAt) {
				r.mu.Unlock()
				return nil, nil
			}
			r.expiresAt = next
			r.mu.Unlock()

			if err := r.Refresh(ctx); err != nil {
				log.Printf("vocab reload failed, keeping previous pool: %v", err)
			}
			return nil, nil
		})
	}
	return r.pool.Items()
}

// Refresh loads from the source immediately and swaps the pool when the
// result is usable. The pool is untouched on any error.
func (r *Reloader) Refresh(ctx context.Context) error {
	items, err := r.source.Load(ctx)
	if err != nil {
		return err
	}
	return r.pool.Replace(items)
}

func (r *Reloader) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread reloads; only the singleflight winner gets here
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
