package rank

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vocab-quiz-service/internal/domain"
)

// LedgerReader is the slice of the score ledger that ranking reads need.
type LedgerReader interface {
	Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error)
	Total(ctx context.Context) (*domain.ScoreBoard, error)
}

// BoardRepository caches ledger snapshots with a TTL so leaderboard refreshes
// do not hammer a shared store. Concurrent misses collapse via singleflight.
type BoardRepository struct {
	reader LedgerReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBoard
}

type cachedBoard struct {
	board     *domain.ScoreBoard
	expiresAt time.Time
}

func NewBoardRepository(reader LedgerReader, ttl time.Duration) *BoardRepository {
	return &BoardRepository{
		reader: reader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBoard),
	}
}

func (r *BoardRepository) Weekly(ctx context.Context, weekID string) (*domain.ScoreBoard, error) {
	return r.get(ctx, "weekly:"+weekID, func(ctx context.Context) (*domain.ScoreBoard, error) {
		return r.reader.Weekly(ctx, weekID)
	})
}

func (r *BoardRepository) Total(ctx context.Context) (*domain.ScoreBoard, error) {
	return r.get(ctx, "total", func(ctx context.Context) (*domain.ScoreBoard, error) {
		return r.reader.Total(ctx)
	})
}

// Invalidate drops a cached weekly board (and the total board) so freshly
// recorded attempts show up without waiting out the TTL.
func (r *BoardRepository) Invalidate(weekID string) {
	r.mu.Lock()
	delete(r.cache, "weekly:"+weekID)
	delete(r.cache, "total")
	r.mu.Unlock()
}

func (r *BoardRepository) get(ctx context.Context, key string, load func(context.Context) (*domain.ScoreBoard, error)) (*domain.ScoreBoard, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.board, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.board, nil
		}
		r.mu.RUnlock()

		board, err := load(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedBoard{board: board, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return board, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.ScoreBoard), nil
}

func (r *BoardRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
