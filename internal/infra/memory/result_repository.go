package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"mathquiz-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// RecentCap is how many results a cached page holds; Recent slices it.
const RecentCap = 100

const recentKey = "recent"

// ResultStore is the backing store of finished games (e.g. Postgres).
type ResultStore interface {
	Record(ctx context.Context, result domain.Result) error
	Recent(ctx context.Context, limit int) ([]domain.Result, error)
}

// ResultRepository caches the recent-results page with TTL to avoid repeated store hits.
type ResultRepository struct {
	store ResultStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu      sync.RWMutex
	rnd     *rand.Rand
	cached  *cachedResults
	version uint64
}

type cachedResults struct {
	results   []domain.Result
	expiresAt time.Time
}

func NewResultRepository(store ResultStore, ttl time.Duration) *ResultRepository {
	return &ResultRepository{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Record writes through to the store and drops the cached page.
func (r *ResultRepository) Record(ctx context.Context, result domain.Result) error {
	if err := r.store.Record(ctx, result); err != nil {
		return err
	}
	r.mu.Lock()
	r.cached = nil
	r.version++
	r.mu.Unlock()
	return nil
}

func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]domain.Result, error) {
	limit = clampLimit(limit)
	now := r.clock()

	r.mu.RLock()
	if r.cached != nil && r.cached.expiresAt.After(now) {
		page := r.cached.results
		r.mu.RUnlock()
		return head(page, limit), nil
	}
	version := r.version
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(recentKey, func() (interface{}, error) {
		results, err := r.store.Recent(ctx, RecentCap)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		// a Record during the load makes this page stale
		if r.version == version {
			r.cached = &cachedResults{
				results:   results,
				expiresAt: now.Add(r.ttlWithJitterLocked()),
			}
		}
		r.mu.Unlock()
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return head(result.([]domain.Result), limit), nil
}

func (r *ResultRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > RecentCap {
		return RecentCap
	}
	return limit
}

func head(results []domain.Result, limit int) []domain.Result {
	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]domain.Result, len(results))
	copy(out, results)
	return out
}
