package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// recentKey holds the JSON-encoded page of the most recent results:
// SET quiz:results:recent [{...},...] EX ttl
const recentKey = "quiz:results:recent"

// ResultRepository caches the recent-results page in Redis and falls back to
// the store on cache miss. Recording a result invalidates the page.
type ResultRepository struct {
	client *redis.Client
	store  memory.ResultStore
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewResultRepository(client *redis.Client, store memory.ResultStore, ttl time.Duration) *ResultRepository {
	return &ResultRepository{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ResultRepository) Record(ctx context.Context, result domain.Result) error {
	if err := r.store.Record(ctx, result); err != nil {
		return err
	}
	// the result is stored; a stale page only lives until its TTL
	if err := r.client.Del(ctx, recentKey).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", result.SessionID).Msg("invalidate recent results")
	}
	return nil
}

func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]domain.Result, error) {
	if results, ok := r.cached(ctx); ok {
		return head(results, limit), nil
	}

	result, err, _ := r.sf.Do(recentKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if results, ok := r.cached(ctx); ok {
			return results, nil
		}

		results, err := r.store.Recent(ctx, memory.RecentCap)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(results); err == nil {
			_ = r.client.Set(ctx, recentKey, raw, r.ttlWithJitter()).Err()
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return head(result.([]domain.Result), limit), nil
}

func (r *ResultRepository) cached(ctx context.Context) ([]domain.Result, bool) {
	raw, err := r.client.Get(ctx, recentKey).Bytes()
	if err != nil {
		return nil, false
	}
	var results []domain.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		// a corrupt page is treated as a miss and overwritten on reload
		_ = r.client.Del(ctx, recentKey).Err()
		return nil, false
	}
	return results, true
}

func (r *ResultRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func head(results []domain.Result, limit int) []domain.Result {
	if limit <= 0 || limit > memory.RecentCap {
		limit = memory.RecentCap
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
