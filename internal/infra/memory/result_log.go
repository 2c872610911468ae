package memory

import (
	"context"
	"sync"

	"mathquiz-service/internal/domain"
)

// ResultLog is a bounded in-memory ResultStore, newest first (useful for tests/demos
// and as the default when no database is configured).
type ResultLog struct {
	mu       sync.RWMutex
	capacity int
	results  []domain.Result
}

func NewResultLog(capacity int) *ResultLog {
	if capacity <= 0 {
		capacity = RecentCap
	}
	return &ResultLog{capacity: capacity}
}

func (l *ResultLog) Record(_ context.Context, result domain.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append([]domain.Result{result}, l.results...)
	if len(l.results) > l.capacity {
		l.results = l.results[:l.capacity]
	}
	return nil
}

func (l *ResultLog) Recent(_ context.Context, limit int) ([]domain.Result, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return head(l.results, clampLimit(limit)), nil
}
