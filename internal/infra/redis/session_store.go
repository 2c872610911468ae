package redis

import (
	"context"
	"fmt"
	"time"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local ordered map; they own live timers and
//     cannot leave the process.
//   - Redis holds a best-effort liveness marker per session, keyed by connection
//     id with the display name as value, so operators can see who is playing.
//     KeepAlive extends the markers for as long as the sessions stay registered.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionStore
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionStore(),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.local.Put(session)
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.DisplayName(), s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	return s.local.Get(id)
}

func (s *SessionStore) Delete(id string) (*app.Session, bool) {
	session, ok := s.local.Delete(id)
	if ok {
		_ = s.client.Del(context.Background(), s.key(id)).Err()
	}
	return session, ok
}

func (s *SessionStore) List() []*app.Session {
	return s.local.List()
}

func (s *SessionStore) Len() int {
	return s.local.Len()
}

// Refresh resets the TTL of every registered session's marker. It only extends
// existing keys, so a session deleted meanwhile is never marked again.
func (s *SessionStore) Refresh(ctx context.Context) error {
	sessions := s.local.List()
	if len(sessions) == 0 || s.ttl <= 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, session := range sessions {
		pipe.Expire(ctx, s.key(session.ID()), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh session markers: %w", err)
	}
	return nil
}

// KeepAlive refreshes the markers every half TTL until ctx is done.
func (s *SessionStore) KeepAlive(ctx context.Context, logger zerolog.Logger) error {
	if s.ttl <= 0 {
		return nil
	}
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("session marker refresh failed")
			}
		}
	}
}

func (s *SessionStore) key(id string) string {
	return "quiz:session:" + id
}
