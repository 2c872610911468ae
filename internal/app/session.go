package app

import (
	"fmt"
	"sync"
	"time"

	"mathquiz-service/internal/domain"

	"github.com/jonboulle/clockwork"
)

// Session is one player's quiz run. All fields are guarded by mu; handlers for
// the same session never mutate it concurrently.
type Session struct {
	mu            sync.Mutex
	id            string
	displayName   string
	score         int
	questionIndex int
	questions     []domain.Question
	startedAt     time.Time
	finishedAt    time.Time
	elapsed       time.Duration
	status        domain.Status
	removed       bool

	// alarm is the live countdown; nil while finished or mid-evaluation.
	alarm *Alarm
	// pending is the scheduled advance, if any.
	pending *delayedAdvance
}

type delayedAdvance struct {
	gen   uint64
	timer clockwork.Timer
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, displayName string, questions []domain.Question, startedAt time.Time) *Session {
	return &Session{
		id:          id,
		displayName: displayName,
		questions:   questions,
		startedAt:   startedAt,
		status:      domain.StatusInProgress,
	}
}

// ID returns the connection identity the session is keyed by.
func (s *Session) ID() string {
	return s.id
}

// DisplayName is fixed at creation and safe to read without the lock.
func (s *Session) DisplayName() string {
	return s.displayName
}

// Snapshot copies the rankable state of the session.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		ID:            s.id,
		DisplayName:   s.displayName,
		Score:         s.score,
		QuestionIndex: s.questionIndex,
		Total:         len(s.questions),
		Status:        s.status,
		Elapsed:       s.elapsed,
	}
}

// live reports whether handlers may still mutate the session.
func (s *Session) live() bool {
	return !s.removed && s.status == domain.StatusInProgress
}

func (s *Session) currentQuestion() (domain.Question, error) {
	if s.questionIndex < 0 || s.questionIndex >= len(s.questions) {
		return domain.Question{}, fmt.Errorf("session %s: question index %d out of range [0,%d)", s.id, s.questionIndex, len(s.questions))
	}
	return s.questions[s.questionIndex], nil
}

func (s *Session) result() domain.Result {
	return domain.Result{
		SessionID:   s.id,
		DisplayName: s.displayName,
		Score:       s.score,
		ElapsedMs:   s.elapsed.Milliseconds(),
		FinishedAt:  s.finishedAt,
	}
}
