package app

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Alarm is the cancellable countdown handle stored on a session. A fired tick
// whose generation no longer matches the session's alarm is a no-op.
type Alarm struct {
	gen       uint64
	remaining int
	timer     clockwork.Timer
	fire      func()
}

// Countdown arms and cancels per-session alarms. Every method expects the
// caller to hold the session's lock.
type Countdown struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   zerolog.Logger
	seq      atomic.Uint64
}

func NewCountdown(clock clockwork.Clock, logger zerolog.Logger) *Countdown {
	return &Countdown{clock: clock, interval: time.Second, logger: logger}
}

// Start replaces any alarm on s with a fresh one of the given length. fire is
// invoked with the session id and alarm generation on every tick.
func (c *Countdown) Start(s *Session, seconds int, fire func(sessionID string, gen uint64)) uint64 {
	c.Cancel(s)

	a := &Alarm{gen: c.seq.Add(1), remaining: seconds}
	id := s.id
	a.fire = func() { fire(id, a.gen) }
	a.timer = c.clock.AfterFunc(c.interval, a.fire)
	s.alarm = a
	return a.gen
}

// Tick consumes one interval of the alarm identified by gen and re-arms it.
// It reports the seconds left and false when the alarm is stale. On reaching
// zero the alarm cancels itself.
func (c *Countdown) Tick(s *Session, gen uint64) (int, bool) {
	a := s.alarm
	if a == nil || a.gen != gen {
		return 0, false
	}
	a.remaining--
	if a.remaining <= 0 {
		c.Cancel(s)
		return 0, true
	}
	a.timer = c.clock.AfterFunc(c.interval, a.fire)
	return a.remaining, true
}

// Cancel stops the session's alarm. It is safe on a session without one and
// reports whether an alarm was live.
func (c *Countdown) Cancel(s *Session) bool {
	a := s.alarm
	if a == nil {
		return false
	}
	a.timer.Stop()
	s.alarm = nil
	c.logger.Debug().
		Str("session_id", s.id).
		Uint64("gen", a.gen).
		Int("remaining", a.remaining).
		Msg("countdown cancelled")
	return true
}

// Active reports whether s has a live alarm.
func (c *Countdown) Active(s *Session) bool {
	return s.alarm != nil
}
