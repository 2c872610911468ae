package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mathquiz-service/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string) (*Session, bool)
	// List returns sessions in insertion order.
	List() []*Session
	Len() int
}

// Broadcaster delivers events to one connection or to every connection.
// Implementations must not block.
type Broadcaster interface {
	Unicast(sessionID string, event domain.EventType, payload any)
	BroadcastAll(event domain.EventType, payload any)
}

// ResultArchive records finished games.
type ResultArchive interface {
	Record(ctx context.Context, result domain.Result) error
}

// ResultRepository serves recently finished games (from cache/backing store).
type ResultRepository interface {
	ResultArchive
	Recent(ctx context.Context, limit int) ([]domain.Result, error)
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *QuizService) { s.clock = clock }
}

// WithSettings overrides the game timings.
func WithSettings(settings Settings) Option {
	return func(s *QuizService) { s.settings = settings.withDefaults() }
}

// WithQuestionSource replaces the random equation generator.
func WithQuestionSource(source QuestionSource) Option {
	return func(s *QuizService) { s.questions = source }
}

// WithResultArchive records every finished game to archive.
func WithResultArchive(archive ResultArchive) Option {
	return func(s *QuizService) { s.archive = archive }
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *QuizService) { s.logger = logger }
}

// WithAnswerParser replaces how raw submissions are turned into integers.
func WithAnswerParser(parse func(any) (int, error)) Option {
	return func(s *QuizService) { s.parse = parse }
}

// WithNameRand seeds the default display name draw.
func WithNameRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.names = rnd }
}

// QuizService runs every player's session lifecycle: join, countdown,
// answer evaluation, advance and leave.
type QuizService struct {
	sessions  SessionRepository
	out       Broadcaster
	questions QuestionSource
	archive   ResultArchive
	settings  Settings
	clock     clockwork.Clock
	countdown *Countdown
	logger    zerolog.Logger
	parse     func(any) (int, error)

	// seq numbers delayed advances so a stale one can be told apart.
	seq atomic.Uint64
	// publishMu keeps broadcasts in snapshot order.
	publishMu sync.Mutex

	namesMu sync.Mutex
	names   *rand.Rand
}

func NewQuizService(store SessionRepository, out Broadcaster, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: store,
		out:      out,
		settings: DefaultSettings(),
		clock:    clockwork.NewRealClock(),
		logger:   log.Logger,
		parse:    ParseAnswer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.questions == nil {
		s.questions = NewQuestionGenerator()
	}
	if s.names == nil {
		s.names = rand.New(rand.NewSource(s.clock.Now().UnixNano()))
	}
	s.countdown = NewCountdown(s.clock, s.logger)
	return s
}

// Settings returns the effective game timings.
func (s *QuizService) Settings() Settings {
	return s.settings
}

// Join starts a new run for sessionID, replacing any previous one, and emits
// its first question.
func (s *QuizService) Join(ctx context.Context, sessionID, displayName string) domain.SessionSnapshot {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = s.defaultName()
	}
	if previous, ok := s.sessions.Delete(sessionID); ok {
		s.retire(previous)
	}

	session := NewSession(sessionID, name, s.questions.Generate(s.settings.QuestionCount), s.clock.Now())
	session.mu.Lock()
	s.sessions.Put(session)
	s.openQuestionLocked(session)
	snap := session.snapshotLocked()
	session.mu.Unlock()

	s.logger.Info().Str("session_id", sessionID).Str("display_name", name).Msg("player joined")

	s.publishPlayerCount()
	s.publishLeaderboard()
	s.publishWinners()
	return snap
}

// Advance moves a session to its next question, or to Finished after the last one.
func (s *QuizService) Advance(ctx context.Context, sessionID string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		s.logger.Debug().Str("session_id", sessionID).Msg("advance ignored: session not found")
		return domain.ErrSessionNotFound
	}

	session.mu.Lock()
	if session.removed {
		session.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	if session.status == domain.StatusFinished {
		session.mu.Unlock()
		s.logger.Debug().Str("session_id", sessionID).Msg("advance ignored: session finished")
		return domain.ErrSessionFinished
	}
	finished := s.advanceLocked(session)
	result := session.result()
	session.mu.Unlock()

	s.afterAdvance(ctx, result, finished)
	return nil
}

// Leave removes the session and releases its timers. Unknown ids are ignored.
func (s *QuizService) Leave(ctx context.Context, sessionID string) {
	session, ok := s.sessions.Delete(sessionID)
	if !ok {
		return
	}
	s.retire(session)
	s.logger.Info().Str("session_id", sessionID).Msg("player left")

	s.publishPlayerCount()
	s.publishLeaderboard()
	s.publishWinners()
}

// Snapshot returns the current state of one session.
func (s *QuizService) Snapshot(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// CountdownActive reports whether the session currently owns a live alarm.
func (s *QuizService) CountdownActive(sessionID string) bool {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.countdown.Active(session)
}

// Leaderboard ranks every live session.
func (s *QuizService) Leaderboard() []domain.LeaderboardEntry {
	return Rank(s.snapshots())
}

// Winners returns the top finished sessions.
func (s *QuizService) Winners() []domain.Winner {
	return Winners(s.snapshots())
}

// openQuestionLocked arms the countdown for the current question, then reveals it.
func (s *QuizService) openQuestionLocked(session *Session) {
	question := session.questions[session.questionIndex]
	seconds := int(s.settings.QuestionTime / time.Second)

	s.countdown.Start(session, seconds, s.onTick)

	s.out.Unicast(session.id, domain.EventNewQuestion, domain.NewQuestionPayload{
		ID:     question.ID,
		Text:   question.Prompt,
		Points: question.Points,
		Index:  session.questionIndex + 1,
		Total:  len(session.questions),
	})
	s.out.Unicast(session.id, domain.EventUpdateTimer, domain.TimerPayload{SecondsLeft: seconds})
}

func (s *QuizService) advanceLocked(session *Session) bool {
	s.countdown.Cancel(session)
	s.cancelAdvanceLocked(session)

	if session.questionIndex < len(session.questions) {
		session.questionIndex++
	}
	if session.questionIndex < len(session.questions) {
		s.openQuestionLocked(session)
		return false
	}

	now := s.clock.Now()
	session.status = domain.StatusFinished
	session.finishedAt = now
	session.elapsed = now.Sub(session.startedAt)

	s.out.Unicast(session.id, domain.EventGameOver, domain.GameOverPayload{
		Score:     session.score,
		ElapsedMs: session.elapsed.Milliseconds(),
		TotalTime: domain.FormatElapsed(session.elapsed),
	})
	s.logger.Info().
		Str("session_id", session.id).
		Int("score", session.score).
		Dur("elapsed", session.elapsed).
		Msg("game finished")
	return true
}

func (s *QuizService) afterAdvance(ctx context.Context, result domain.Result, finished bool) {
	s.publishLeaderboard()
	if !finished {
		return
	}
	s.publishWinners()
	s.record(ctx, result)
}

// onTick handles one countdown interval for the alarm generation gen.
func (s *QuizService) onTick(sessionID string, gen uint64) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	if !session.live() {
		return
	}
	left, ok := s.countdown.Tick(session, gen)
	if !ok {
		return
	}
	if left > 0 {
		s.out.Unicast(sessionID, domain.EventUpdateTimer, domain.TimerPayload{SecondsLeft: left})
		return
	}

	question, err := session.currentQuestion()
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("time up on missing question")
	}
	s.scheduleAdvanceLocked(session, s.settings.IncorrectDelay)
	s.out.Unicast(sessionID, domain.EventUpdateTimer, domain.TimerPayload{SecondsLeft: 0})
	s.out.Unicast(sessionID, domain.EventAnswerFeedback, domain.FeedbackPayload{
		IsCorrect:     false,
		Reason:        domain.ReasonTimeUp,
		CorrectAnswer: question.ExpectedAnswer,
	})
}

// scheduleAdvanceLocked arms a one-shot advance. The callback carries only the
// session id and a generation, and re-validates both when it fires.
func (s *QuizService) scheduleAdvanceLocked(session *Session, delay time.Duration) {
	s.cancelAdvanceLocked(session)
	gen := s.seq.Add(1)
	id := session.id
	session.pending = &delayedAdvance{
		gen:   gen,
		timer: s.clock.AfterFunc(delay, func() { s.onDelayedAdvance(id, gen) }),
	}
}

func (s *QuizService) cancelAdvanceLocked(session *Session) {
	if session.pending == nil {
		return
	}
	session.pending.timer.Stop()
	session.pending = nil
}

func (s *QuizService) onDelayedAdvance(sessionID string, gen uint64) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		s.logger.Debug().Str("session_id", sessionID).Msg("delayed advance dropped: session gone")
		return
	}

	session.mu.Lock()
	if session.pending == nil || session.pending.gen != gen {
		session.mu.Unlock()
		return
	}
	session.pending = nil
	if !session.live() {
		session.mu.Unlock()
		return
	}
	finished := s.advanceLocked(session)
	result := session.result()
	session.mu.Unlock()

	s.afterAdvance(context.Background(), result, finished)
}

// retire invalidates every scheduled task of a session leaving the registry.
func (s *QuizService) retire(session *Session) {
	session.mu.Lock()
	defer session.mu.Unlock()
	session.removed = true
	s.countdown.Cancel(session)
	s.cancelAdvanceLocked(session)
}

func (s *QuizService) record(ctx context.Context, result domain.Result) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.archive.Record(ctx, result); err != nil {
		s.logger.Warn().Err(err).Str("session_id", result.SessionID).Msg("failed to archive result")
	}
}

func (s *QuizService) snapshots() []domain.SessionSnapshot {
	sessions := s.sessions.List()
	snaps := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, session := range sessions {
		snaps = append(snaps, session.Snapshot())
	}
	return snaps
}

func (s *QuizService) publishLeaderboard() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.out.BroadcastAll(domain.EventUpdateLeaderboard, Rank(s.snapshots()))
}

func (s *QuizService) publishWinners() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.out.BroadcastAll(domain.EventWinnerNotification, Winners(s.snapshots()))
}

func (s *QuizService) publishPlayerCount() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.out.BroadcastAll(domain.EventPlayerCount, s.sessions.Len())
}

func (s *QuizService) defaultName() string {
	s.namesMu.Lock()
	defer s.namesMu.Unlock()
	return fmt.Sprintf("Player %d", s.names.Intn(1000))
}
