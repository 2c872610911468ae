package app_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/infra/memory"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const waitTimeout = 2 * time.Second

var epoch = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type event struct {
	typ     domain.EventType
	payload any
}

// recorder is an app.Broadcaster that keeps one ordered queue per session and
// a log of every broadcast.
type recorder struct {
	mu         sync.Mutex
	queues     map[string]chan event
	broadcasts []event
}

func newRecorder() *recorder {
	return &recorder{queues: make(map[string]chan event)}
}

func (r *recorder) queue(id string) chan event {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[id]
	if !ok {
		q = make(chan event, 512)
		r.queues[id] = q
	}
	return q
}

func (r *recorder) Unicast(id string, typ domain.EventType, payload any) {
	r.queue(id) <- event{typ: typ, payload: payload}
}

func (r *recorder) BroadcastAll(typ domain.EventType, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, event{typ: typ, payload: payload})
}

func (r *recorder) broadcastsOf(typ domain.EventType) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.broadcasts {
		if e.typ == typ {
			out = append(out, e.payload)
		}
	}
	return out
}

// expect waits for the next event sent to id and checks its type.
func (r *recorder) expect(t *testing.T, id string, typ domain.EventType) any {
	t.Helper()
	select {
	case e := <-r.queue(id):
		if e.typ != typ {
			t.Fatalf("expected %s for %s, got %s (%+v)", typ, id, e.typ, e.payload)
		}
		return e.payload
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %s for %s", typ, id)
		return nil
	}
}

// expectQuiet fails if anything is sent to id within a short grace period.
func (r *recorder) expectQuiet(t *testing.T, id string) {
	t.Helper()
	select {
	case e := <-r.queue(id):
		t.Fatalf("unexpected %s for %s: %+v", e.typ, id, e.payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func (r *recorder) expectQuestion(t *testing.T, id string, index int) domain.NewQuestionPayload {
	t.Helper()
	q := r.expect(t, id, domain.EventNewQuestion).(domain.NewQuestionPayload)
	if q.Index != index {
		t.Fatalf("expected question %d, got %d", index, q.Index)
	}
	return q
}

func (r *recorder) expectTimer(t *testing.T, id string, secondsLeft int) {
	t.Helper()
	timer := r.expect(t, id, domain.EventUpdateTimer).(domain.TimerPayload)
	if timer.SecondsLeft != secondsLeft {
		t.Fatalf("expected %ds left, got %d", secondsLeft, timer.SecondsLeft)
	}
}

func (r *recorder) expectFeedback(t *testing.T, id string) domain.FeedbackPayload {
	t.Helper()
	return r.expect(t, id, domain.EventAnswerFeedback).(domain.FeedbackPayload)
}

// fixedQuestions yields questions q1..qN whose answers are 1..N.
type fixedQuestions struct{}

func (fixedQuestions) Generate(count int) []domain.Question {
	questions := make([]domain.Question, 0, count)
	for i := 1; i <= count; i++ {
		questions = append(questions, domain.Question{
			ID:             fmt.Sprintf("q%d", i),
			Prompt:         fmt.Sprintf("X + 1 = %d", i+1),
			ExpectedAnswer: i,
			Points:         app.QuestionPoints,
		})
	}
	return questions
}

// lockedBuffer lets timer goroutines and the test share a log sink.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	service *app.QuizService
	out     *recorder
	clock   *clockwork.FakeClock
	store   *memory.SessionStore
	results *memory.ResultLog
	logs    *lockedBuffer
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		out:     newRecorder(),
		clock:   clockwork.NewFakeClockAt(epoch),
		store:   memory.NewSessionStore(),
		results: memory.NewResultLog(10),
		logs:    &lockedBuffer{},
	}
	base := []app.Option{
		app.WithClock(f.clock),
		app.WithQuestionSource(fixedQuestions{}),
		app.WithResultArchive(f.results),
		app.WithLogger(zerolog.New(f.logs).Level(zerolog.DebugLevel)),
	}
	f.service = app.NewQuizService(f.store, f.out, append(base, opts...)...)
	return f
}

// join starts a session and drains its opening question and timer.
func (f *fixture) join(t *testing.T, id, name string) domain.SessionSnapshot {
	t.Helper()
	snap := f.service.Join(context.Background(), id, name)
	f.out.expectQuestion(t, id, 1)
	f.out.expectTimer(t, id, int(f.service.Settings().QuestionTime/time.Second))
	return snap
}
