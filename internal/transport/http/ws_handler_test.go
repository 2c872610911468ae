package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/infra/memory"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// sevens answers every question with 7.
type sevens struct{}

func (sevens) Generate(count int) []domain.Question {
	questions := make([]domain.Question, 0, count)
	for i := 1; i <= count; i++ {
		questions = append(questions, domain.Question{
			ID:             fmt.Sprintf("q%d", i),
			Prompt:         "X + 3 = 10",
			ExpectedAnswer: 7,
			Points:         app.QuestionPoints,
		})
	}
	return questions
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *memory.SessionStore) {
	t.Helper()
	store := memory.NewSessionStore()
	hub := NewHub(zerolog.Nop())
	service := app.NewQuizService(store, hub,
		app.WithQuestionSource(sevens{}),
		app.WithSettings(app.Settings{QuestionCount: 2, CorrectDelay: 10 * time.Millisecond}),
		app.WithLogger(zerolog.Nop()),
	)
	wsHandler := NewWSHandler(service, hub, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, hub, store
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _, _ := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, map[string]any{"type": "join", "payload": map[string]any{"displayName": "Alice"}})

	var question domain.NewQuestionPayload
	decode(t, readUntil(t, conn, "newQuestion"), &question)
	if question.Index != 1 || question.Total != 2 || question.Text != "X + 3 = 10" {
		t.Fatalf("unexpected question %+v", question)
	}
	var generic map[string]any
	decode(t, readUntil(t, conn, "updateTimer"), &generic)
	if generic["secondsLeft"] != float64(60) {
		t.Fatalf("expected 60 seconds, got %v", generic["secondsLeft"])
	}

	send(t, conn, map[string]any{"type": "submitAnswer", "payload": map[string]any{"questionId": question.ID, "answer": "7"}})
	var feedback domain.FeedbackPayload
	decode(t, readUntil(t, conn, "answerFeedback"), &feedback)
	if !feedback.IsCorrect || feedback.CorrectAnswer != 7 {
		t.Fatalf("unexpected feedback %+v", feedback)
	}

	decode(t, readUntil(t, conn, "newQuestion"), &question)
	if question.Index != 2 {
		t.Fatalf("expected second question, got %d", question.Index)
	}

	send(t, conn, map[string]any{"type": "submitAnswer", "payload": map[string]any{"questionId": question.ID, "answer": 7}})
	rawOver := readUntil(t, conn, "gameOver")
	if !strings.Contains(string(rawOver), `"elapsedMs"`) || !strings.Contains(string(rawOver), `"totalTime"`) {
		t.Fatalf("game over must carry elapsedMs and totalTime: %s", rawOver)
	}
	var over domain.GameOverPayload
	decode(t, rawOver, &over)
	if over.Score != 20 || over.ElapsedMs <= 0 || over.TotalTime == "" {
		t.Fatalf("unexpected game over %+v", over)
	}

	var winners []domain.Winner
	decode(t, readUntil(t, conn, "winnerNotification"), &winners)
	for len(winners) == 0 {
		decode(t, readUntil(t, conn, "winnerNotification"), &winners)
	}
	if winners[0].DisplayName != "Alice" || winners[0].Score != 20 {
		t.Fatalf("unexpected winners %+v", winners)
	}
}

func TestWebSocketRejectsUnknownFrames(t *testing.T) {
	server, _, _ := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, map[string]any{"type": "cheat"})
	var payload errorPayload
	decode(t, readUntil(t, conn, "error"), &payload)
	if payload.Message == "" {
		t.Fatalf("expected an error message")
	}
}

func TestWebSocketMalformedFrameKeepsSession(t *testing.T) {
	server, hub, store := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, map[string]any{"type": "join", "payload": map[string]any{"displayName": "Alice"}})
	var question domain.NewQuestionPayload
	decode(t, readUntil(t, conn, "newQuestion"), &question)

	for _, raw := range []string{"not json", `{"type": 1}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write %q: %v", raw, err)
		}
		var payload errorPayload
		decode(t, readUntil(t, conn, "error"), &payload)
		if payload.Message != "invalid message" {
			t.Fatalf("unexpected error message %q", payload.Message)
		}
	}
	if store.Len() != 1 || hub.Len() != 1 {
		t.Fatalf("malformed frames must not end the session (sessions=%d, connections=%d)", store.Len(), hub.Len())
	}

	send(t, conn, map[string]any{"type": "submitAnswer", "payload": map[string]any{"questionId": question.ID, "answer": 7}})
	var feedback domain.FeedbackPayload
	decode(t, readUntil(t, conn, "answerFeedback"), &feedback)
	if !feedback.IsCorrect {
		t.Fatalf("expected the session to keep playing, got %+v", feedback)
	}
}

func TestWebSocketDisconnectRemovesSession(t *testing.T) {
	server, hub, store := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, map[string]any{"type": "join", "payload": map[string]any{"displayName": "Alice"}})
	readUntil(t, conn, "newQuestion")
	if store.Len() != 1 || hub.Len() != 1 {
		t.Fatalf("expected one session and one connection")
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 0 || hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not removed after disconnect (sessions=%d, connections=%d)", store.Len(), hub.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	for {
		var msg frame
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg.Payload
		}
	}
}

func decode(t *testing.T, raw json.RawMessage, into any) {
	t.Helper()
	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}
