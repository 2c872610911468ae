package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Inbound frame types.
const (
	msgJoin         = "join"
	msgSubmitAnswer = "submitAnswer"
)

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(service *app.QuizService, hub *Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	DisplayName string `json:"displayName"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// Each connection gets a fresh id that doubles as its session id.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	c := h.hub.register(connID)
	logger := h.logger.With().Str("connection_id", connID).Logger()
	logger.Debug().Msg("connection opened")

	writerDone := make(chan struct{})
	go h.writePump(conn, c, writerDone, logger)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("ws read error")
			}
			break
		}
		// a bad frame is answered on this connection only; the session stays
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			logger.Debug().Err(err).Msg("malformed frame")
			c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid message"}})
			continue
		}
		h.dispatch(r, connID, c, inbound, logger)
	}

	h.hub.unregister(connID)
	h.service.Leave(r.Context(), connID)
	<-writerDone
	logger.Debug().Msg("connection closed")
}

func (h *WSHandler) dispatch(r *http.Request, connID string, c *client, inbound inboundMessage, logger zerolog.Logger) {
	switch inbound.Type {
	case msgJoin:
		var payload joinPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid join payload"}})
				return
			}
		}
		h.service.Join(r.Context(), connID, payload.DisplayName)
	case msgSubmitAnswer:
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
			return
		}
		_, err := h.service.SubmitAnswer(r.Context(), connID, payload.QuestionID, payload.Answer)
		if err != nil && !isIgnorable(err) {
			logger.Warn().Err(err).Msg("submit answer failed")
		}
	default:
		c.enqueue(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, c *client, done chan<- struct{}, logger zerolog.Logger) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				abandon(conn, c)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug().Err(err).Msg("ws ping error")
				abandon(conn, c)
				return
			}
		}
	}
}

// abandon unblocks the reader and discards frames until the hub closes the queue.
func abandon(conn *websocket.Conn, c *client) {
	_ = conn.Close()
	for range c.send {
	}
}

// isIgnorable reports the session errors that are expected races, not faults.
func isIgnorable(err error) bool {
	return errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrSessionFinished) ||
		errors.Is(err, domain.ErrAnswerPending)
}
