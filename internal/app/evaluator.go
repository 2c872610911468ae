package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"mathquiz-service/internal/domain"
)

// maxExactFloat is the largest float64 magnitude with exact integer precision.
const maxExactFloat = 1 << 53

// SubmitAnswer evaluates an answer to the session's current question and
// schedules the advance. Missing, finished or already-answered sessions are
// left untouched and reported with a sentinel error.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer any) (domain.Outcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		s.logger.Debug().Str("session_id", sessionID).Msg("answer ignored: session not found")
		return "", domain.ErrSessionNotFound
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch {
	case session.removed:
		s.logger.Debug().Str("session_id", sessionID).Msg("answer ignored: session not found")
		return "", domain.ErrSessionNotFound
	case session.status == domain.StatusFinished:
		s.logger.Debug().Str("session_id", sessionID).Msg("answer ignored: session finished")
		return "", domain.ErrSessionFinished
	case session.pending != nil:
		s.logger.Debug().Str("session_id", sessionID).Msg("answer ignored: advance pending")
		return "", domain.ErrAnswerPending
	}

	// a late but valid answer must win over the countdown
	s.countdown.Cancel(session)

	outcome, feedback, err := s.evaluateLocked(session, questionID, answer)
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("answer evaluation failed")
		outcome = domain.OutcomeServerFault
		feedback = domain.FeedbackPayload{Reason: domain.ReasonServerFault}
		if current, qerr := session.currentQuestion(); qerr == nil {
			feedback.CorrectAnswer = current.ExpectedAnswer
		}
	}

	s.scheduleAdvanceLocked(session, s.advanceDelay(outcome))
	s.out.Unicast(sessionID, domain.EventAnswerFeedback, feedback)

	s.logger.Debug().
		Str("session_id", sessionID).
		Str("outcome", string(outcome)).
		Int("score", session.score).
		Msg("answer evaluated")
	return outcome, nil
}

// evaluateLocked converts panics into errors so a fault never strands the session.
func (s *QuizService) evaluateLocked(session *Session, questionID string, answer any) (outcome domain.Outcome, feedback domain.FeedbackPayload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate answer: panic: %v", r)
		}
	}()

	current, err := session.currentQuestion()
	if err != nil {
		return "", domain.FeedbackPayload{}, err
	}
	feedback.CorrectAnswer = current.ExpectedAnswer

	value, perr := s.parse(answer)
	if perr != nil {
		feedback.Reason = domain.ReasonInvalid
		return domain.OutcomeInvalidInput, feedback, nil
	}
	if questionID != current.ID || value != current.ExpectedAnswer {
		return domain.OutcomeIncorrect, feedback, nil
	}

	session.score += current.Points
	feedback.IsCorrect = true
	return domain.OutcomeCorrect, feedback, nil
}

func (s *QuizService) advanceDelay(outcome domain.Outcome) time.Duration {
	switch outcome {
	case domain.OutcomeCorrect:
		return s.settings.CorrectDelay
	case domain.OutcomeServerFault:
		return s.settings.FaultDelay
	default:
		return s.settings.IncorrectDelay
	}
}

// ParseAnswer accepts an integer given as a JSON number or a numeric string.
func ParseAnswer(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return integralFloat(v, raw)
	case json.Number:
		return ParseAnswer(v.String())
	case string:
		text := strings.TrimSpace(v)
		if n, err := strconv.Atoi(text); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidAnswer, v)
		}
		return integralFloat(f, raw)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", domain.ErrInvalidAnswer, raw)
	}
}

func integralFloat(f float64, raw any) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidAnswer, raw)
	}
	return int(f), nil
}
