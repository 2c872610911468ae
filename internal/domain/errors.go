package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session exists for a connection.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished is returned when a finished session receives a submission or advance.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrAnswerPending indicates the current question was already evaluated and an advance is scheduled.
	ErrAnswerPending = errors.New("answer already evaluated, advance pending")
	// ErrInvalidAnswer indicates a submission that does not parse as an integer.
	ErrInvalidAnswer = errors.New("answer is not an integer")
)
