package app

import "time"

// Settings holds the timing constants of a quiz run.
type Settings struct {
	QuestionCount  int
	QuestionTime   time.Duration
	CorrectDelay   time.Duration
	IncorrectDelay time.Duration
	FaultDelay     time.Duration
}

// DefaultSettings returns the standard ten question, sixty second game.
func DefaultSettings() Settings {
	return Settings{
		QuestionCount:  10,
		QuestionTime:   60 * time.Second,
		CorrectDelay:   1000 * time.Millisecond,
		IncorrectDelay: 2000 * time.Millisecond,
		FaultDelay:     3000 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.QuestionCount <= 0 {
		s.QuestionCount = d.QuestionCount
	}
	if s.QuestionTime < time.Second {
		s.QuestionTime = d.QuestionTime
	}
	if s.CorrectDelay <= 0 {
		s.CorrectDelay = d.CorrectDelay
	}
	if s.IncorrectDelay <= 0 {
		s.IncorrectDelay = d.IncorrectDelay
	}
	if s.FaultDelay <= 0 {
		s.FaultDelay = d.FaultDelay
	}
	return s
}
