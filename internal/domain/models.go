package domain

import "time"

// Status is the lifecycle state of a player's session. Transitions are one-way.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Question is one generated linear equation. Immutable once generated.
type Question struct {
	ID             string `json:"id"`
	Prompt         string `json:"text"`
	ExpectedAnswer int    `json:"-"` // server-side only
	Points         int    `json:"points"`
}

// Outcome classifies an evaluated submission.
type Outcome string

const (
	OutcomeCorrect      Outcome = "correct"
	OutcomeIncorrect    Outcome = "incorrect"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeServerFault  Outcome = "server_fault"
)

// SessionSnapshot is a point-in-time copy of the fields ranking needs.
type SessionSnapshot struct {
	ID            string
	DisplayName   string
	Score         int
	QuestionIndex int
	Total         int
	Status        Status
	Elapsed       time.Duration // valid only when Finished
}

// Finished reports whether the snapshot was taken after the terminal transition.
func (s SessionSnapshot) Finished() bool {
	return s.Status == StatusFinished
}

// SortKey is the ranking key of a leaderboard entry. In-progress entries carry no time.
type SortKey struct {
	Finished bool
	Score    int
	Elapsed  time.Duration
}

// LeaderboardEntry is a ranked projection of one session.
type LeaderboardEntry struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Score       int     `json:"score"`
	StatusLabel string  `json:"statusLabel"`
	SortKey     SortKey `json:"-"`
}

// Winner is one of the top finished sessions.
type Winner struct {
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	FormattedTime string `json:"formattedTime"`
}

// Result is an archived finished game.
type Result struct {
	SessionID   string    `json:"sessionId"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	ElapsedMs   int64     `json:"elapsedMs"`
	FinishedAt  time.Time `json:"finishedAt"`
}
