package domain

// EventType names an outbound event.
type EventType string

const (
	EventNewQuestion        EventType = "newQuestion"
	EventUpdateTimer        EventType = "updateTimer"
	EventAnswerFeedback     EventType = "answerFeedback"
	EventGameOver           EventType = "gameOver"
	EventUpdateLeaderboard  EventType = "updateLeaderboard"
	EventPlayerCount        EventType = "playerCount"
	EventWinnerNotification EventType = "winnerNotification"
)

// Feedback reasons shown to the player.
const (
	ReasonTimeUp      = "Time up!"
	ReasonInvalid     = "Please enter a whole number."
	ReasonServerFault = "Server error while checking your answer."
)

// NewQuestionPayload reveals a question without its answer.
type NewQuestionPayload struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
	Index  int    `json:"index"` // 1-based
	Total  int    `json:"total"`
}

// TimerPayload is sent once per second while a question is open.
type TimerPayload struct {
	SecondsLeft int `json:"secondsLeft"`
}

// FeedbackPayload tells a player how a question was resolved.
type FeedbackPayload struct {
	IsCorrect     bool   `json:"isCorrect"`
	Reason        string `json:"reason,omitempty"`
	CorrectAnswer int    `json:"correctAnswer"`
}

// GameOverPayload closes a player's run.
type GameOverPayload struct {
	Score     int    `json:"score"`
	ElapsedMs int64  `json:"elapsedMs"`
	TotalTime string `json:"totalTime"` // MM:SS.ff
}
