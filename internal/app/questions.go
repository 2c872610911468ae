package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"mathquiz-service/internal/domain"

	"github.com/google/uuid"
)

// QuestionPoints is the fixed award for a correct answer.
const QuestionPoints = 10

// QuestionSource builds the ordered question set of a new session.
type QuestionSource interface {
	Generate(count int) []domain.Question
}

// QuestionGenerator draws linear equations A·X + B = C with X as the answer.
type QuestionGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionGenerator() *QuestionGenerator {
	return NewQuestionGeneratorWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewQuestionGeneratorWithRand allows deterministic question sets in tests.
func NewQuestionGeneratorWithRand(rnd *rand.Rand) *QuestionGenerator {
	return &QuestionGenerator{rnd: rnd}
}

// Generate returns count freshly drawn questions.
func (g *QuestionGenerator) Generate(count int) []domain.Question {
	g.mu.Lock()
	defer g.mu.Unlock()

	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		a := g.rnd.Intn(5) + 1
		b := g.rnd.Intn(10) + 1
		x := g.rnd.Intn(10) + 1
		questions = append(questions, domain.Question{
			ID:             uuid.NewString(),
			Prompt:         renderPrompt(a, b, a*x+b),
			ExpectedAnswer: x,
			Points:         QuestionPoints,
		})
	}
	return questions
}

func renderPrompt(a, b, c int) string {
	if a == 1 {
		return fmt.Sprintf("X + %d = %d", b, c)
	}
	return fmt.Sprintf("%d·X + %d = %d", a, b, c)
}
