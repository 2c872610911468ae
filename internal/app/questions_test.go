package app_test

import (
	"math/rand"
	"regexp"
	"strconv"
	"testing"

	"mathquiz-service/internal/app"
)

var promptPattern = regexp.MustCompile(`^(?:(\d)·)?X \+ (\d+) = (\d+)$`)

func TestQuestionGeneratorProducesSolvableEquations(t *testing.T) {
	gen := app.NewQuestionGeneratorWithRand(rand.New(rand.NewSource(42)))
	questions := gen.Generate(200)
	if len(questions) != 200 {
		t.Fatalf("expected 200 questions, got %d", len(questions))
	}

	seen := make(map[string]bool)
	for _, q := range questions {
		if seen[q.ID] {
			t.Fatalf("duplicate question id %s", q.ID)
		}
		seen[q.ID] = true
		if q.Points != app.QuestionPoints {
			t.Fatalf("unexpected points %d", q.Points)
		}

		m := promptPattern.FindStringSubmatch(q.Prompt)
		if m == nil {
			t.Fatalf("unexpected prompt %q", q.Prompt)
		}
		a := 1
		if m[1] != "" {
			a, _ = strconv.Atoi(m[1])
			if a == 1 {
				t.Fatalf("coefficient 1 must be omitted: %q", q.Prompt)
			}
		}
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])
		x := q.ExpectedAnswer

		if a < 1 || a > 5 || b < 1 || b > 10 || x < 1 || x > 10 {
			t.Fatalf("operand out of range in %q (x=%d)", q.Prompt, x)
		}
		if a*x+b != c {
			t.Fatalf("%q is not solved by %d", q.Prompt, x)
		}
	}
}

func TestQuestionGeneratorIsDeterministicForSeed(t *testing.T) {
	first := app.NewQuestionGeneratorWithRand(rand.New(rand.NewSource(7))).Generate(10)
	second := app.NewQuestionGeneratorWithRand(rand.New(rand.NewSource(7))).Generate(10)
	for i := range first {
		if first[i].Prompt != second[i].Prompt || first[i].ExpectedAnswer != second[i].ExpectedAnswer {
			t.Fatalf("question %d differs for the same seed", i)
		}
	}
}
