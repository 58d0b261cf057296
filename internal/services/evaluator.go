package services

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/EduCore-2025/exam-engine/internal/models"
)

const numericTolerance = 1e-6

// Evaluate grades a submitted answer against a question. Evaluation is
// deterministic per question type; an unknown type falls back to the text
// comparison so a catalog rollout with a new type degrades instead of failing.
func Evaluate(question *models.Question, answer string) bool {
	switch question.Type {
	case models.SingleChoice, models.TrueFalse:
		return evaluateChoice(question.CorrectAnswer, answer)
	case models.MultipleChoice:
		return evaluateMultiChoice(question.CorrectAnswer, answer)
	case models.Numeric:
		return evaluateNumeric(question.CorrectAnswer, answer)
	case models.ShortAnswer:
		return evaluateText(question.CorrectAnswer, answer)
	default:
		return evaluateText(question.CorrectAnswer, answer)
	}
}

// Choice answers are option IDs; comparison is exact after trimming.
func evaluateChoice(correct, answer string) bool {
	return strings.TrimSpace(answer) == strings.TrimSpace(correct)
}

// Multi-choice answers are comma-separated option IDs, order-insensitive.
func evaluateMultiChoice(correct, answer string) bool {
	return canonicalSet(answer) == canonicalSet(correct)
}

func canonicalSet(s string) string {
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// Numeric answers compare within a fixed tolerance; an unparseable submission
// is wrong, not an error.
func evaluateNumeric(correct, answer string) bool {
	want, err := strconv.ParseFloat(strings.TrimSpace(correct), 64)
	if err != nil {
		return evaluateText(correct, answer)
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
	if err != nil {
		return false
	}
	return math.Abs(want-got) <= numericTolerance
}

// Text answers compare case-insensitively with surrounding whitespace ignored.
func evaluateText(correct, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}
