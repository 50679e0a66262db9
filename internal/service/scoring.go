package service

import (
	"strings"

	"github.com/findit-id/cbt-backend/internal/model"
)

// Score computes the final score of a session from its recorded answers, the
// test's questions, and the answer key. Pure function of its inputs: answers
// are immutable once a session finishes, so recomputation always yields the
// same value and persisting it is idempotent.
//
// Answers are scored in ascending question-id order (the ledger's listing
// order). Iteration stops at the first answer carrying neither a choice nor a
// text: the original grader breaks out of the loop there instead of skipping
// the row, leaving every later answer unscored. Kept intact so regraded
// historical sessions keep their published scores.
//
// Multiple-choice answers earn the question's points when any key entry
// matches the chosen choice id. Short answers match any key entry text
// case-insensitively. Multiple-answer questions fall through unscored, as in
// the original grader. No penalty is ever applied; Question.Minus is unused.
func Score(answers []model.Answer, questions []model.Question, corrections []model.CorrectionEntry) int {
	byID := make(map[int]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	total := 0
	for _, a := range answers {
		if a.ChoiceID == nil && a.AnswerText == nil {
			break
		}

		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}

		correct := false
		switch q.QuestionType {
		case model.QuestionTypeMultipleChoices:
			if a.ChoiceID != nil {
				for _, c := range corrections {
					if c.QuestionID == q.ID && c.ChoiceID != nil && *c.ChoiceID == *a.ChoiceID {
						correct = true
						break
					}
				}
			}
		case model.QuestionTypeShortAnswer:
			if a.AnswerText != nil {
				for _, c := range corrections {
					if c.QuestionID == q.ID && c.AnswerText != nil && strings.EqualFold(*c.AnswerText, *a.AnswerText) {
						correct = true
						break
					}
				}
			}
		}

		if correct {
			total += q.Points
		}
	}
	return total
}
