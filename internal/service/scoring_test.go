package service

import (
	"testing"

	"github.com/findit-id/cbt-backend/internal/model"
)

func mcQuestion(id, points int) model.Question {
	return model.Question{ID: id, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices, Points: points}
}

func saQuestion(id, points int) model.Question {
	return model.Question{ID: id, TestID: 1, QuestionType: model.QuestionTypeShortAnswer, Points: points}
}

func choiceAnswer(questionID, choiceID int) model.Answer {
	return model.Answer{ID: model.AnswerID("alpha-1", questionID), SessionID: "alpha-1", TestID: 1, QuestionID: questionID, ChoiceID: intPtr(choiceID)}
}

func textAnswer(questionID int, text string) model.Answer {
	return model.Answer{ID: model.AnswerID("alpha-1", questionID), SessionID: "alpha-1", TestID: 1, QuestionID: questionID, AnswerText: strPtr(text)}
}

func TestScoreSumsCorrectAnswers(t *testing.T) {
	questions := []model.Question{mcQuestion(1, 10), mcQuestion(2, 15), saQuestion(3, 5)}
	corrections := []model.CorrectionEntry{
		{QuestionID: 1, ChoiceID: intPtr(11)},
		{QuestionID: 2, ChoiceID: intPtr(22)},
		{QuestionID: 3, AnswerText: strPtr("photosynthesis")},
	}
	answers := []model.Answer{
		choiceAnswer(1, 11),             // correct: +10
		choiceAnswer(2, 21),             // wrong choice
		textAnswer(3, "photosynthesis"), // correct: +5
	}

	if got := Score(answers, questions, corrections); got != 15 {
		t.Fatalf("score = %d, want 15", got)
	}
}

func TestScoreShortAnswerCaseInsensitive(t *testing.T) {
	questions := []model.Question{saQuestion(1, 7)}
	corrections := []model.CorrectionEntry{{QuestionID: 1, AnswerText: strPtr("Jakarta")}}
	answers := []model.Answer{textAnswer(1, "jAkArTa")}

	if got := Score(answers, questions, corrections); got != 7 {
		t.Fatalf("score = %d, want 7", got)
	}
}

func TestScoreStopsAtFirstEmptyAnswer(t *testing.T) {
	questions := []model.Question{mcQuestion(1, 10), mcQuestion(2, 10), mcQuestion(3, 10)}
	corrections := []model.CorrectionEntry{
		{QuestionID: 1, ChoiceID: intPtr(11)},
		{QuestionID: 2, ChoiceID: intPtr(21)},
		{QuestionID: 3, ChoiceID: intPtr(31)},
	}
	// The middle answer carries neither field; grading stops there and the
	// correct answer after it earns nothing.
	answers := []model.Answer{
		choiceAnswer(1, 11),
		{ID: model.AnswerID("alpha-1", 2), SessionID: "alpha-1", TestID: 1, QuestionID: 2},
		choiceAnswer(3, 31),
	}

	if got := Score(answers, questions, corrections); got != 10 {
		t.Fatalf("score = %d, want 10", got)
	}
}

func TestScoreMultipleKeyEntriesAnyMatch(t *testing.T) {
	questions := []model.Question{saQuestion(1, 4)}
	corrections := []model.CorrectionEntry{
		{QuestionID: 1, AnswerText: strPtr("colour")},
		{QuestionID: 1, AnswerText: strPtr("color")},
	}

	if got := Score([]model.Answer{textAnswer(1, "color")}, questions, corrections); got != 4 {
		t.Fatalf("score = %d, want 4", got)
	}
}

func TestScoreMultipleAnswersTypeUnscored(t *testing.T) {
	questions := []model.Question{{ID: 1, TestID: 1, QuestionType: model.QuestionTypeMultipleAnswers, Points: 10}}
	corrections := []model.CorrectionEntry{{QuestionID: 1, ChoiceID: intPtr(11)}}

	if got := Score([]model.Answer{choiceAnswer(1, 11)}, questions, corrections); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}

func TestScoreIgnoresUnknownQuestion(t *testing.T) {
	questions := []model.Question{mcQuestion(1, 10)}
	corrections := []model.CorrectionEntry{{QuestionID: 1, ChoiceID: intPtr(11)}}
	answers := []model.Answer{choiceAnswer(99, 11), choiceAnswer(1, 11)}

	if got := Score(answers, questions, corrections); got != 10 {
		t.Fatalf("score = %d, want 10", got)
	}
}

func TestScoreNoPenaltyForWrongAnswers(t *testing.T) {
	questions := []model.Question{{ID: 1, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices, Points: 10, Minus: 5}}
	corrections := []model.CorrectionEntry{{QuestionID: 1, ChoiceID: intPtr(11)}}

	if got := Score([]model.Answer{choiceAnswer(1, 99)}, questions, corrections); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	if got := Score(nil, nil, nil); got != 0 {
		t.Fatalf("score = %d, want 0", got)
	}
}
