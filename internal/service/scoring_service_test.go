package service

import (
	"context"
	"testing"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/rs/zerolog"
)

func TestFinalizeComputesAndEnqueues(t *testing.T) {
	answers := newFakeAnswerStore()
	questions := newFakeQuestionStore()
	scores := newFakeScoreStore()
	queue := &fakeScoreQueue{}
	svc := NewScoringService(answers, questions, scores, queue, zerolog.Nop())
	ctx := context.Background()

	questions.questions[1] = &model.Question{ID: 1, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices, Points: 10}
	questions.corrections = []model.CorrectionEntry{{QuestionID: 1, ChoiceID: intPtr(11)}}
	if err := answers.Upsert(ctx, &model.Answer{
		ID: "alpha-1-1", SessionID: "alpha-1", TestID: 1, QuestionID: 1, ChoiceID: intPtr(11), TeamID: "alpha",
	}); err != nil {
		t.Fatalf("seed answer: %v", err)
	}

	session := &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1, Status: model.SessionStatusFinished}
	if err := svc.Finalize(ctx, session); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued %d scores, want 1", len(queue.enqueued))
	}
	got := queue.enqueued[0]
	if got.ID != "alpha-1-alpha-1" {
		t.Fatalf("score id = %q, want alpha-1-alpha-1", got.ID)
	}
	if got.Score != 10 {
		t.Fatalf("score = %d, want 10", got.Score)
	}
}

func TestFinalizeSkipsAlreadyScored(t *testing.T) {
	scores := newFakeScoreStore()
	queue := &fakeScoreQueue{}
	svc := NewScoringService(newFakeAnswerStore(), newFakeQuestionStore(), scores, queue, zerolog.Nop())

	scores.scores["alpha-1-alpha-1"] = &model.Score{ID: "alpha-1-alpha-1", Score: 25}

	session := &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1, Status: model.SessionStatusFinished}
	if err := svc.Finalize(context.Background(), session); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(queue.enqueued) != 0 {
		t.Fatal("rescored a session that already has a score row")
	}
}

func TestFinalizeEnqueueFailurePropagates(t *testing.T) {
	queue := &fakeScoreQueue{err: errStorage}
	svc := NewScoringService(newFakeAnswerStore(), newFakeQuestionStore(), newFakeScoreStore(), queue, zerolog.Nop())

	session := &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1, Status: model.SessionStatusFinished}
	if err := svc.Finalize(context.Background(), session); err == nil {
		t.Fatal("expected enqueue failure to propagate")
	}
}
