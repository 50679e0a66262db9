package service

import (
	"context"
	"errors"
	"testing"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/rs/zerolog"
)

func newAnswerFixture() (*AnswerService, *fakeAnswerStore, *fakeFlagStore, *fakeQuestionStore, *fakeEventPublisher) {
	answers := newFakeAnswerStore()
	flags := newFakeFlagStore()
	questions := newFakeQuestionStore()
	events := &fakeEventPublisher{}
	svc := NewAnswerService(answers, flags, questions, events, zerolog.Nop())
	return svc, answers, flags, questions, events
}

func ongoingSession() *model.TestSession {
	return &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1, Status: model.SessionStatusOngoing}
}

func TestRecordAnswerLastWriteWins(t *testing.T) {
	svc, answers, _, questions, events := newAnswerFixture()
	questions.questions[7] = &model.Question{ID: 7, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices}
	session := ongoingSession()
	ctx := context.Background()

	if _, err := svc.Record(ctx, session, "alpha", 7, &model.RecordAnswerRequest{ChoiceID: intPtr(71)}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	// A teammate overwrites the same question.
	if _, err := svc.Record(ctx, session, "alpha", 7, &model.RecordAnswerRequest{ChoiceID: intPtr(72)}); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	if len(answers.answers) != 1 {
		t.Fatalf("stored %d rows, want 1", len(answers.answers))
	}
	stored := answers.answers["alpha-1-7"]
	if stored == nil || stored.ChoiceID == nil || *stored.ChoiceID != 72 {
		t.Fatalf("stored answer = %+v, want choice 72", stored)
	}
	if len(events.events) != 2 {
		t.Fatalf("published %d events, want 2", len(events.events))
	}
}

func TestRecordAnswerPatternMismatchLeavesStoredAnswer(t *testing.T) {
	svc, answers, _, questions, _ := newAnswerFixture()
	questions.questions[3] = &model.Question{
		ID: 3, TestID: 1,
		QuestionType:      model.QuestionTypeShortAnswer,
		ValidationPattern: strPtr(`^[0-9]+$`),
	}
	session := ongoingSession()
	ctx := context.Background()

	if _, err := svc.Record(ctx, session, "alpha", 3, &model.RecordAnswerRequest{AnswerText: strPtr("42")}); err != nil {
		t.Fatalf("valid Record: %v", err)
	}

	_, err := svc.Record(ctx, session, "alpha", 3, &model.RecordAnswerRequest{AnswerText: strPtr("forty-two")})
	if !errors.Is(err, ErrPatternMismatch) {
		t.Fatalf("err = %v, want ErrPatternMismatch", err)
	}

	stored := answers.answers["alpha-1-3"]
	if stored == nil || stored.AnswerText == nil || *stored.AnswerText != "42" {
		t.Fatalf("stored answer = %+v, want previous text preserved", stored)
	}
}

func TestRecordAnswerRejectsFinishedSession(t *testing.T) {
	svc, _, _, questions, _ := newAnswerFixture()
	questions.questions[1] = &model.Question{ID: 1, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices}
	session := ongoingSession()
	session.Status = model.SessionStatusFinished

	_, err := svc.Record(context.Background(), session, "alpha", 1, &model.RecordAnswerRequest{ChoiceID: intPtr(11)})
	if !errors.Is(err, ErrSessionFinished) {
		t.Fatalf("err = %v, want ErrSessionFinished", err)
	}
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	svc, _, _, _, _ := newAnswerFixture()

	_, err := svc.Record(context.Background(), ongoingSession(), "alpha", 99, &model.RecordAnswerRequest{ChoiceID: intPtr(1)})
	if !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestClearAnswerRemovesRow(t *testing.T) {
	svc, answers, _, questions, _ := newAnswerFixture()
	questions.questions[7] = &model.Question{ID: 7, TestID: 1, QuestionType: model.QuestionTypeMultipleChoices}
	session := ongoingSession()
	ctx := context.Background()

	if _, err := svc.Record(ctx, session, "alpha", 7, &model.RecordAnswerRequest{ChoiceID: intPtr(71)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := svc.Clear(ctx, session, "alpha", 7); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(answers.answers) != 0 {
		t.Fatal("answer row not removed")
	}
}

func TestToggleFlagFlips(t *testing.T) {
	svc, _, flags, _, events := newAnswerFixture()
	session := ongoingSession()
	ctx := context.Background()

	flagged, err := svc.ToggleFlag(ctx, session, "alpha", 4)
	if err != nil || !flagged {
		t.Fatalf("first toggle: flagged=%v err=%v, want true", flagged, err)
	}
	if _, ok := flags.flags["alpha-1-alpha-4"]; !ok {
		t.Fatal("flag row not created")
	}

	flagged, err = svc.ToggleFlag(ctx, session, "alpha", 4)
	if err != nil || flagged {
		t.Fatalf("second toggle: flagged=%v err=%v, want false", flagged, err)
	}
	if len(flags.flags) != 0 {
		t.Fatal("flag row not removed on second toggle")
	}

	if len(events.events) != 2 {
		t.Fatalf("published %d events, want 2", len(events.events))
	}
	for _, e := range events.events {
		if e.Type != EventFlagToggled || e.Flagged == nil {
			t.Fatalf("event = %+v, want flag_toggled with state", e)
		}
	}
}

func TestListFlagsScopedToTeam(t *testing.T) {
	svc, _, _, _, _ := newAnswerFixture()
	session := ongoingSession()
	ctx := context.Background()

	if _, err := svc.ToggleFlag(ctx, session, "alpha", 1); err != nil {
		t.Fatalf("ToggleFlag: %v", err)
	}
	if _, err := svc.ToggleFlag(ctx, session, "bravo", 2); err != nil {
		t.Fatalf("ToggleFlag bravo: %v", err)
	}

	flags, err := svc.ListFlags(ctx, session.ID, "alpha")
	if err != nil {
		t.Fatalf("ListFlags: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("got %d flags, want 1", len(flags))
	}
}
