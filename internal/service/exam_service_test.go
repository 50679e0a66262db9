package service

import (
	"context"
	"errors"
	"testing"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func seedPaperFixture(questions *fakeQuestionStore, testID, n int) {
	for i := 1; i <= n; i++ {
		questions.questions[i] = &model.Question{
			ID: i, TestID: testID,
			QuestionType: model.QuestionTypeMultipleChoices,
			Points:       10,
		}
		questions.choices[i] = []model.Choice{
			{ID: i*10 + 1, QuestionID: i},
			{ID: i*10 + 2, QuestionID: i},
			{ID: i*10 + 3, QuestionID: i},
			{ID: i*10 + 4, QuestionID: i},
		}
	}
}

func questionIDs(paper []PaperQuestion) []int {
	ids := make([]int, len(paper))
	for i, q := range paper {
		ids[i] = q.ID
	}
	return ids
}

func TestBuildPaperStableAcrossTeamMembers(t *testing.T) {
	questions := newFakeQuestionStore()
	seedPaperFixture(questions, 1, 8)
	svc := NewExamService(&fakeTestStore{}, questions, zerolog.Nop())

	test := &model.Test{ID: 1}
	session := &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1}

	first, err := svc.BuildPaper(context.Background(), "alpha", test, session)
	if err != nil {
		t.Fatalf("BuildPaper: %v", err)
	}
	second, err := svc.BuildPaper(context.Background(), "alpha", test, session)
	if err != nil {
		t.Fatalf("BuildPaper again: %v", err)
	}

	firstIDs, secondIDs := questionIDs(first), questionIDs(second)
	for i := range firstIDs {
		if firstIDs[i] != secondIDs[i] {
			t.Fatalf("question order unstable: %v vs %v", firstIDs, secondIDs)
		}
	}
	for i := range first {
		for j := range first[i].Choices {
			if first[i].Choices[j].ID != second[i].Choices[j].ID {
				t.Fatalf("choice order unstable for question %d", first[i].ID)
			}
		}
	}
}

func TestBuildPaperDiffersBetweenTeams(t *testing.T) {
	questions := newFakeQuestionStore()
	seedPaperFixture(questions, 1, 10)
	svc := NewExamService(&fakeTestStore{}, questions, zerolog.Nop())
	test := &model.Test{ID: 1}

	alpha, err := svc.BuildPaper(context.Background(), "alpha", test, &model.TestSession{ID: "alpha-1", TeamID: "alpha", TestID: 1})
	if err != nil {
		t.Fatalf("BuildPaper alpha: %v", err)
	}
	bravo, err := svc.BuildPaper(context.Background(), "bravo", test, &model.TestSession{ID: "bravo-1", TeamID: "bravo", TestID: 1})
	if err != nil {
		t.Fatalf("BuildPaper bravo: %v", err)
	}

	alphaIDs, bravoIDs := questionIDs(alpha), questionIDs(bravo)
	same := true
	for i := range alphaIDs {
		if alphaIDs[i] != bravoIDs[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different teams got identical order: %v", alphaIDs)
	}
}

func TestBuildPaperOmitsShortAnswerChoices(t *testing.T) {
	questions := newFakeQuestionStore()
	questions.questions[1] = &model.Question{
		ID: 1, TestID: 1,
		QuestionType:      model.QuestionTypeShortAnswer,
		Points:            5,
		ValidationPattern: strPtr(`^[a-z]+$`),
	}
	svc := NewExamService(&fakeTestStore{}, questions, zerolog.Nop())

	paper, err := svc.BuildPaper(context.Background(), "alpha", &model.Test{ID: 1}, &model.TestSession{ID: "alpha-1"})
	if err != nil {
		t.Fatalf("BuildPaper: %v", err)
	}
	if len(paper) != 1 || paper[0].Choices != nil {
		t.Fatalf("paper = %+v, want one question without choices", paper)
	}
	if paper[0].ValidationPattern == nil {
		t.Fatal("validation pattern dropped from paper")
	}
}

func TestVerifyPassword(t *testing.T) {
	svc := NewExamService(&fakeTestStore{}, newFakeQuestionStore(), zerolog.Nop())

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	hashStr := string(hash)

	if err := svc.VerifyPassword(&model.Test{PasswordHash: &hashStr}, "open-sesame"); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := svc.VerifyPassword(&model.Test{PasswordHash: &hashStr}, "wrong"); !errors.Is(err, ErrTestPasswordInvalid) {
		t.Fatalf("err = %v, want ErrTestPasswordInvalid", err)
	}
	if err := svc.VerifyPassword(&model.Test{}, "anything"); !errors.Is(err, ErrTestNoPassword) {
		t.Fatalf("err = %v, want ErrTestNoPassword", err)
	}
}
