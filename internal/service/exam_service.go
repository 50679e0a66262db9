package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/shuffle"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Exam entry errors surfaced to handlers.
var (
	ErrTestNoPassword      = errors.New("test has no entry password")
	ErrTestPasswordInvalid = errors.New("invalid test password")
)

// PaperQuestionStore provides the question material of a test paper.
type PaperQuestionStore interface {
	ListByTest(ctx context.Context, testID int) ([]model.Question, error)
	ListChoices(ctx context.Context, questionID int) ([]model.Choice, error)
}

// PaperQuestion is one question as presented to a team, choices already in
// the team's deterministic order. The answer key never travels with it.
type PaperQuestion struct {
	ID                int                `json:"id"`
	QuestionText      string             `json:"question_text"`
	QuestionMDX       *string            `json:"question_mdx,omitempty"`
	QuestionType      model.QuestionType `json:"question_type"`
	Points            int                `json:"points"`
	ValidationPattern *string            `json:"validation_pattern,omitempty"`
	Choices           []model.Choice     `json:"choices,omitempty"`
}

// ExamService assembles the exam paper a team sees and guards test entry.
type ExamService struct {
	tests     TestStore
	questions PaperQuestionStore
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(tests TestStore, questions PaperQuestionStore, log zerolog.Logger) *ExamService {
	return &ExamService{
		tests:     tests,
		questions: questions,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// GetTestBySlug resolves a test from its public slug.
func (s *ExamService) GetTestBySlug(ctx context.Context, slug string) (*model.Test, error) {
	test, err := s.tests.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return test, nil
}

// VerifyPassword checks the test's entry password gate.
func (s *ExamService) VerifyPassword(test *model.Test, password string) error {
	if test.PasswordHash == nil {
		return ErrTestNoPassword
	}
	if bcrypt.CompareHashAndPassword([]byte(*test.PasswordHash), []byte(password)) != nil {
		return ErrTestPasswordInvalid
	}
	return nil
}

// BuildPaper assembles the shuffled paper for a team's session.
//
// Question order derives from the "{team}-{test}" seed, so every member of
// the team sees the same order across devices and reloads, while different
// teams see different orders. Choice order within each question derives from
// the session id. Both orders are pure functions of persisted identifiers:
// nothing about the permutation is stored, yet it never changes for the
// lifetime of the attempt.
func (s *ExamService) BuildPaper(ctx context.Context, teamID string, test *model.Test, session *model.TestSession) ([]PaperQuestion, error) {
	questions, err := s.questions.ListByTest(ctx, test.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questionSeed := fmt.Sprintf("%s-%d", teamID, test.ID)
	ordered := shuffle.Shuffle(questions, questionSeed)

	paper := make([]PaperQuestion, 0, len(ordered))
	for _, q := range ordered {
		pq := PaperQuestion{
			ID:                q.ID,
			QuestionText:      q.QuestionText,
			QuestionMDX:       q.QuestionMDX,
			QuestionType:      q.QuestionType,
			Points:            q.Points,
			ValidationPattern: q.ValidationPattern,
		}

		if q.QuestionType != model.QuestionTypeShortAnswer {
			choices, err := s.questions.ListChoices(ctx, q.ID)
			if err != nil {
				return nil, fmt.Errorf("list choices for question %d: %w", q.ID, err)
			}
			pq.Choices = shuffle.Shuffle(choices, session.ID)
		}

		paper = append(paper, pq)
	}
	return paper, nil
}
