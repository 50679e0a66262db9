package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TestAdminStore is the write surface of test administration.
type TestAdminStore interface {
	TestStore
	List(ctx context.Context) ([]model.Test, error)
	Create(ctx context.Context, t *model.Test) error
	Update(ctx context.Context, t *model.Test) error
	Delete(ctx context.Context, id int) error
	SetPasswordHash(ctx context.Context, id int, hash string) error
}

// QuestionAdminStore is the write surface of question administration.
type QuestionAdminStore interface {
	PaperQuestionStore
	GetByID(ctx context.Context, id int) (*model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id int) error
	CreateChoice(ctx context.Context, c *model.Choice) error
	ReplaceCorrections(ctx context.Context, questionID int, entries []model.CorrectionEntry) error
}

// TestService covers the administrative side: test CRUD, question authoring,
// answer keys, and the entry password.
type TestService struct {
	tests      TestAdminStore
	questions  QuestionAdminStore
	endTimes   EndTimeCache
	bcryptCost int
	log        zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestAdminStore, questions QuestionAdminStore, endTimes EndTimeCache, bcryptCost int, log zerolog.Logger) *TestService {
	return &TestService{
		tests:      tests,
		questions:  questions,
		endTimes:   endTimes,
		bcryptCost: bcryptCost,
		log:        log.With().Str("component", "test_service").Logger(),
	}
}

// List returns all tests.
func (s *TestService) List(ctx context.Context) ([]model.Test, error) {
	return s.tests.List(ctx)
}

// Get returns one test.
func (s *TestService) Get(ctx context.Context, id int) (*model.Test, error) {
	test, err := s.tests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	return test, nil
}

// Create registers a new test.
func (s *TestService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	test := &model.Test{
		Slug:            req.Slug,
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}
	if err := s.tests.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return test, nil
}

// Update edits a test. The cached end time is invalidated so running
// countdowns pick up a changed window on their next server sync.
func (s *TestService) Update(ctx context.Context, id int, req *model.UpdateTestRequest) (*model.Test, error) {
	test, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		test.Title = req.Title
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.DurationMinutes > 0 {
		test.DurationMinutes = req.DurationMinutes
	}
	if req.StartTime != nil {
		test.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		test.EndTime = req.EndTime
	}

	if err := s.tests.Update(ctx, test); err != nil {
		return nil, fmt.Errorf("update test: %w", err)
	}

	if err := s.endTimes.InvalidateEndTime(ctx, id); err != nil {
		s.log.Warn().Err(err).Int("test_id", id).Msg("Failed to invalidate end time cache")
	}
	return test, nil
}

// Delete removes a test together with its questions.
func (s *TestService) Delete(ctx context.Context, id int) error {
	return s.tests.Delete(ctx, id)
}

// SetPassword sets or replaces the entry password of a test.
func (s *TestService) SetPassword(ctx context.Context, id int, password string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.tests.SetPasswordHash(ctx, id, string(hash))
}

// AddQuestion creates a question under a test.
func (s *TestService) AddQuestion(ctx context.Context, testID int, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.Get(ctx, testID); err != nil {
		return nil, err
	}

	question := &model.Question{
		TestID:            testID,
		QuestionText:      req.QuestionText,
		QuestionMDX:       req.QuestionMDX,
		QuestionType:      model.QuestionType(req.QuestionType),
		Points:            req.Points,
		Minus:             req.Minus,
		ValidationPattern: req.ValidationPattern,
	}
	if err := s.questions.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

// ListQuestions returns a test's questions in canonical order, with choices.
func (s *TestService) ListQuestions(ctx context.Context, testID int) ([]model.Question, error) {
	return s.questions.ListByTest(ctx, testID)
}

// DeleteQuestion removes a question with its choices and key entries.
func (s *TestService) DeleteQuestion(ctx context.Context, id int) error {
	return s.questions.Delete(ctx, id)
}

// AddChoice creates a choice under a question.
func (s *TestService) AddChoice(ctx context.Context, questionID int, req *model.AddChoiceRequest) (*model.Choice, error) {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}

	choice := &model.Choice{
		QuestionID: questionID,
		ChoiceText: req.ChoiceText,
		ChoiceMDX:  req.ChoiceMDX,
	}
	if err := s.questions.CreateChoice(ctx, choice); err != nil {
		return nil, fmt.Errorf("create choice: %w", err)
	}
	return choice, nil
}

// SetCorrection replaces the answer key of a question.
func (s *TestService) SetCorrection(ctx context.Context, questionID int, req *model.SetCorrectionRequest) error {
	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("get question: %w", err)
	}

	entries := make([]model.CorrectionEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, model.CorrectionEntry{
			QuestionID: questionID,
			ChoiceID:   e.ChoiceID,
			AnswerText: e.AnswerText,
		})
	}
	return s.questions.ReplaceCorrections(ctx, questionID, entries)
}
