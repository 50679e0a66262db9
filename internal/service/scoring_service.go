package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// AnswerStore is the answer ledger surface scoring and the portal need.
type AnswerStore interface {
	Upsert(ctx context.Context, a *model.Answer) error
	Delete(ctx context.Context, id string) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Answer, error)
}

// QuestionStore provides questions and the answer key.
type QuestionStore interface {
	ListByTest(ctx context.Context, testID int) ([]model.Question, error)
	GetByID(ctx context.Context, id int) (*model.Question, error)
	ListAllCorrections(ctx context.Context) ([]model.CorrectionEntry, error)
}

// ScoreStore reads persisted score rows.
type ScoreStore interface {
	Get(ctx context.Context, id string) (*model.Score, error)
}

// ScoreQueue hands computed scores to the background persister.
type ScoreQueue interface {
	EnqueueScore(ctx context.Context, s *model.Score) error
}

// ScoringService computes final scores and hands them off for persistence.
type ScoringService struct {
	answers   AnswerStore
	questions QuestionStore
	scores    ScoreStore
	queue     ScoreQueue
	log       zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(answers AnswerStore, questions QuestionStore, scores ScoreStore, queue ScoreQueue, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		answers:   answers,
		questions: questions,
		scores:    scores,
		queue:     queue,
		log:       log.With().Str("component", "scoring_service").Logger(),
	}
}

// Calculate loads the session's answers, the test's questions, and the answer
// key, and computes the score without persisting anything.
func (s *ScoringService) Calculate(ctx context.Context, sessionID string, testID int) (int, error) {
	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("list answers: %w", err)
	}
	questions, err := s.questions.ListByTest(ctx, testID)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	corrections, err := s.questions.ListAllCorrections(ctx)
	if err != nil {
		return 0, fmt.Errorf("list corrections: %w", err)
	}

	return Score(answers, questions, corrections), nil
}

// Finalize computes and enqueues the score of a finished session, once. A
// session that already has a score row is left alone; the deterministic score
// id makes the eventual persist idempotent even if two finalizations race.
func (s *ScoringService) Finalize(ctx context.Context, session *model.TestSession) error {
	scoreID := model.ScoreID(session.TeamID, session.TestID, session.ID)

	if _, err := s.scores.Get(ctx, scoreID); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check score: %w", err)
	}

	value, err := s.Calculate(ctx, session.ID, session.TestID)
	if err != nil {
		return err
	}

	score := &model.Score{
		ID:        scoreID,
		TeamID:    session.TeamID,
		TestID:    session.TestID,
		SessionID: session.ID,
		Score:     value,
	}
	if err := s.queue.EnqueueScore(ctx, score); err != nil {
		return fmt.Errorf("enqueue score: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID).
		Int("score", value).
		Msg("Score finalized")
	return nil
}
