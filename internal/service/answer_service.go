package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Answer ledger errors surfaced to handlers.
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrPatternMismatch  = errors.New("answer does not match validation pattern")
)

// FlagStore is the revisit-marker persistence surface.
type FlagStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, f *model.Flag) error
	Delete(ctx context.Context, id string) error
	ListBySessionTeam(ctx context.Context, sessionID, teamID string) ([]model.Flag, error)
}

// EventPublisher fans session events out to connected team members.
type EventPublisher interface {
	Publish(ctx context.Context, sessionID string, event *SessionEvent) error
}

// AnswerService owns the answer ledger and revisit flags of a session.
type AnswerService struct {
	answers   AnswerStore
	flags     FlagStore
	questions QuestionStore
	events    EventPublisher
	log       zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(answers AnswerStore, flags FlagStore, questions QuestionStore, events EventPublisher, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		answers:   answers,
		flags:     flags,
		questions: questions,
		events:    events,
		log:       log.With().Str("component", "answer_service").Logger(),
	}
}

// Record saves a team's answer to a question. The deterministic
// "{session}-{question}" id makes concurrent saves by different team members
// converge on one row, last write winning. Short answers are validated
// against the question's pattern before anything is written; a mismatch
// leaves the previously stored answer untouched.
//
// The session must be ongoing. Other team members are notified through the
// session's event channel so their open papers stay in sync.
func (s *AnswerService) Record(ctx context.Context, session *model.TestSession, teamID string, questionID int, req *model.RecordAnswerRequest) (*model.Answer, error) {
	if session.Status == model.SessionStatusFinished {
		return nil, ErrSessionFinished
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}

	if question.QuestionType == model.QuestionTypeShortAnswer &&
		question.ValidationPattern != nil && req.AnswerText != nil {
		re, err := regexp.Compile(*question.ValidationPattern)
		if err != nil {
			s.log.Error().Err(err).Int("question_id", questionID).Msg("Invalid validation pattern on question")
		} else if !re.MatchString(*req.AnswerText) {
			return nil, ErrPatternMismatch
		}
	}

	answer := &model.Answer{
		ID:         model.AnswerID(session.ID, questionID),
		SessionID:  session.ID,
		TestID:     session.TestID,
		QuestionID: questionID,
		ChoiceID:   req.ChoiceID,
		AnswerText: req.AnswerText,
		TeamID:     teamID,
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}

	s.publish(ctx, session.ID, &SessionEvent{
		Type:       EventAnswerSaved,
		SessionID:  session.ID,
		QuestionID: questionID,
		TeamID:     teamID,
	})
	return answer, nil
}

// Clear removes a team's answer to a question outright.
func (s *AnswerService) Clear(ctx context.Context, session *model.TestSession, teamID string, questionID int) error {
	if session.Status == model.SessionStatusFinished {
		return ErrSessionFinished
	}

	if err := s.answers.Delete(ctx, model.AnswerID(session.ID, questionID)); err != nil {
		return fmt.Errorf("delete answer: %w", err)
	}

	s.publish(ctx, session.ID, &SessionEvent{
		Type:       EventAnswerCleared,
		SessionID:  session.ID,
		QuestionID: questionID,
		TeamID:     teamID,
	})
	return nil
}

// List returns all answers recorded in the session, ascending question order.
func (s *AnswerService) List(ctx context.Context, sessionID string) ([]model.Answer, error) {
	return s.answers.ListBySession(ctx, sessionID)
}

// ToggleFlag flips the revisit marker of a question for the calling team
// member's team and reports the resulting state.
func (s *AnswerService) ToggleFlag(ctx context.Context, session *model.TestSession, teamID string, questionID int) (bool, error) {
	if session.Status == model.SessionStatusFinished {
		return false, ErrSessionFinished
	}

	id := model.FlagID(session.ID, teamID, questionID)
	exists, err := s.flags.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check flag: %w", err)
	}

	flagged := !exists
	if exists {
		err = s.flags.Delete(ctx, id)
	} else {
		err = s.flags.Upsert(ctx, &model.Flag{ID: id, TeamID: teamID})
	}
	if err != nil {
		return false, fmt.Errorf("toggle flag: %w", err)
	}

	s.publish(ctx, session.ID, &SessionEvent{
		Type:       EventFlagToggled,
		SessionID:  session.ID,
		QuestionID: questionID,
		TeamID:     teamID,
		Flagged:    &flagged,
	})
	return flagged, nil
}

// ListFlags returns the team's revisit markers within the session.
func (s *AnswerService) ListFlags(ctx context.Context, sessionID, teamID string) ([]model.Flag, error) {
	return s.flags.ListBySessionTeam(ctx, sessionID, teamID)
}

// publish fans an event out on a best-effort basis; delivery failures are
// logged and never interrupt the write they follow.
func (s *AnswerService) publish(ctx context.Context, sessionID string, event *SessionEvent) {
	if err := s.events.Publish(ctx, sessionID, event); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to publish session event")
	}
}
