package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/findit-id/cbt-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Session lifecycle errors surfaced to handlers.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session already finished")
	ErrTestNotFound    = errors.New("test not found")
	ErrTestNoEndTime   = errors.New("test has no end time")
)

// SessionStore is the session persistence surface.
type SessionStore interface {
	Get(ctx context.Context, id string) (*model.TestSession, error)
	GetFinished(ctx context.Context, teamID string, testID int) (*model.TestSession, error)
	Upsert(ctx context.Context, s *model.TestSession) error
	MarkFinished(ctx context.Context, id string, answers json.RawMessage) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListOngoing(ctx context.Context, now time.Time) ([]repository.SessionOverview, error)
	ListOverdueIDs(ctx context.Context, now time.Time) ([]string, error)
}

// TestStore resolves tests.
type TestStore interface {
	GetByID(ctx context.Context, id int) (*model.Test, error)
	GetBySlug(ctx context.Context, slug string) (*model.Test, error)
}

// ScoreFinalizer triggers the once-per-session scoring of a finished session.
type ScoreFinalizer interface {
	Finalize(ctx context.Context, session *model.TestSession) error
}

// EndTimeCache caches test end times for the hot remaining-time path.
type EndTimeCache interface {
	GetEndTime(ctx context.Context, testID int) (time.Time, error)
	SetEndTime(ctx context.Context, testID int, end time.Time) error
	InvalidateEndTime(ctx context.Context, testID int) error
}

// SessionService owns the session lifecycle: idempotent start, server-side
// submission, administrative force submit, and authoritative remaining time.
type SessionService struct {
	sessions SessionStore
	tests    TestStore
	scoring  ScoreFinalizer
	endTimes EndTimeCache
	log      zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessions SessionStore, tests TestStore, scoring ScoreFinalizer, endTimes EndTimeCache, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		tests:    tests,
		scoring:  scoring,
		endTimes: endTimes,
		log:      log.With().Str("component", "session_service").Logger(),
	}
}

// GetOrCreate returns the team's session for a test, creating and starting it
// on first entry. The deterministic "{team}-{test}" id makes the operation
// idempotent: every team member lands on the same row no matter how many call
// concurrently. A finished session is returned unchanged, never restarted.
//
// Failure here is fatal for exam entry; the caller must not let a participant
// proceed on a session that was not durably persisted.
func (s *SessionService) GetOrCreate(ctx context.Context, teamID string, testID int) (*model.TestSession, error) {
	if finished, err := s.sessions.GetFinished(ctx, teamID, testID); err == nil {
		s.ensureScored(ctx, finished)
		return finished, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check finished session: %w", err)
	}

	session := &model.TestSession{
		ID:     model.SessionID(teamID, testID),
		TeamID: teamID,
		TestID: testID,
	}
	err := s.sessions.Upsert(ctx, session)
	if errors.Is(err, pgx.ErrNoRows) {
		// A teammate finished the session between the check and the upsert;
		// the guarded upsert refused to touch the finished row.
		return s.sessions.Get(ctx, session.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return session, nil
}

// Get returns a session by its composite id.
func (s *SessionService) Get(ctx context.Context, id string) (*model.TestSession, error) {
	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Submit finishes a session server-side, stamping the end time and storing
// the client's answers snapshot for audit. Submitting an already finished
// session is a no-op success; the stored outcome never changes. Scoring is
// triggered on the invocation that performed the transition.
func (s *SessionService) Submit(ctx context.Context, sessionID string, answers json.RawMessage) error {
	transitioned, err := s.sessions.MarkFinished(ctx, sessionID, answers)
	if err != nil {
		return fmt.Errorf("mark finished: %w", err)
	}
	if !transitioned {
		exists, err := s.sessions.Exists(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if !exists {
			return ErrSessionNotFound
		}
		return nil
	}

	s.log.Info().Str("session_id", sessionID).Msg("Session submitted")

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to reload session for scoring")
		return nil
	}
	s.ensureScored(ctx, session)
	return nil
}

// ForceSubmit finishes each listed session independently and reports the
// per-session outcome. One failure never aborts the rest. An already finished
// session counts as success: the desired end state holds.
func (s *SessionService) ForceSubmit(ctx context.Context, sessionIDs []string) []model.ForceSubmitResult {
	results := make([]model.ForceSubmitResult, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		results = append(results, s.forceSubmitOne(ctx, id))
	}
	return results
}

func (s *SessionService) forceSubmitOne(ctx context.Context, id string) model.ForceSubmitResult {
	transitioned, err := s.sessions.MarkFinished(ctx, id, nil)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Force submit failed")
		return model.ForceSubmitResult{SessionID: id, Success: false, Error: "failed to finish session"}
	}
	if !transitioned {
		exists, err := s.sessions.Exists(ctx, id)
		if err != nil {
			s.log.Error().Err(err).Str("session_id", id).Msg("Force submit existence check failed")
			return model.ForceSubmitResult{SessionID: id, Success: false, Error: "failed to finish session"}
		}
		if !exists {
			return model.ForceSubmitResult{SessionID: id, Success: false, Error: "session not found"}
		}
		return model.ForceSubmitResult{SessionID: id, Success: true}
	}

	s.log.Info().Str("session_id", id).Msg("Session force submitted")

	if session, err := s.sessions.Get(ctx, id); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to reload session for scoring")
	} else {
		s.ensureScored(ctx, session)
	}
	return model.ForceSubmitResult{SessionID: id, Success: true}
}

// RemainingSeconds returns the authoritative seconds left in the test window,
// floored, negative once the window has closed. The end time is served from
// cache on the hot path and backfilled from storage on a miss.
func (s *SessionService) RemainingSeconds(ctx context.Context, testID int) (int64, error) {
	end, err := s.endTimes.GetEndTime(ctx, testID)
	if err != nil {
		test, err := s.tests.GetByID(ctx, testID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrTestNotFound
			}
			return 0, fmt.Errorf("get test: %w", err)
		}
		end = test.EffectiveEndTime()
		if end.IsZero() {
			return 0, ErrTestNoEndTime
		}
		if err := s.endTimes.SetEndTime(ctx, testID, end); err != nil {
			s.log.Warn().Err(err).Int("test_id", testID).Msg("Failed to cache test end time")
		}
	}

	remaining := math.Floor(time.Until(end).Seconds())
	return int64(remaining), nil
}

// ListOngoing returns the administrative overview of running sessions.
func (s *SessionService) ListOngoing(ctx context.Context) ([]repository.SessionOverview, error) {
	return s.sessions.ListOngoing(ctx, time.Now())
}

// SweepOverdue force-submits every ongoing session whose test window has
// closed. Returns the per-session outcomes for logging.
func (s *SessionService) SweepOverdue(ctx context.Context) ([]model.ForceSubmitResult, error) {
	ids, err := s.sessions.ListOverdueIDs(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.ForceSubmit(ctx, ids), nil
}

// ensureScored triggers scoring for a finished session. Safe to call
// repeatedly: finalization checks for an existing score row first. Scoring
// failures are logged, never propagated into the exam flow.
func (s *SessionService) ensureScored(ctx context.Context, session *model.TestSession) {
	if session.Status != model.SessionStatusFinished {
		return
	}
	if err := s.scoring.Finalize(ctx, session); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to finalize score")
	}
}
