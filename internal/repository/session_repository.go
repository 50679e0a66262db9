package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionOverview is a test session joined with its team and test for the
// administrative session list.
type SessionOverview struct {
	SessionID   string              `json:"id"`
	TeamName    string              `json:"team_name"`
	TestTitle   string              `json:"test_title"`
	Status      model.SessionStatus `json:"status"`
	StartTime   *time.Time          `json:"start_time"`
	TestEndTime *time.Time          `json:"test_end_time"`
	Overdue     bool                `json:"overdue"`
}

// SessionRepository handles test session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, team_id, test_id, status, start_time, end_time, answers`

// Get retrieves a session by its composite id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.TeamID, &s.TestID, &s.Status, &s.StartTime, &s.EndTime, &s.Answers)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetFinished retrieves the finished session for a (team, test) pair, if any.
func (r *SessionRepository) GetFinished(ctx context.Context, teamID string, testID int) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM test_sessions
		 WHERE team_id = $1 AND test_id = $2 AND status = $3`,
		teamID, testID, model.SessionStatusFinished,
	).Scan(&s.ID, &s.TeamID, &s.TestID, &s.Status, &s.StartTime, &s.EndTime, &s.Answers)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert creates or refreshes the ongoing session for a (team, test) pair.
// The conflict target is the deterministic id, so concurrent calls by
// different team members converge on one row. A finished row is never flipped
// back to ongoing: the guarded DO UPDATE skips it, and the caller receives
// pgx.ErrNoRows to signal "already finished, fetch it instead".
func (r *SessionRepository) Upsert(ctx context.Context, s *model.TestSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (id, team_id, test_id, status)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
		 WHERE test_sessions.status <> 'finished'
		 RETURNING `+sessionColumns,
		s.ID, s.TeamID, s.TestID, model.SessionStatusOngoing,
	).Scan(&s.ID, &s.TeamID, &s.TestID, &s.Status, &s.StartTime, &s.EndTime, &s.Answers)
}

// MarkFinished transitions a session to finished server-side, recording the
// end time and the denormalized answers snapshot. The status guard makes the
// transition monotonic: a finished session is never touched again, and the
// call reports whether this invocation performed the transition.
func (r *SessionRepository) MarkFinished(ctx context.Context, id string, answers json.RawMessage) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_sessions
		 SET status = $1, end_time = NOW(), answers = COALESCE($2, answers)
		 WHERE id = $3 AND status = $4`,
		model.SessionStatusFinished, answers, id, model.SessionStatusOngoing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether a session row exists.
func (r *SessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM test_sessions WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ListOngoing retrieves every ongoing session with its team and test context.
// Overdue is computed against the test's end time, not the wall clock alone.
func (r *SessionRepository) ListOngoing(ctx context.Context, now time.Time) ([]SessionOverview, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, tm.name, t.title, s.status, s.start_time, t.end_time
		 FROM test_sessions s
		 JOIN teams tm ON s.team_id = tm.id
		 JOIN tests t ON s.test_id = t.id
		 WHERE s.status = $1
		 ORDER BY s.start_time ASC`, model.SessionStatusOngoing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overviews []SessionOverview
	for rows.Next() {
		var o SessionOverview
		if err := rows.Scan(&o.SessionID, &o.TeamName, &o.TestTitle, &o.Status, &o.StartTime, &o.TestEndTime); err != nil {
			return nil, err
		}
		o.Overdue = o.TestEndTime != nil && now.After(*o.TestEndTime)
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

// ListOverdueIDs retrieves the ids of ongoing sessions whose test window has
// already closed. This is the sweeper's eligibility predicate.
func (r *SessionRepository) ListOverdueIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id
		 FROM test_sessions s
		 JOIN tests t ON s.test_id = t.id
		 WHERE s.status = $1 AND t.end_time IS NOT NULL AND t.end_time < $2`,
		model.SessionStatusOngoing, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
