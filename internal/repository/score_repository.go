package repository

import (
	"context"
	"time"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoreRepository handles final score rows.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// Get retrieves a score row by its composite id.
func (r *ScoreRepository) Get(ctx context.Context, id string) (*model.Score, error) {
	s := &model.Score{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, team_id, test_id, session_id, score, created_at
		 FROM scores WHERE id = $1`, id,
	).Scan(&s.ID, &s.TeamID, &s.TestID, &s.SessionID, &s.Score, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert persists a score by its deterministic id. Scoring is a pure function
// of the recorded answers, so a conflicting write carries the identical value
// and the overwrite is a no-op in effect.
func (r *ScoreRepository) Upsert(ctx context.Context, s *model.Score) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scores (id, team_id, test_id, session_id, score)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score`,
		s.ID, s.TeamID, s.TestID, s.SessionID, s.Score)
	return err
}

// ListByTest retrieves the scores of a test joined with team names.
func (r *ScoreRepository) ListByTest(ctx context.Context, testID int) ([]ScoreResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sc.id, sc.team_id, tm.name, sc.test_id, sc.session_id, sc.score, sc.created_at
		 FROM scores sc
		 JOIN teams tm ON sc.team_id = tm.id
		 WHERE sc.test_id = $1
		 ORDER BY sc.score DESC, sc.created_at ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ScoreResult
	for rows.Next() {
		var s ScoreResult
		if err := rows.Scan(&s.ID, &s.TeamID, &s.TeamName, &s.TestID, &s.SessionID, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// ScoreResult is a score row joined with its team for result listings.
type ScoreResult struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	TestID    int       `json:"test_id"`
	SessionID string    `json:"session_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
