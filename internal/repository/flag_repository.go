package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FlagRepository handles revisit-marker rows.
type FlagRepository struct {
	pool *pgxpool.Pool
}

// NewFlagRepository creates a new FlagRepository.
func NewFlagRepository(pool *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{pool: pool}
}

// Exists reports whether a flag with the given id is set.
func (r *FlagRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM flags WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Upsert sets a flag. Idempotent: flagging twice leaves one row.
func (r *FlagRepository) Upsert(ctx context.Context, f *model.Flag) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO flags (id, team_id) VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		f.ID, f.TeamID)
	return err
}

// Delete clears a flag.
func (r *FlagRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM flags WHERE id = $1`, id)
	return err
}

// ListBySessionTeam retrieves the flags of a team within a session by the
// "{session}-{team}-" id prefix.
func (r *FlagRepository) ListBySessionTeam(ctx context.Context, sessionID, teamID string) ([]model.Flag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, team_id FROM flags WHERE id LIKE $1 || '-%'`,
		sessionID+"-"+teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []model.Flag
	for rows.Next() {
		var f model.Flag
		if err := rows.Scan(&f.ID, &f.TeamID); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
