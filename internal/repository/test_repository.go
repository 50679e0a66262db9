package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, slug, title, description, duration, start_time, end_time, password_hash, created_at`

// GetByID retrieves a test by its numeric id.
func (r *TestRepository) GetByID(ctx context.Context, id int) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.DurationMinutes, &t.StartTime, &t.EndTime, &t.PasswordHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetBySlug retrieves a test by its slug.
func (r *TestRepository) GetBySlug(ctx context.Context, slug string) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE slug = $1`, slug,
	).Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.DurationMinutes, &t.StartTime, &t.EndTime, &t.PasswordHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves all tests ordered by creation time.
func (r *TestRepository) List(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Slug, &t.Title, &t.Description, &t.DurationMinutes, &t.StartTime, &t.EndTime, &t.PasswordHash, &t.CreatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Create inserts a new test and fills in its generated id.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (slug, title, description, duration, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		t.Slug, t.Title, t.Description, t.DurationMinutes, t.StartTime, t.EndTime,
	).Scan(&t.ID, &t.CreatedAt)
}

// Update applies administrative edits to a test.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, description = $2, duration = $3, start_time = $4, end_time = $5
		 WHERE id = $6`,
		t.Title, t.Description, t.DurationMinutes, t.StartTime, t.EndTime, t.ID)
	return err
}

// Delete removes a test.
func (r *TestRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}

// SetPasswordHash stores the bcrypt hash of the test entry password.
func (r *TestRepository) SetPasswordHash(ctx context.Context, id int, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tests SET password_hash = $1 WHERE id = $2`, hash, id)
	return err
}
