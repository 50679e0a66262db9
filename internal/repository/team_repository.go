package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TeamRepository handles team and member data access.
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// GetByID retrieves a team.
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	t := &model.Team{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetMemberByEmail retrieves a member together with their team.
func (r *TeamRepository) GetMemberByEmail(ctx context.Context, email string) (*model.Member, *model.Team, error) {
	m := &model.Member{}
	t := &model.Team{}
	err := r.pool.QueryRow(ctx,
		`SELECT m.id, m.team_id, m.email, m.display_name, m.hashed_password, m.salt,
		        tm.id, tm.name, tm.created_at
		 FROM members m
		 JOIN teams tm ON m.team_id = tm.id
		 WHERE m.email = $1`, email,
	).Scan(&m.ID, &m.TeamID, &m.Email, &m.DisplayName, &m.HashedPassword, &m.Salt,
		&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

// GetMemberByID retrieves a member together with their team.
func (r *TeamRepository) GetMemberByID(ctx context.Context, id int) (*model.Member, *model.Team, error) {
	m := &model.Member{}
	t := &model.Team{}
	err := r.pool.QueryRow(ctx,
		`SELECT m.id, m.team_id, m.email, m.display_name, m.hashed_password, m.salt,
		        tm.id, tm.name, tm.created_at
		 FROM members m
		 JOIN teams tm ON m.team_id = tm.id
		 WHERE m.id = $1`, id,
	).Scan(&m.ID, &m.TeamID, &m.Email, &m.DisplayName, &m.HashedPassword, &m.Salt,
		&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

// Create inserts a team.
func (r *TeamRepository) Create(ctx context.Context, t *model.Team) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO teams (id, name) VALUES ($1, $2) RETURNING created_at`,
		t.ID, t.Name,
	).Scan(&t.CreatedAt)
}

// CreateMember inserts a member under a team.
func (r *TeamRepository) CreateMember(ctx context.Context, m *model.Member) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO members (team_id, email, display_name, hashed_password, salt)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		m.TeamID, m.Email, m.DisplayName, m.HashedPassword, m.Salt,
	).Scan(&m.ID)
}

// List retrieves all teams.
func (r *TeamRepository) List(ctx context.Context) ([]model.Team, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM teams ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
