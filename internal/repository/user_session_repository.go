package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserSessionRepository handles auth/device session rows. The single-active-
// session invariant lives here: activation deactivates every prior row for
// the user and inserts the new active one in a single transaction, so no
// reader can observe a moment with zero or two active sessions.
type UserSessionRepository struct {
	pool *pgxpool.Pool
}

// NewUserSessionRepository creates a new UserSessionRepository.
func NewUserSessionRepository(pool *pgxpool.Pool) *UserSessionRepository {
	return &UserSessionRepository{pool: pool}
}

// Activate invalidates all prior sessions of the user and inserts the new
// active one atomically.
func (r *UserSessionRepository) Activate(ctx context.Context, s *model.UserSession) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`,
		s.UserID); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO user_sessions (user_id, session_token, device_info, ip, is_active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING id, created_at`,
		s.UserID, s.SessionToken, s.DeviceInfo, s.IP,
	).Scan(&s.ID, &s.CreatedAt); err != nil {
		return err
	}
	s.IsActive = true

	return tx.Commit(ctx)
}

// GetActiveByToken retrieves the active session carrying the given token.
func (r *UserSessionRepository) GetActiveByToken(ctx context.Context, token string) (*model.UserSession, error) {
	s := &model.UserSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, session_token, device_info, ip, is_active, created_at
		 FROM user_sessions
		 WHERE session_token = $1 AND is_active`, token,
	).Scan(&s.ID, &s.UserID, &s.SessionToken, &s.DeviceInfo, &s.IP, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListRecentByUser retrieves the user's most recent sessions, newest first.
// Used as the bounded lookback when composing an unfairness report.
func (r *UserSessionRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.UserSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, session_token, device_info, ip, is_active, created_at
		 FROM user_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.UserSession
	for rows.Next() {
		var s model.UserSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.SessionToken, &s.DeviceInfo, &s.IP, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeactivateByUser marks every session of the user inactive (sign-out).
func (r *UserSessionRepository) DeactivateByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_sessions SET is_active = FALSE WHERE user_id = $1 AND is_active`, userID)
	return err
}
