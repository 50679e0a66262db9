package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles the answer ledger rows.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert records an answer by its deterministic "{session}-{question}" id.
// Last writer wins: no merge, no conflict detection between team members.
func (r *AnswerRepository) Upsert(ctx context.Context, a *model.Answer) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (id, test_session_id, test_id, question_id, choice_id, answer_text, team_id, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET choice_id = EXCLUDED.choice_id,
		     answer_text = EXCLUDED.answer_text,
		     team_id = EXCLUDED.team_id,
		     timestamp = NOW()`,
		a.ID, a.SessionID, a.TestID, a.QuestionID, a.ChoiceID, a.AnswerText, a.TeamID)
	return err
}

// Delete removes an answer row outright. Re-answering later creates a fresh row.
func (r *AnswerRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM answers WHERE id = $1`, id)
	return err
}

// ListBySession retrieves all answers of a session.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_session_id, test_id, question_id, choice_id, answer_text, team_id, timestamp
		 FROM answers
		 WHERE test_session_id = $1
		 ORDER BY question_id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.TestID, &a.QuestionID, &a.ChoiceID, &a.AnswerText, &a.TeamID, &a.Timestamp); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
