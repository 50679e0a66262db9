package repository

import (
	"context"

	"github.com/findit-id/cbt-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question, choice, and answer-key data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves the questions of a test in ascending id order, the
// canonical order the deterministic shuffle permutes.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, question_text, question_mdx, question_type, points, minus, validation_pattern
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY id ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.QuestionText, &q.QuestionMDX, &q.QuestionType, &q.Points, &q.Minus, &q.ValidationPattern); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves one question.
func (r *QuestionRepository) GetByID(ctx context.Context, id int) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, question_text, question_mdx, question_type, points, minus, validation_pattern
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.TestID, &q.QuestionText, &q.QuestionMDX, &q.QuestionType, &q.Points, &q.Minus, &q.ValidationPattern)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Create inserts a question under a test.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (test_id, question_text, question_mdx, question_type, points, minus, validation_pattern)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		q.TestID, q.QuestionText, q.QuestionMDX, q.QuestionType, q.Points, q.Minus, q.ValidationPattern,
	).Scan(&q.ID)
}

// Delete removes a question together with its choices and key entries.
func (r *QuestionRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

// ListChoices retrieves the choices of a question.
func (r *QuestionRepository) ListChoices(ctx context.Context, questionID int) ([]model.Choice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, choice_text, choice_mdx
		 FROM choices
		 WHERE question_id = $1
		 ORDER BY id ASC`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var choices []model.Choice
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.ChoiceText, &c.ChoiceMDX); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// CreateChoice inserts a choice under a question.
func (r *QuestionRepository) CreateChoice(ctx context.Context, c *model.Choice) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO choices (question_id, choice_text, choice_mdx)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		c.QuestionID, c.ChoiceText, c.ChoiceMDX,
	).Scan(&c.ID)
}

// ListAllCorrections retrieves the full answer key set. Scoring deliberately
// loads the whole table; see service.Score.
func (r *QuestionRepository) ListAllCorrections(ctx context.Context) ([]model.CorrectionEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, choice_id, answer_text FROM correction_table`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.CorrectionEntry
	for rows.Next() {
		var e model.CorrectionEntry
		if err := rows.Scan(&e.ID, &e.QuestionID, &e.ChoiceID, &e.AnswerText); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceCorrections swaps the answer key entries of a question atomically.
func (r *QuestionRepository) ReplaceCorrections(ctx context.Context, questionID int, entries []model.CorrectionEntry) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM correction_table WHERE question_id = $1`, questionID); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO correction_table (question_id, choice_id, answer_text) VALUES ($1, $2, $3)`,
			questionID, e.ChoiceID, e.AnswerText); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
