package prompts

import (
	"context"
	"database/sql"
	"errors"

	"voicecall-platform/pkg/utils"
)

// Repository is the persistence contract for prompts. Every read is owner-scoped.
type Repository interface {
	Get(ctx context.Context, userID, id string) (Prompt, error)
	List(ctx context.Context, userID string) ([]Prompt, error)
	Create(ctx context.Context, p Prompt) error
}

// PostgresRepo reads and writes the prompts table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (Prompt, error) {
	const q = `
SELECT id, user_id, prompt_name, first_message, system_prompt, created_at, updated_at
FROM prompts
WHERE id = $1 AND user_id = $2
`
	var p Prompt
	if err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.FirstMessage,
		&p.SystemPrompt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) || utils.IsInvalidInput(err) {
			return Prompt{}, ErrNotFound
		}
		return Prompt{}, err
	}
	return p, nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Prompt, error) {
	const q = `
SELECT id, user_id, prompt_name, first_message, system_prompt, created_at, updated_at
FROM prompts
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Prompt, 0)
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.FirstMessage, &p.SystemPrompt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Create(ctx context.Context, p Prompt) error {
	const q = `
INSERT INTO prompts (id, user_id, prompt_name, first_message, system_prompt, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.UserID, p.Name, p.FirstMessage, p.SystemPrompt, p.CreatedAt, p.UpdatedAt)
	return err
}
