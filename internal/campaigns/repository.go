package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voicecall-platform/pkg/utils"
)

// Repository is the persistence contract for campaigns.
type Repository interface {
	Create(ctx context.Context, c Campaign) error
	Get(ctx context.Context, userID, id string) (Campaign, error)
	List(ctx context.Context, userID string) ([]Campaign, error)
	Owner(ctx context.Context, id string) (string, error)

	// Finalize moves an in_progress campaign to status with the given counters.
	// It returns ErrNotInProgress if the campaign was already finalized.
	Finalize(ctx context.Context, id string, status Status, successful, failed int) error

	// Increment adds one to the outcome counter in a single statement.
	Increment(ctx context.Context, id string, o Outcome) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const campaignColumns = `
id, user_id, campaign_name, prompt_id, status, total_numbers,
successful_calls, failed_calls, completed_success, completed_failed, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, c Campaign) error {
	const q = `
INSERT INTO campaigns (` + campaignColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err := r.db.ExecContext(ctx, q,
		c.ID,
		c.UserID,
		c.Name,
		c.PromptID,
		string(c.Status),
		c.TotalNumbers,
		c.SuccessfulCalls,
		c.FailedCalls,
		c.CompletedSuccess,
		c.CompletedFailed,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if utils.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: unknown user or prompt", ErrInvalidArgument)
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1 AND user_id = $2`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || utils.IsInvalidInput(err) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context, userID string) ([]Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Owner(ctx context.Context, id string) (string, error) {
	var userID string
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM campaigns WHERE id = $1`, id).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) || utils.IsInvalidInput(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return userID, nil
}

func (r *PostgresRepo) Finalize(ctx context.Context, id string, status Status, successful, failed int) error {
	const q = `
UPDATE campaigns
SET status = $2, successful_calls = $3, failed_calls = $4, updated_at = now()
WHERE id = $1 AND status = 'in_progress'
`
	res, err := r.db.ExecContext(ctx, q, id, string(status), successful, failed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotInProgress
	}
	return nil
}

func (r *PostgresRepo) Increment(ctx context.Context, id string, o Outcome) error {
	// column() only returns fixed identifiers.
	q := `UPDATE campaigns SET ` + o.column() + ` = ` + o.column() + ` + 1, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		if utils.IsInvalidInput(err) {
			return ErrNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var (
		c      Campaign
		status string
	)
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.PromptID,
		&status,
		&c.TotalNumbers,
		&c.SuccessfulCalls,
		&c.FailedCalls,
		&c.CompletedSuccess,
		&c.CompletedFailed,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Campaign{}, err
	}
	c.Status = Status(status)
	return c, nil
}
