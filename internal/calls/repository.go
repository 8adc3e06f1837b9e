package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"voicecall-platform/pkg/utils"
)

// Repository is the persistence contract for call logs.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	FindByProviderCallID(ctx context.Context, providerCallID string) (Entry, error)
	// Complete applies c to the row with id unless it is already terminal,
	// in which case it returns ErrAlreadyFinal.
	Complete(ctx context.Context, id string, c Completion) error
	List(ctx context.Context, f ListFilter) ([]Entry, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const entryColumns = `
id, user_id, campaign_id, phone_number, caller_number, agent_id, vapi_call_id, call_id,
status, start_time, duration, metadata, end_of_call_report, created_at, updated_at`

func (r *PostgresRepo) Insert(ctx context.Context, e Entry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	var report any
	if len(e.EndOfCallReport) > 0 {
		report = []byte(e.EndOfCallReport)
	}

	const q = `
INSERT INTO call_logs (` + entryColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`
	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		e.UserID,
		utils.NullString(e.CampaignID),
		e.PhoneNumber,
		e.CallerNumber,
		e.AgentID,
		utils.NullString(e.ProviderCallID),
		utils.NullString(e.CallID),
		string(e.Status),
		e.StartTime,
		e.DurationSeconds,
		meta,
		report,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if utils.IsUniqueViolation(err) {
		// Another delivery already recorded this provider call.
		return ErrAlreadyFinal
	}
	return err
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (Entry, error) {
	if providerCallID == "" {
		return Entry{}, ErrNotFound
	}
	q := `SELECT ` + entryColumns + ` FROM call_logs WHERE vapi_call_id = $1 ORDER BY created_at ASC LIMIT 1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, providerCallID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) Complete(ctx context.Context, id string, c Completion) error {
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	var report any
	if len(c.Report) > 0 {
		report = []byte(c.Report)
	}

	// The row lock serializes concurrent completions of the same call.
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM call_logs WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) || utils.IsInvalidInput(err) {
				return ErrNotFound
			}
			return err
		}
		if err := checkCompletion(Status(status), c.Status); err != nil {
			return err
		}

		const q = `
UPDATE call_logs
SET status = $2,
    agent_id = COALESCE(NULLIF($3, ''), agent_id),
    call_id = COALESCE(NULLIF($4, ''), call_id),
    duration = $5,
    metadata = COALESCE(metadata, '{}'::jsonb) || $6::jsonb,
    end_of_call_report = $7,
    updated_at = now()
WHERE id = $1
`
		_, err = tx.ExecContext(ctx, q, id, string(c.Status), c.AgentID, c.CallID, c.DurationSeconds, meta, report)
		return err
	})
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	if f.UserID == "" {
		return nil, ErrInvalidArgument
	}
	// LIMIT NULL returns every row.
	var limit any
	if f.Limit > 0 {
		limit = f.effectiveLimit()
	}
	q := `
SELECT ` + entryColumns + `
FROM call_logs
WHERE user_id = $1
  AND ($2 = '' OR campaign_id::text = $2)
  AND ($3 = '' OR status = $3)
ORDER BY created_at DESC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, f.UserID, f.CampaignID, string(f.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e          Entry
		campaignID sql.NullString
		providerID sql.NullString
		callID     sql.NullString
		status     string
		meta       []byte
		report     []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.UserID,
		&campaignID,
		&e.PhoneNumber,
		&e.CallerNumber,
		&e.AgentID,
		&providerID,
		&callID,
		&status,
		&e.StartTime,
		&e.DurationSeconds,
		&meta,
		&report,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return Entry{}, err
	}
	e.CampaignID = campaignID.String
	e.ProviderCallID = providerID.String
	e.CallID = callID.String
	e.Status = Status(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return Entry{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	if len(report) > 0 {
		e.EndOfCallReport = json.RawMessage(report)
	}
	return e, nil
}
