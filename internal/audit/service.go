package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"voicecall-platform/pkg/utils"
)

// Repository is the persistence contract for audit events.
// It is append-only; there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information. Records are not exposed to
// account users.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.Type.requiresOwner() && e.UserID == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogUnattributed records an end-of-call report no account could be resolved for.
func (s *Service) LogUnattributed(ctx context.Context, providerCallID, campaignID, phoneNumber string) error {
	return s.Append(ctx, Event{
		Type:           EventWebhookUnattributed,
		ProviderCallID: providerCallID,
		CampaignID:     campaignID,
		Message:        "could not resolve owner for " + phoneNumber,
	})
}

// LogSignatureRejected records a webhook delivery that failed verification.
func (s *Service) LogSignatureRejected(ctx context.Context, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventWebhookSignatureRejected,
		IPAddress: ip,
		Message:   reason,
	})
}

// PostgresRepo appends to the audit_events table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, user_id, type, campaign_id, vapi_call_id, ip_address, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		utils.NullString(e.UserID),
		string(e.Type),
		utils.NullString(e.CampaignID),
		utils.NullString(e.ProviderCallID),
		utils.NullString(e.IPAddress),
		e.Message,
		utils.NullString(e.Metadata),
		e.CreatedAt,
	)
	return err
}
