package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voicecall-platform/internal/calls"
	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/vapi"
	"voicecall-platform/pkg/logger"
)

var ErrMissingPhone = errors.New("missing customer_phone")

// CallLogStore is the call log access the processor needs.
type CallLogStore interface {
	Insert(ctx context.Context, e calls.Entry) error
	FindByProviderCallID(ctx context.Context, providerCallID string) (calls.Entry, error)
	Complete(ctx context.Context, id string, c calls.Completion) error
}

type OutcomeCounter interface {
	IncrementOutcome(ctx context.Context, campaignID string, o campaigns.Outcome) error
}

// Deduper claims a provider call id so a redelivered report is applied once.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Unclaim(ctx context.Context, key string) error
}

type UnattributedSink interface {
	LogUnattributed(ctx context.Context, providerCallID, campaignID, phoneNumber string) error
}

// Report is the outcome of processing one end-of-call event.
type Report struct {
	RecordID         string `json:"record_id"`
	EvaluationStatus string `json:"evaluation_status"`

	// Updated is true when an existing dispatch row was completed rather than a new row inserted.
	Updated   bool `json:"-"`
	Duplicate bool `json:"-"`
}

// EndOfCallProcessor turns an end-of-call report into a terminal call log and
// bumps the campaign completion counters.
type EndOfCallProcessor struct {
	logs     CallLogStore
	counter  OutcomeCounter
	resolver *OwnerResolver
	dedup    Deduper
	audit    UnattributedSink
	clock    func() time.Time
}

type ProcessorDeps struct {
	Logs     CallLogStore
	Counter  OutcomeCounter
	Resolver *OwnerResolver

	// Optional.
	Dedup Deduper
	Audit UnattributedSink
}

func NewEndOfCallProcessor(d ProcessorDeps) *EndOfCallProcessor {
	return &EndOfCallProcessor{
		logs:     d.Logs,
		counter:  d.Counter,
		resolver: d.Resolver,
		dedup:    d.Dedup,
		audit:    d.Audit,
		clock:    time.Now,
	}
}

// Process applies msg. raw is stored verbatim as the end-of-call report.
// Nothing is written when the phone number is missing or no owner resolves.
func (p *EndOfCallProcessor) Process(ctx context.Context, msg Message, raw json.RawMessage) (Report, error) {
	phoneNumber := msg.CustomerPhone()
	if phoneNumber == "" {
		return Report{}, ErrMissingPhone
	}

	campaignID := msg.CampaignID()
	providerCallID := msg.ProviderCallID()
	log := logger.From(ctx).With(
		slog.String("vapi_call_id", providerCallID),
		slog.String("campaign_id", campaignID),
	)

	owner, err := p.resolver.Resolve(ctx, campaignID, phoneNumber, msg.AssistantID())
	if err != nil {
		log.Error("end of call report unattributed", slog.String("phone_number", phoneNumber))
		if p.audit != nil {
			if aerr := p.audit.LogUnattributed(ctx, providerCallID, campaignID, phoneNumber); aerr != nil {
				log.Warn("audit append failed", slog.Any("err", aerr))
			}
		}
		return Report{}, err
	}

	structured := msg.StructuredData()
	closed := isClosed(structured[vapi.FieldIsClosed])
	evaluation := calls.EvaluationFail
	if closed {
		evaluation = calls.EvaluationSuccess
	}
	report := Report{EvaluationStatus: evaluation}

	claimed, release := p.claim(ctx, providerCallID)
	if !claimed {
		report.Duplicate = true
		if existing, ferr := p.logs.FindByProviderCallID(ctx, providerCallID); ferr == nil {
			report.RecordID = existing.ID
		}
		log.Info("duplicate end of call report ignored")
		return report, nil
	}

	now := p.clock().UTC()
	meta := calls.Metadata{
		"structured_data":   structured,
		"stage_reached":     stringOr(structured, vapi.FieldStageReached, "Unknown"),
		"is_closed":         closed,
		"reason_not_closed": nullable(structured[vapi.FieldReasonNotClosed]),
		"evaluation_status": evaluation,
		"call_cost":         float64(msg.Cost),
		"recording_url":     msg.RecordingURL,
		"transcript":        msg.Transcript,
		"summary":           msg.Summary,
		"call_status":       endedReason(msg.EndedReason),
		"customer_name":     nullable(structured[vapi.FieldCustomerName]),
		"customer_address":  nullable(structured[vapi.FieldCustomerAddress]),
	}
	completion := calls.Completion{
		Status:          calls.StatusCompleted,
		AgentID:         msg.AssistantID(),
		CallID:          providerCallID,
		StartTime:       msg.StartTime(now),
		DurationSeconds: msg.Duration(),
		Metadata:        meta,
		Report:          raw,
	}

	recordID, updated, err := p.persist(ctx, owner, campaignID, phoneNumber, providerCallID, completion, now)
	if errors.Is(err, calls.ErrAlreadyFinal) {
		// Another delivery finished the row first; counters were already applied.
		report.Duplicate = true
		report.RecordID = recordID
		log.Info("end of call report for final call log ignored")
		return report, nil
	}
	if err != nil {
		release()
		return Report{}, fmt.Errorf("persist call log: %w", err)
	}
	report.RecordID, report.Updated = recordID, updated

	if campaignID != "" && owner.CampaignKnown && p.counter != nil {
		outcome := campaigns.OutcomeFailed
		if closed {
			outcome = campaigns.OutcomeSuccess
		}
		if err := p.counter.IncrementOutcome(ctx, campaignID, outcome); err != nil {
			log.Error("campaign counter increment failed", slog.Any("err", err))
		}
	}

	log.Info("end of call report recorded",
		slog.String("record_id", recordID),
		slog.Bool("updated", updated),
		slog.Bool("is_closed", closed),
		slog.String("user_id", owner.UserID),
		slog.String("attributed_via", owner.Via),
	)
	return report, nil
}

// persist completes the dispatch row for providerCallID, or inserts a new row
// when the call was not placed through a batch.
func (p *EndOfCallProcessor) persist(ctx context.Context, owner Attribution, campaignID, phoneNumber, providerCallID string, c calls.Completion, now time.Time) (string, bool, error) {
	if providerCallID != "" {
		existing, err := p.logs.FindByProviderCallID(ctx, providerCallID)
		switch {
		case err == nil:
			if err := p.logs.Complete(ctx, existing.ID, c); err != nil {
				return existing.ID, false, err
			}
			return existing.ID, true, nil
		case !errors.Is(err, calls.ErrNotFound):
			return "", false, err
		}
	}

	e := calls.Entry{
		ID:              uuid.NewString(),
		UserID:          owner.UserID,
		PhoneNumber:     phoneNumber,
		CallerNumber:    phoneNumber,
		AgentID:         c.AgentID,
		ProviderCallID:  providerCallID,
		CallID:          c.CallID,
		Status:          c.Status,
		StartTime:       c.StartTime,
		DurationSeconds: c.DurationSeconds,
		Metadata:        c.Metadata,
		EndOfCallReport: c.Report,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if owner.CampaignKnown {
		e.CampaignID = campaignID
	}
	if e.AgentID == "" {
		e.AgentID = "unknown"
	}
	if e.CallID == "" {
		e.CallID = fmt.Sprintf("vapi_%d", now.UnixMilli())
	}
	if err := p.logs.Insert(ctx, e); err != nil {
		return "", false, err
	}
	return e.ID, false, nil
}

// claim reserves providerCallID. When the dedup store is unavailable the
// report is processed anyway; the terminal-status guard still prevents a
// second completion of a dispatch row.
func (p *EndOfCallProcessor) claim(ctx context.Context, providerCallID string) (bool, func()) {
	noop := func() {}
	if p.dedup == nil || providerCallID == "" {
		return true, noop
	}
	ok, err := p.dedup.Claim(ctx, providerCallID)
	if err != nil {
		logger.From(ctx).Warn("webhook dedup claim failed", slog.Any("err", err))
		return true, noop
	}
	if !ok {
		return false, noop
	}
	return true, func() {
		if err := p.dedup.Unclaim(context.WithoutCancel(ctx), providerCallID); err != nil {
			logger.From(ctx).Warn("webhook dedup release failed", slog.Any("err", err))
		}
	}
}

// isClosed treats "Yes" (or a boolean true) as a closed sale; anything else,
// including a missing field, is not closed.
func isClosed(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Yes"
	case bool:
		return t
	}
	return false
}

func stringOr(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// nullable maps empty strings to nil so they store as JSON null.
func nullable(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func endedReason(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
