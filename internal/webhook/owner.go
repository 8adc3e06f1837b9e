package webhook

import (
	"context"
	"errors"
	"log/slog"

	"voicecall-platform/internal/campaigns"
	"voicecall-platform/internal/telephony"
	"voicecall-platform/internal/vapi"
	"voicecall-platform/pkg/logger"
)

// ErrUnattributed is returned when no account owns an end-of-call report.
var ErrUnattributed = errors.New("could not resolve user_id")

type CampaignOwners interface {
	Owner(ctx context.Context, campaignID string) (string, error)
}

type NumberOwners interface {
	NumberOwner(ctx context.Context, phoneNumber string) (string, error)
}

type AssistantOwners interface {
	OwnerOfAssistant(ctx context.Context, assistantID string) (string, error)
}

// Attribution says who owns a call and how that was decided.
type Attribution struct {
	UserID string
	Via    string

	// CampaignKnown is true when the campaign id on the event names an existing campaign.
	CampaignKnown bool
}

const (
	ViaCampaign  = "campaign"
	ViaNumber    = "number"
	ViaAssistant = "assistant"
)

// OwnerResolver maps an event to an account: campaign owner, then the owner
// of the destination number, then the owner of the assistant. A failed lookup
// is logged and the next source is tried.
type OwnerResolver struct {
	campaigns  CampaignOwners
	numbers    NumberOwners
	assistants AssistantOwners
}

func NewOwnerResolver(c CampaignOwners, n NumberOwners, a AssistantOwners) *OwnerResolver {
	return &OwnerResolver{campaigns: c, numbers: n, assistants: a}
}

func (r *OwnerResolver) Resolve(ctx context.Context, campaignID, phoneNumber, assistantID string) (Attribution, error) {
	log := logger.From(ctx)
	var out Attribution

	if campaignID != "" && r.campaigns != nil {
		uid, err := r.campaigns.Owner(ctx, campaignID)
		if err != nil {
			logLookup(log, err, slog.String("campaign_id", campaignID))
		} else if uid != "" {
			out.CampaignKnown = true
			out.UserID, out.Via = uid, ViaCampaign
			return out, nil
		}
	}

	if phoneNumber != "" && r.numbers != nil {
		uid, err := r.numbers.NumberOwner(ctx, phoneNumber)
		if err != nil {
			logLookup(log, err, slog.String("phone_number", phoneNumber))
		} else if uid != "" {
			out.UserID, out.Via = uid, ViaNumber
			return out, nil
		}
	}

	if assistantID != "" && r.assistants != nil {
		uid, err := r.assistants.OwnerOfAssistant(ctx, assistantID)
		if err != nil {
			logLookup(log, err, slog.String("assistant_id", assistantID))
		} else if uid != "" {
			out.UserID, out.Via = uid, ViaAssistant
			return out, nil
		}
	}

	return Attribution{}, ErrUnattributed
}

// logLookup keeps misses quiet and surfaces storage failures.
func logLookup(log *slog.Logger, err error, attr slog.Attr) {
	switch {
	case errors.Is(err, campaigns.ErrNotFound),
		errors.Is(err, telephony.ErrNumberNotFound),
		errors.Is(err, vapi.ErrCredentialNotFound):
		log.Debug("owner lookup miss", attr)
	default:
		log.Error("owner lookup failed", attr, slog.Any("err", err))
	}
}
