package calls

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"voicecall-platform/internal/vapi"
	"voicecall-platform/pkg/logger"
)

// Attempt is the outcome of one call-creation request.
type Attempt struct {
	UserID      string
	CampaignID  string
	PhoneNumber string

	// Response is set when the provider accepted the call.
	Response *vapi.CallResponse
	// Err is set when the call could not be created.
	Err error
}

// Recorder writes one call log per dispatch attempt. Writes are best-effort:
// an insert failure is logged and never reaches the caller.
type Recorder struct {
	repo  Repository
	clock func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, clock: time.Now}
}

// Record persists a and returns the entry it attempted to write.
func (r *Recorder) Record(ctx context.Context, a Attempt) Entry {
	now := r.clock().UTC()
	e := Entry{
		ID:           uuid.NewString(),
		UserID:       a.UserID,
		CampaignID:   a.CampaignID,
		PhoneNumber:  a.PhoneNumber,
		CallerNumber: a.PhoneNumber,
		StartTime:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if a.Err == nil && a.Response != nil {
		e.ProviderCallID = a.Response.ID
		e.AgentID = a.Response.AssistantID
		e.Status = StatusInitiated
		if a.Response.Status != "" {
			e.Status = Status(a.Response.Status)
		}
		e.Metadata = Metadata{
			"vapi_response": providerResponse(*a.Response),
			"batch_call":    true,
		}
	} else {
		msg := "unknown error"
		if a.Err != nil {
			msg = a.Err.Error()
		}
		e.Status = StatusFailed
		e.Metadata = Metadata{
			"error":      msg,
			"batch_call": true,
		}
	}

	if err := r.repo.Insert(ctx, e); err != nil {
		logger.From(ctx).Error("call log insert failed",
			slog.String("campaign_id", a.CampaignID),
			slog.String("phone_number", a.PhoneNumber),
			slog.Any("err", err),
		)
	}
	return e
}

// providerResponse keeps the raw provider body when present so the stored
// metadata mirrors what the provider returned.
func providerResponse(resp vapi.CallResponse) any {
	if len(resp.Raw) > 0 && json.Valid(resp.Raw) {
		var v any
		if err := json.Unmarshal(resp.Raw, &v); err == nil {
			return v
		}
	}
	return map[string]any{"id": resp.ID, "status": resp.Status, "assistantId": resp.AssistantID}
}
