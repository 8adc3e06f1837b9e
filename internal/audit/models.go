package audit

import "time"

// Event is an immutable, append-only audit record for internal operations.
//
// Events are never updated or deleted. Recording is best-effort and must not
// block dispatch or webhook processing.
type Event struct {
	ID string `json:"id"`

	// UserID is the owning account when known. Unattributed webhook events
	// have no owner.
	UserID string    `json:"user_id,omitempty"`
	Type   EventType `json:"type"`

	CampaignID     string `json:"campaign_id,omitempty"`
	ProviderCallID string `json:"vapi_call_id,omitempty"`

	// IPAddress is the resolved client IP when the event came from a request.
	IPAddress string `json:"ip_address,omitempty"`

	Message  string `json:"message,omitempty"`
	Metadata string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventCampaignDispatched       EventType = "campaign_dispatched"
	EventCampaignFinalized        EventType = "campaign_finalized"
	EventWebhookUnattributed      EventType = "webhook_unattributed"
	EventWebhookSignatureRejected EventType = "webhook_signature_rejected"
)

// requiresOwner reports whether events of type t must carry a UserID.
func (t EventType) requiresOwner() bool {
	switch t {
	case EventCampaignDispatched, EventCampaignFinalized:
		return true
	default:
		return false
	}
}
