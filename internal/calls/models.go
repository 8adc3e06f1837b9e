package calls

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("call log not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyFinal is returned when a completion targets a row that already
	// reached a terminal status.
	ErrAlreadyFinal = errors.New("call log already final")
)

// Entry is one call_logs row. A row is created by the dispatch path when the
// call is placed and moved to a terminal status by the end-of-call webhook.
// The webhook path inserts only when no dispatch row exists for the provider
// call id.
type Entry struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	CampaignID string `json:"campaign_id,omitempty"`

	PhoneNumber  string `json:"phone_number"`
	CallerNumber string `json:"caller_number"`
	AgentID      string `json:"agent_id"`

	// ProviderCallID is the voice platform's call id (vapi_call_id).
	ProviderCallID string `json:"vapi_call_id,omitempty"`
	CallID         string `json:"call_id,omitempty"`

	Status          Status    `json:"status"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int       `json:"duration"`

	Metadata        Metadata        `json:"metadata"`
	EndOfCallReport json.RawMessage `json:"end_of_call_report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the free-form jsonb bag on a call log.
type Metadata map[string]any

// String returns the string value under key, or "".
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value under key, or 0.
func (m Metadata) Float(key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// Status is the lifecycle state of a call log.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a row in status from may move to to.
// Unknown provider statuses are treated as in-flight.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if from == to {
		return false
	}
	switch to {
	case StatusRinging:
		return from == StatusInitiated || from == StatusQueued
	case StatusInProgress:
		return from == StatusInitiated || from == StatusQueued || from == StatusRinging
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// checkCompletion guards Complete: only a terminal status may be applied, and
// only to an in-flight row.
func checkCompletion(from, to Status) error {
	if from.Terminal() {
		return ErrAlreadyFinal
	}
	if !to.Terminal() || !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot complete %s call as %q", ErrInvalidArgument, from, to)
	}
	return nil
}

// Evaluation values stored under metadata.evaluation_status.
const (
	EvaluationSuccess = "Success"
	EvaluationFail    = "Fail"
)

// Completion is what the end-of-call webhook applies to a call log.
type Completion struct {
	Status          Status
	AgentID         string
	CallID          string
	StartTime       time.Time
	DurationSeconds int
	Metadata        Metadata
	Report          json.RawMessage
}

// MaxListLimit caps a bounded listing.
const MaxListLimit = 1000

// ListFilter scopes a call log listing. UserID is required.
// Limit 0 lists every matching row; larger values are capped at MaxListLimit.
type ListFilter struct {
	UserID     string
	CampaignID string
	Status     Status
	Limit      int
}

func (f ListFilter) effectiveLimit() int {
	if f.Limit <= 0 {
		return 0
	}
	return min(f.Limit, MaxListLimit)
}
