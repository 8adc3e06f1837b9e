package campaigns

import (
	"errors"
	"math"
	"time"
)

var (
	ErrNotFound        = errors.New("campaign not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotInProgress   = errors.New("campaign is not in progress")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Campaign is one batch-calling run.
//
// SuccessfulCalls/FailedCalls count call-creation outcomes and are written once
// at finalize. CompletedSuccess/CompletedFailed count end-of-call evaluations
// and are incremented by the webhook path as reports arrive.
type Campaign struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"campaign_name"`
	PromptID string `json:"prompt_id"`
	Status   Status `json:"status"`

	TotalNumbers    int `json:"total_numbers"`
	SuccessfulCalls int `json:"successful_calls"`
	FailedCalls     int `json:"failed_calls"`

	CompletedSuccess int `json:"completed_success"`
	CompletedFailed  int `json:"completed_failed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SuccessRate is successful dispatches over total numbers, as a percentage
// rounded to one decimal.
func (c Campaign) SuccessRate() float64 {
	if c.TotalNumbers <= 0 {
		return 0
	}
	return math.Round(float64(c.SuccessfulCalls)/float64(c.TotalNumbers)*1000) / 10
}

// Outcome selects which completion counter the webhook increments.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

func (o Outcome) column() string {
	if o == OutcomeSuccess {
		return "completed_success"
	}
	return "completed_failed"
}
