package campaigns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Aggregator owns the campaign lifecycle: create before dispatch, finalize
// once after the last wave, and webhook-driven completion counters.
type Aggregator struct {
	repo  Repository
	clock func() time.Time
}

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo, clock: time.Now}
}

type CreateInput struct {
	UserID       string
	Name         string
	PromptID     string
	TotalNumbers int
}

// Create inserts an in_progress campaign. No calls may be placed if it fails.
func (a *Aggregator) Create(ctx context.Context, in CreateInput) (Campaign, error) {
	if in.UserID == "" || strings.TrimSpace(in.Name) == "" || in.PromptID == "" || in.TotalNumbers <= 0 {
		return Campaign{}, ErrInvalidArgument
	}
	now := a.clock().UTC()
	c := Campaign{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Name:         strings.TrimSpace(in.Name),
		PromptID:     in.PromptID,
		Status:       StatusInProgress,
		TotalNumbers: in.TotalNumbers,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.repo.Create(ctx, c); err != nil {
		return Campaign{}, fmt.Errorf("failed to create campaign: %w", err)
	}
	return c, nil
}

// Finalize records dispatch counters and marks the campaign completed.
func (a *Aggregator) Finalize(ctx context.Context, id string, successful, failed int) error {
	return a.repo.Finalize(ctx, id, StatusCompleted, successful, failed)
}

// MarkFailed closes a campaign whose dispatch was aborted.
func (a *Aggregator) MarkFailed(ctx context.Context, id string, successful, failed int) error {
	return a.repo.Finalize(ctx, id, StatusFailed, successful, failed)
}

// IncrementOutcome bumps the completion counter for one end-of-call report.
func (a *Aggregator) IncrementOutcome(ctx context.Context, id string, o Outcome) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return a.repo.Increment(ctx, id, o)
}

// Owner returns the user that owns campaign id.
func (a *Aggregator) Owner(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	return a.repo.Owner(ctx, id)
}

func (a *Aggregator) Get(ctx context.Context, userID, id string) (Campaign, error) {
	if userID == "" || id == "" {
		return Campaign{}, ErrInvalidArgument
	}
	return a.repo.Get(ctx, userID, id)
}

func (a *Aggregator) List(ctx context.Context, userID string) ([]Campaign, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return a.repo.List(ctx, userID)
}
