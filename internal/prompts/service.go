package prompts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service owns prompt validation; storage sits behind Repository.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

type CreateRequest struct {
	Name         string `json:"prompt_name" binding:"required"`
	FirstMessage string `json:"first_message" binding:"required"`
	SystemPrompt string `json:"system_prompt" binding:"required"`
}

func (s *Service) Get(ctx context.Context, userID, id string) (Prompt, error) {
	if userID == "" || id == "" {
		return Prompt{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]Prompt, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.List(ctx, userID)
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (Prompt, error) {
	if userID == "" || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.SystemPrompt) == "" || strings.TrimSpace(req.FirstMessage) == "" {
		return Prompt{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	p := Prompt{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         strings.TrimSpace(req.Name),
		FirstMessage: req.FirstMessage,
		SystemPrompt: req.SystemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Prompt{}, err
	}
	return p, nil
}
