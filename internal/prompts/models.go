package prompts

import (
	"errors"
	"time"
)

// PlaceholderCustomerPhone is substituted with the destination number for every call.
const PlaceholderCustomerPhone = "CUSTOMER_PHONE_NUMBER"

// Prompt is a reusable call script owned by one user.
// It is read-only input at call time.
type Prompt struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"prompt_name" db:"prompt_name"`
	FirstMessage string    `json:"first_message" db:"first_message"`
	SystemPrompt string    `json:"system_prompt" db:"system_prompt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound        = errors.New("prompt not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
