package telephony

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrTrunkNotConfigured = errors.New("telephony trunk not configured")
	ErrNumberNotFound     = errors.New("provisioned number not found")
)

// Trunk is a user's carrier account used to originate outbound calls
// (phone_config row). The voice platform bridges through it; this service
// never signals the carrier directly.
type Trunk struct {
	UserID      string
	PhoneNumber string
	AccountSID  string
	AuthToken   string
	UpdatedAt   time.Time
}

// Complete reports whether every field needed to originate a call is present.
func (t Trunk) Complete() bool {
	return strings.TrimSpace(t.PhoneNumber) != "" &&
		strings.TrimSpace(t.AccountSID) != "" &&
		strings.TrimSpace(t.AuthToken) != ""
}

// ProvisionedNumber is a number registered on the voice platform for a user
// (numbers row).
type ProvisionedNumber struct {
	UserID        string
	PhoneNumber   string
	PhoneNumberID string
	AgentID       string
}

// Store is the persistence contract for carrier-side resources.
type Store interface {
	TrunkForUser(ctx context.Context, userID string) (Trunk, error)
	// NumberOwner returns the user that provisioned phoneNumber.
	NumberOwner(ctx context.Context, phoneNumber string) (string, error)
}
