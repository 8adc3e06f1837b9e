package vapi

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
)

var ErrCredentialNotFound = errors.New("vapi credential not found")

// Credential is a user's provider API configuration (api_keys row).
type Credential struct {
	UserID        string
	APIKey        string
	AssistantID   string
	PhoneNumberID string
	Status        string
}

// Usable reports whether calls can be placed with this credential.
func (c Credential) Usable() bool {
	if strings.TrimSpace(c.APIKey) == "" {
		return false
	}
	return c.Status == "" || c.Status == "active"
}

type CredentialStore interface {
	ForUser(ctx context.Context, userID string) (Credential, error)
	// OwnerOfAssistant returns the user whose credential names assistantID.
	OwnerOfAssistant(ctx context.Context, assistantID string) (string, error)
}

type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) ForUser(ctx context.Context, userID string) (Credential, error) {
	const q = `
SELECT user_id, COALESCE(vapi_api_key, ''), COALESCE(assistant_id, ''), COALESCE(phone_number_id, ''), COALESCE(status, '')
FROM api_keys
WHERE user_id = $1
LIMIT 1
`
	var c Credential
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&c.UserID, &c.APIKey, &c.AssistantID, &c.PhoneNumberID, &c.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, ErrCredentialNotFound
		}
		return Credential{}, err
	}
	return c, nil
}

func (s *PostgresCredentialStore) OwnerOfAssistant(ctx context.Context, assistantID string) (string, error) {
	const q = `SELECT user_id FROM api_keys WHERE assistant_id = $1 LIMIT 1`
	var userID string
	if err := s.db.QueryRowContext(ctx, q, assistantID).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrCredentialNotFound
		}
		return "", err
	}
	return userID, nil
}

// MemoryCredentialStore is an in-memory CredentialStore for tests.
type MemoryCredentialStore struct {
	mu   sync.Mutex
	rows map[string]Credential
}

func NewMemoryCredentialStore(seed ...Credential) *MemoryCredentialStore {
	s := &MemoryCredentialStore{rows: map[string]Credential{}}
	for _, c := range seed {
		s.rows[c.UserID] = c
	}
	return s
}

func (s *MemoryCredentialStore) Put(c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.UserID] = c
}

func (s *MemoryCredentialStore) ForUser(ctx context.Context, userID string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[userID]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return c, nil
}

func (s *MemoryCredentialStore) OwnerOfAssistant(ctx context.Context, assistantID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if assistantID == "" {
		return "", ErrCredentialNotFound
	}
	for _, c := range s.rows {
		if c.AssistantID == assistantID {
			return c.UserID, nil
		}
	}
	return "", ErrCredentialNotFound
}
