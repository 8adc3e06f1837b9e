package telephony

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) TrunkForUser(ctx context.Context, userID string) (Trunk, error) {
	const q = `
SELECT user_id,
       COALESCE(twilio_phone_number, ''),
       COALESCE(twilio_account_sid, ''),
       COALESCE(twilio_auth_token, ''),
       updated_at
FROM phone_config
WHERE user_id = $1
ORDER BY updated_at DESC
LIMIT 1
`
	var t Trunk
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&t.UserID, &t.PhoneNumber, &t.AccountSID, &t.AuthToken, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Trunk{}, ErrTrunkNotConfigured
		}
		return Trunk{}, err
	}
	return t, nil
}

func (s *PostgresStore) NumberOwner(ctx context.Context, phoneNumber string) (string, error) {
	const q = `SELECT user_id FROM numbers WHERE phone_number = $1 LIMIT 1`
	var userID string
	if err := s.db.QueryRowContext(ctx, q, phoneNumber).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNumberNotFound
		}
		return "", err
	}
	return userID, nil
}
