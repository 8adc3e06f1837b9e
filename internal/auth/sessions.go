package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"voicecall-platform/pkg/logger"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a user_sessions row. Only the token digest is stored.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TokenDigest string    `json:"session_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expired reports whether s is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenDigest is the stored form of a session token.
func TokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type SessionStore interface {
	Create(ctx context.Context, s Session) error
	ByDigest(ctx context.Context, digest string) (Session, error)
	Delete(ctx context.Context, digest string) error
}

type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

func (s *PostgresSessionStore) Create(ctx context.Context, sess Session) error {
	const q = `
INSERT INTO user_sessions (id, user_id, session_token, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5)
`
	_, err := s.db.ExecContext(ctx, q, sess.ID, sess.UserID, sess.TokenDigest, sess.ExpiresAt, sess.CreatedAt)
	return err
}

func (s *PostgresSessionStore) ByDigest(ctx context.Context, digest string) (Session, error) {
	const q = `SELECT id, user_id, session_token, expires_at, created_at FROM user_sessions WHERE session_token = $1`
	var sess Session
	err := s.db.QueryRowContext(ctx, q, digest).Scan(&sess.ID, &sess.UserID, &sess.TokenDigest, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *PostgresSessionStore) Delete(ctx context.Context, digest string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = $1`, digest)
	return err
}

// CachedSessionStore fronts a SessionStore with Redis. Cache failures fall
// through to the backing store.
type CachedSessionStore struct {
	next   SessionStore
	rdb    *redis.Client
	maxTTL time.Duration
	clock  func() time.Time
}

func NewCachedSessionStore(next SessionStore, rdb *redis.Client, maxTTL time.Duration) *CachedSessionStore {
	if maxTTL <= 0 {
		maxTTL = 5 * time.Minute
	}
	return &CachedSessionStore{next: next, rdb: rdb, maxTTL: maxTTL, clock: time.Now}
}

func sessionKey(digest string) string { return "session:" + digest }

func (c *CachedSessionStore) Create(ctx context.Context, s Session) error {
	if err := c.next.Create(ctx, s); err != nil {
		return err
	}
	c.store(ctx, s)
	return nil
}

func (c *CachedSessionStore) ByDigest(ctx context.Context, digest string) (Session, error) {
	if c.rdb != nil {
		b, err := c.rdb.Get(ctx, sessionKey(digest)).Bytes()
		switch {
		case err == nil:
			var s Session
			if jerr := json.Unmarshal(b, &s); jerr == nil {
				return s, nil
			}
		case !errors.Is(err, redis.Nil):
			logger.From(ctx).Warn("session cache read failed", slog.Any("err", err))
		}
	}

	s, err := c.next.ByDigest(ctx, digest)
	if err != nil {
		return Session{}, err
	}
	c.store(ctx, s)
	return s, nil
}

func (c *CachedSessionStore) Delete(ctx context.Context, digest string) error {
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, sessionKey(digest)).Err(); err != nil {
			logger.From(ctx).Warn("session cache delete failed", slog.Any("err", err))
		}
	}
	return c.next.Delete(ctx, digest)
}

// store caches s no longer than it stays valid.
func (c *CachedSessionStore) store(ctx context.Context, s Session) {
	if c.rdb == nil {
		return
	}
	ttl := s.ExpiresAt.Sub(c.clock())
	if ttl <= 0 {
		return
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, sessionKey(s.TokenDigest), b, ttl).Err(); err != nil {
		logger.From(ctx).Warn("session cache write failed", slog.Any("err", err))
	}
}

// MemorySessionStore is an in-memory SessionStore for tests.
type MemorySessionStore struct {
	mu   sync.Mutex
	rows map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{rows: map[string]Session{}}
}

func (m *MemorySessionStore) Create(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.TokenDigest] = s
	return nil
}

func (m *MemorySessionStore) ByDigest(ctx context.Context, digest string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[digest]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, digest)
	return nil
}
