package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"voicecall-platform/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("invalid or expired session")
)

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Service issues sessions at login and resolves bearer tokens to principals.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   *Manager
	clock    func() time.Time
}

func NewService(users UserStore, sessions SessionStore, tokens *Manager) *Service {
	return &Service{users: users, sessions: sessions, tokens: tokens, clock: time.Now}
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if IsLegacyHash(u.PasswordHash) {
		logger.From(ctx).Warn("login with legacy password hash", slog.String("user_id", u.ID))
	}

	now := s.clock().UTC()
	sessionID := uuid.NewString()
	token, exp, err := s.tokens.Issue(now, sessionID, u.ID, u.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign session: %w", err)
	}
	if err := s.sessions.Create(ctx, Session{
		ID:          sessionID,
		UserID:      u.ID,
		TokenDigest: TokenDigest(token),
		ExpiresAt:   exp,
		CreatedAt:   now,
	}); err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Authenticate verifies token and requires a live session row for it.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	now := s.clock().UTC()
	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}

	sess, err := s.sessions.ByDigest(ctx, TokenDigest(token))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(now) || sess.UserID != claims.UserID || sess.ID != claims.ID {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{UserID: claims.UserID, Username: claims.Username, SessionID: sess.ID}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, TokenDigest(token))
}
