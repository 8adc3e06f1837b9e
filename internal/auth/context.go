package auth

import (
	"context"
	"errors"
)

var ErrNoPrincipal = errors.New("user_id not in context")

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Username  string
	SessionID string
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, error) {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok && p.UserID != "" {
		return p, nil
	}
	return Principal{}, ErrNoPrincipal
}

func UserID(ctx context.Context) (string, error) {
	p, err := PrincipalFrom(ctx)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}
