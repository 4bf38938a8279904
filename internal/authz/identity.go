package authz

import (
	"context"

	"taskgraph/internal/domain"
)

// Identity is the verified caller: user id plus role from the token claims.
type Identity struct {
	UserID string
	Role   domain.Role
}

func (id *Identity) IsAdmin() bool { return id != nil && id.Role == domain.RoleAdmin }

type ctxKey int

const (
	identityKey ctxKey = iota
	tokenErrKey
)

// WithIdentity attaches a verified identity to the request context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// WithTokenError records that a bearer token was presented but failed
// verification. Anonymous (no token) contexts carry neither value.
func WithTokenError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, tokenErrKey, err)
}

// FromContext resolves the caller. It returns (nil, nil) for anonymous
// requests and an InvalidToken error when a token was presented but could not
// be verified, so callers never mistake a tampered token for anonymity.
func FromContext(ctx context.Context) (*Identity, *domain.Error) {
	if err, ok := ctx.Value(tokenErrKey).(error); ok && err != nil {
		return nil, domain.InvalidToken(err)
	}
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id, nil
	}
	return nil, nil
}
