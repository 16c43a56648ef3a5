// Package auth resolves bearer credentials to a known user identity.
package auth

import (
	"context"
	"errors"
	"fmt"

	"example.com/workoutlog/internal/domain"
)

// ErrMissingToken is returned when the Authorization header is absent.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// ErrUnauthenticated indicates the credential does not resolve to a known user.
var ErrUnauthenticated = errors.New("credential does not resolve to a known user")

// Identity is the resolved caller.
type Identity struct {
	UserID     string
	ExternalID string
}

// Verifier resolves a presented credential to an identity. Implementations
// return ErrUnauthenticated (or ErrInvalidToken) without touching any data
// beyond the user lookup itself.
type Verifier interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// UserResolver is the subset of the domain service the verifiers need.
type UserResolver interface {
	ResolveUser(ctx context.Context, externalID string) (*domain.User, error)
}

// TokenVerifier implements the placeholder scheme where the opaque token value
// is the user's external platform id. Real deployments should swap in
// JWTVerifier or another Verifier; handlers never know the difference.
type TokenVerifier struct {
	users UserResolver
}

// NewTokenVerifier constructs a TokenVerifier.
func NewTokenVerifier(users UserResolver) *TokenVerifier {
	return &TokenVerifier{users: users}
}

// Resolve looks the token up as an external platform id.
func (v *TokenVerifier) Resolve(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, ErrMissingToken
	}
	user, err := v.users.ResolveUser(ctx, credential)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return &Identity{UserID: user.ID, ExternalID: user.ExternalID}, nil
}
