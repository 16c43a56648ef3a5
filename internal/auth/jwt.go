package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"example.com/workoutlog/internal/domain"
)

// JWTConfig holds signer verification parameters.
type JWTConfig struct {
	Secret string
	Issuer string
}

// JWTVerifier validates an HS256 JWT whose subject carries the user's
// external platform id, then resolves it to a registered user.
type JWTVerifier struct {
	cfg   JWTConfig
	users UserResolver
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(cfg JWTConfig, users UserResolver) *JWTVerifier {
	return &JWTVerifier{cfg: cfg, users: users}
}

// Resolve validates the token and maps its subject to a user.
func (v *JWTVerifier) Resolve(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.cfg.Secret), nil
	}, jwt.WithIssuer(v.cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := v.users.ResolveUser(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return &Identity{UserID: user.ID, ExternalID: user.ExternalID}, nil
}
