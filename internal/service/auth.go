package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("auth")

const tokenIssuer = "pdr-draft"

// AuthService mints and validates the edit tokens that authorize draft
// operations. Tokens are HMAC-signed JWTs bound to one user and one
// resource (the audience).
type AuthService struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// IssueEditToken mints a token granting userID edit access to resourceID.
func (s *AuthService) IssueEditToken(ctx context.Context, userID, resourceID string) (string, error) {
	_, span := tracer.Start(ctx, "Auth.Service.IssueEditToken")
	defer span.End()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{resourceID},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "signing edit token")
	}
	return signed, nil
}

// ValidateEditToken checks the token's signature, expiry, and resource
// binding, returning the user it was issued to.
func (s *AuthService) ValidateEditToken(ctx context.Context, tokenString, resourceID string) (string, error) {
	_, span := tracer.Start(ctx, "Auth.Service.ValidateEditToken")
	defer span.End()

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(resourceID),
	)
	if err != nil {
		span.RecordError(err)
		return "", errors.Wrap(err, "edit token rejected")
	}
	if claims.Subject == "" {
		err := fmt.Errorf("edit token carries no subject")
		span.RecordError(err)
		return "", err
	}
	return claims.Subject, nil
}
