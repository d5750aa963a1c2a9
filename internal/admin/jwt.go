package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/giro-sh/license-server/internal/kernel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Blacklist is consulted on every access-token validation so a logout or
// revoke takes effect immediately instead of waiting out the token's TTL
// (§4.1, §7).
type Blacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// Claims is the payload embedded in every access token.
type Claims struct {
	AdminID   kernel.AdminID `json:"sub"`
	Email     string         `json:"email"`
	TokenType string         `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 access tokens, following the
// teacher's JWTService shape but narrowed to one principal type (Admin)
// and widened with a revocation blacklist (§4.1).
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
	blacklist Blacklist
}

func NewJWTService(secret string, accessTTL time.Duration, issuer string, blacklist Blacklist) *JWTService {
	if accessTTL == 0 {
		accessTTL = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "giro-license-server"
	}
	return &JWTService{secret: []byte(secret), accessTTL: accessTTL, issuer: issuer, blacklist: blacklist}
}

// GenerateAccessToken mints a short-lived token identifying adminID.
func (j *JWTService) GenerateAccessToken(adminID kernel.AdminID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID:   adminID,
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			Subject:   adminID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", ErrTokenGenFailed().WithDetail("error", err.Error())
	}
	return signed, nil
}

// ValidateAccessToken decodes and verifies signature, expiry and
// blacklist membership, in that order.
func (j *JWTService) ValidateAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid().WithDetail("error", err.Error())
	}
	if !token.Valid {
		return nil, ErrTokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != "access" {
		return nil, ErrTokenInvalid()
	}

	if j.blacklist != nil {
		blacklisted, err := j.blacklist.Contains(ctx, claims.ID)
		if err != nil {
			return nil, ErrTokenInvalid().WithDetail("error", err.Error())
		}
		if blacklisted {
			return nil, ErrTokenBlacklisted()
		}
	}

	return claims, nil
}

// Revoke blacklists a still-valid token's jti for the remainder of its
// natural life, so logout cannot be undone by replaying the old token.
func (j *JWTService) Revoke(ctx context.Context, claims *Claims) error {
	if j.blacklist == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return j.blacklist.Add(ctx, claims.ID, ttl)
}
