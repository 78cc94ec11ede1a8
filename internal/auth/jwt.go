package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"primetask/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the payload carried by both access and refresh tokens.
// TokenType prevents a refresh token from being accepted as an access
// token and vice versa.
type Claims struct {
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Role      model.Role `json:"role"`
	TokenType string     `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what a client receives after register, login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RevocationStore is the persisted set of invalidated refresh tokens,
// keyed by JWT ID.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Issuer creates and validates HS256-signed token pairs.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	revoked    RevocationStore
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration, revoked RevocationStore) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		revoked:    revoked,
	}
}

// Issue signs a fresh access/refresh pair for the given user. Identity and
// role are embedded as claims so protected requests need no user lookup.
func (i *Issuer) Issue(u *model.User) (*TokenPair, error) {
	access, accessExp, err := i.sign(u, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := i.sign(u, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token and returns its claims. It never
// touches storage: access tokens stay valid until they expire.
func (i *Issuer) VerifyAccess(raw string) (*Claims, error) {
	return i.parse(raw, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token: signature, expiry, token type
// and absence from the revocation set.
func (i *Issuer) VerifyRefresh(ctx context.Context, raw string) (*Claims, error) {
	claims, err := i.parse(raw, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	revoked, err := i.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke adds a refresh token to the revocation set. The entry lives only
// as long as the token itself, so the set prunes automatically. Revoking
// an already revoked token is a no-op. A token without an exp claim is
// revoked for the full refresh lifetime: it cannot outlive the entry.
func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	ttl := i.refreshTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	return i.revoked.Revoke(ctx, claims.ID, ttl)
}

func (i *Issuer) sign(u *model.User, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i *Issuer) parse(raw, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != wantType || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
