package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallgrid/aquabill/internal/clock"
	"github.com/smallgrid/aquabill/internal/config"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrMissingSecret = errors.New("missing_jwt_secret")
	ErrInvalidToken  = errors.New("invalid_token")
)

// Claims is the JWT payload carried by access and refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

func NewIssuer(cfg config.Config, clk clock.Clock) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		return nil, ErrMissingSecret
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clk,
	}, nil
}

// IssueAccess signs a short-lived access token.
func (i *Issuer) IssueAccess(userID, email, role string) (string, error) {
	return i.issue(userID, email, role, TypeAccess, i.accessTTL)
}

// IssueRefresh signs a long-lived refresh token.
func (i *Issuer) IssueRefresh(userID, email, role string) (string, error) {
	return i.issue(userID, email, role, TypeRefresh, i.refreshTTL)
}

func (i *Issuer) issue(userID, email, role, tokenType string, ttl time.Duration) (string, error) {
	now := i.clock.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses the token and checks its signature, expiry and type.
func (i *Issuer) Verify(raw, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
