package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "promptdesk"
	defaultTokenTTL = 24 * time.Hour
	defaultLeeway   = 30 * time.Second
)

// ErrInvalidToken covers expired, malformed, and wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokensOptions configures access-token issuance and verification.
type TokensOptions struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

// Tokens issues and verifies HS256 access tokens carrying the user ID as
// subject.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
}

// NewTokens creates a token service from a shared secret.
func NewTokens(opts TokensOptions) (*Tokens, error) {
	secret := strings.TrimSpace(opts.Secret)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Tokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		leeway: leeway,
	}, nil
}

// Issue signs a token for the given user.
func (t *Tokens) Issue(userID uint) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify validates the token signature and registered claims and returns
// the subject user ID.
func (t *Tokens) Verify(token string) (uint, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithLeeway(t.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}
