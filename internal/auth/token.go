// Package auth issues and verifies the bearer tokens handed out at registration.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SpecialAccessSubject is the subject of tokens minted by the secret-phrase flow.
const SpecialAccessSubject = "special-access"

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token invalid")
)

// Claims is the token payload. UserID mirrors the subject for older clients
// that read the user_id claim.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Identity returns the subject the token asserts.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Validate is called by the jwt parser after the registered claims checks.
func (c *Claims) Validate() error {
	if c.Identity() == "" {
		return fmt.Errorf("%w: subject", jwt.ErrTokenRequiredClaimMissing)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: exp", jwt.ErrTokenRequiredClaimMissing)
	}
	return nil
}

// Identity is the verified result of a token.
type Identity struct {
	Subject       string
	SpecialAccess bool
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret string, ttl time.Duration, opts ...Option) *Issuer {
	i := &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints a token for subject. Any subject is accepted.
func (i *Issuer) Issue(subject string) (string, error) {
	now := i.now().UTC()
	claims := &Claims{
		UserID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the asserted identity.
func (i *Issuer) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, i.KeyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, Classify(err)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	return IdentityFromClaims(claims), nil
}

// KeyFunc resolves the signing key for HMAC tokens and rejects any other algorithm.
func (i *Issuer) KeyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return i.secret, nil
}

// IdentityFromClaims converts verified claims into an Identity.
func IdentityFromClaims(c *Claims) *Identity {
	subject := c.Identity()
	return &Identity{
		Subject:       subject,
		SpecialAccess: subject == SpecialAccessSubject,
	}
}

// Classify maps parser errors onto ErrTokenExpired or ErrTokenMalformed.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
}
