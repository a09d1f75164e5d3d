package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/786262170/lumina-api/internal/core/domain"
)

const (
	defaultAccessTokenTTL  = 2 * time.Hour
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// SessionTokenClaims carries the self-describing credential payload: subject
// identity, validity window, and token class.
type SessionTokenClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Type returns the parsed token class.
func (c *SessionTokenClaims) Type() (domain.TokenType, error) {
	return domain.ParseTokenType(c.TokenType)
}

// TokenCodecOptions configures a TokenCodec.
type TokenCodecOptions struct {
	Issuer          string
	KID             string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TokenCodec encodes and decodes signed session tokens. Pure function of its
// inputs and the supplied clock; it holds no revocation state.
type TokenCodec struct {
	keys       KeyProvider
	issuer     string
	kid        string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec constructs a codec bound to the supplied key provider.
func NewTokenCodec(keys KeyProvider, opts TokenCodecOptions) (*TokenCodec, error) {
	if keys == nil {
		return nil, errors.New("key provider is required")
	}

	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}

	kid := strings.TrimSpace(opts.KID)
	if kid == "" {
		return nil, errors.New("kid is required")
	}

	accessTTL := opts.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := opts.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &TokenCodec{
		keys:       keys,
		issuer:     issuer,
		kid:        kid,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Lifetime returns the configured lifetime for a token type.
func (c *TokenCodec) Lifetime(tokenType domain.TokenType) time.Duration {
	if tokenType == domain.TokenTypeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// MaxLifetime returns the longest configured token lifetime. Watermarks older
// than this can affect no remaining valid token.
func (c *TokenCodec) MaxLifetime() time.Duration {
	if c.refreshTTL > c.accessTTL {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Issue builds and signs a token for the subject with issued_at=now and
// expires_at=now+lifetime(tokenType). Fails only on key material problems.
func (c *TokenCodec) Issue(subject string, tokenType domain.TokenType, now time.Time) (string, *SessionTokenClaims, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", nil, errors.New("subject is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	claims := &SessionTokenClaims{
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.Lifetime(tokenType))),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.kid

	signingKey, err := c.keys.GetSigningKey()
	if err != nil {
		return "", nil, fmt.Errorf("get signing key: %w", err)
	}

	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return signed, claims, nil
}

// Decode verifies signature and expiry against the supplied clock and returns
// the claims. Expected invalid input maps onto exactly one of the domain
// sentinels; nothing is thrown through layers.
func (c *TokenCodec) Decode(encoded string, now time.Time) (*SessionTokenClaims, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, domain.ErrTokenMalformed
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	claims := &SessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(encoded, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("kid header not found")
		}

		return c.keys.GetVerificationKey(kid)
	},
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, domain.ErrTokenBadSignature
		default:
			return nil, domain.ErrTokenMalformed
		}
	}

	if parsed == nil || !parsed.Valid {
		return nil, domain.ErrTokenBadSignature
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, domain.ErrTokenMalformed
	}
	if _, typeErr := claims.Type(); typeErr != nil {
		return nil, domain.ErrTokenMalformed
	}

	return claims, nil
}
