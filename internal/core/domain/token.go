package domain

import (
	"errors"
	"strings"
	"time"
)

// TokenType distinguishes the two credential classes issued by the service.
// Each type carries an independent lifetime policy.
type TokenType string

const (
	// TokenTypeAccess identifies short-lived tokens presented on every API call.
	TokenTypeAccess TokenType = "access"
	// TokenTypeRefresh identifies long-lived tokens exchanged for new access tokens.
	TokenTypeRefresh TokenType = "refresh"
)

// ParseTokenType normalises textual input into a supported token type.
func ParseTokenType(value string) (TokenType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(TokenTypeAccess):
		return TokenTypeAccess, nil
	case string(TokenTypeRefresh):
		return TokenTypeRefresh, nil
	default:
		return "", ErrTokenMalformed
	}
}

var (
	// ErrTokenMalformed indicates a structurally broken credential. Never retried.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenBadSignature indicates tampering or a wrong signing key.
	ErrTokenBadSignature = errors.New("token signature invalid")
	// ErrTokenExpired indicates the credential passed its natural expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked indicates the exact token was blacklisted before expiry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrTokenRevokedBySubject indicates the token predates a subject-wide revocation watermark.
	ErrTokenRevokedBySubject = errors.New("token revoked by subject policy")
	// ErrRevocationUnavailable indicates the revocation store could not be reached
	// while the strict degradation policy was in force.
	ErrRevocationUnavailable = errors.New("revocation state unavailable")
)

// IsTokenInvalid reports whether err is one of the terminal rejection reasons
// for a presented credential.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenBadSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenRevokedBySubject) ||
		errors.Is(err, ErrRevocationUnavailable)
}

// TokenPair bundles the two credentials minted at session start.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}
