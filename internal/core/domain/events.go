package domain

import "time"

// SessionIssuedEvent records a freshly minted token pair for a subject.
type SessionIssuedEvent struct {
	EventID   string
	Subject   string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Guest     bool
	Metadata  map[string]any
}

// TokenRevokedEvent records a single-token revocation (logout path).
type TokenRevokedEvent struct {
	EventID     string
	Subject     string
	Fingerprint string
	Reason      string
	RevokedAt   time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// SubjectRevokedEvent records a subject-wide watermark write
// (password change, permission change, suspected compromise).
type SubjectRevokedEvent struct {
	EventID       string
	Subject       string
	RevokedBefore time.Time
	Reason        string
	Metadata      map[string]any
}
