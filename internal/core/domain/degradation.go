package domain

import "strings"

// DegradationPolicyMode enumerates supported behaviors when the revocation
// store cannot be reached during verification.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient accepts tokens on expiry alone while the
	// store is unreachable (fail-open, availability over strictness).
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects every token whenever revocation
	// state cannot be confirmed (fail-closed).
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationPolicy centralises how verification responds to store outages.
// Fail-open is the default and is a deliberate, security-relevant trade-off:
// a credential compromise is rarer than an infra outage, and short token
// lifetimes bound the exposure window.
type DegradationPolicy struct {
	mode DegradationPolicyMode
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting
// to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalises textual input into a supported mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// IsStrict indicates whether the policy rejects degraded states.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}
