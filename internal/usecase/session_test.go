package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/786262170/lumina-api/internal/core/domain"
)

type recordingPublisher struct {
	issued          []domain.SessionIssuedEvent
	tokenRevoked    []domain.TokenRevokedEvent
	subjectRevoked  []domain.SubjectRevokedEvent
	failNextPublish bool
}

func (p *recordingPublisher) PublishSessionIssued(_ context.Context, event domain.SessionIssuedEvent) error {
	if p.failNextPublish {
		p.failNextPublish = false
		return errors.New("broker down")
	}
	p.issued = append(p.issued, event)
	return nil
}

func (p *recordingPublisher) PublishTokenRevoked(_ context.Context, event domain.TokenRevokedEvent) error {
	p.tokenRevoked = append(p.tokenRevoked, event)
	return nil
}

func (p *recordingPublisher) PublishSubjectRevoked(_ context.Context, event domain.SubjectRevokedEvent) error {
	p.subjectRevoked = append(p.subjectRevoked, event)
	return nil
}

func TestIssueSession_MintsUsablePair(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens in the pair")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatalf("access and refresh tokens must differ")
	}
	if got, want := pair.ExpiresAt, pair.IssuedAt.Add(3600*time.Second); !got.Equal(want) {
		t.Fatalf("expected access expiry %v, got %v", want, got)
	}

	for _, token := range []string{pair.AccessToken, pair.RefreshToken} {
		result, err := f.verifier.Verify(ctx, token)
		if err != nil {
			t.Fatalf("freshly issued token failed verification: %v", err)
		}
		if result.Claims.Subject != "u1" {
			t.Fatalf("expected subject u1, got %s", result.Claims.Subject)
		}
	}
}

func TestIssueSession_RequiresSubject(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)

	if _, err := f.session.IssueSession(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank subject")
	}
}

func TestIssueGuestSession(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)

	subject, pair, err := f.session.IssueGuestSession(context.Background())
	if err != nil {
		t.Fatalf("IssueGuestSession returned error: %v", err)
	}
	if !strings.HasPrefix(subject, "guest_") {
		t.Fatalf("expected guest_ prefix, got %s", subject)
	}
	if len(subject) != len("guest_")+12 {
		t.Fatalf("unexpected guest subject length: %s", subject)
	}
	if pair.AccessToken == "" {
		t.Fatalf("expected an access token for the guest")
	}

	other, _, err := f.session.IssueGuestSession(context.Background())
	if err != nil {
		t.Fatalf("IssueGuestSession returned error: %v", err)
	}
	if other == subject {
		t.Fatalf("guest subjects must be unique")
	}
}

func TestRefresh_MintsNewAccessToken(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	f.advanceTo(f.current.Add(time.Hour))

	accessToken, err := f.session.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	result, err := f.verifier.Verify(ctx, accessToken)
	if err != nil {
		t.Fatalf("refreshed access token failed verification: %v", err)
	}
	if result.Claims.Subject != "u1" {
		t.Fatalf("expected subject u1, got %s", result.Claims.Subject)
	}
	if got, err := result.Claims.Type(); err != nil || got != domain.TokenTypeAccess {
		t.Fatalf("expected an access token, got %v (%v)", got, err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	if _, err := f.session.Refresh(ctx, pair.AccessToken); !errors.Is(err, ErrNotRefreshToken) {
		t.Fatalf("expected ErrNotRefreshToken, got %v", err)
	}
}

func TestRefresh_RevokedRefreshTokenCannotMint(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	if err := f.session.EndSession(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}

	if _, err := f.session.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestRefresh_BlockedBySubjectWatermark(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}

	f.advanceTo(f.current.Add(time.Minute))
	if err := f.session.RevokeAllSessions(ctx, "u1", "compromise"); err != nil {
		t.Fatalf("RevokeAllSessions returned error: %v", err)
	}

	f.advanceTo(f.current.Add(time.Minute))
	if _, err := f.session.Refresh(ctx, pair.RefreshToken); !errors.Is(err, domain.ErrTokenRevokedBySubject) {
		t.Fatalf("expected ErrTokenRevokedBySubject, got %v", err)
	}
}

func TestEndSession_IdempotentOnInvalidToken(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	ctx := context.Background()

	if err := f.session.EndSession(ctx, "not-a-token"); err != nil {
		t.Fatalf("expected no-op success for garbage input, got %v", err)
	}

	token := f.issueAccess(t, "u1")
	if err := f.session.EndSession(ctx, token); err != nil {
		t.Fatalf("first EndSession returned error: %v", err)
	}
	// Second logout of the same token: it is already blacklisted but still
	// decodes, so the write simply repeats.
	if err := f.session.EndSession(ctx, token); err != nil {
		t.Fatalf("second EndSession returned error: %v", err)
	}

	// Expired tokens are skipped entirely, no blacklist write.
	f.advanceTo(f.current.Add(3601 * time.Second))
	fresh := f.issueAccess(t, "u2")
	f.advanceTo(f.current.Add(3601 * time.Second))
	before := len(f.blacklist.entries)
	if err := f.session.EndSession(ctx, fresh); err != nil {
		t.Fatalf("EndSession of expired token returned error: %v", err)
	}
	if len(f.blacklist.entries) != before {
		t.Fatalf("expired token must not produce a blacklist write")
	}
}

func TestEndSession_SurfacesStoreFailure(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	token := f.issueAccess(t, "u1")

	f.blacklist.unavailable = true
	if err := f.session.EndSession(context.Background(), token); err == nil {
		t.Fatalf("expected logout to fail when the revocation write fails")
	}
}

func TestRevokeAllSessions_RequiresSubject(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)

	if err := f.session.RevokeAllSessions(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected error for blank subject")
	}
}

func TestSessionEvents_Published(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	publisher := &recordingPublisher{}
	f.session.events = publisher
	ctx := context.Background()

	pair, err := f.session.IssueSession(ctx, "u1")
	if err != nil {
		t.Fatalf("IssueSession returned error: %v", err)
	}
	if len(publisher.issued) != 1 {
		t.Fatalf("expected 1 session issued event, got %d", len(publisher.issued))
	}
	if publisher.issued[0].Subject != "u1" || publisher.issued[0].Guest {
		t.Fatalf("unexpected issued event: %+v", publisher.issued[0])
	}

	if err := f.session.EndSession(ctx, pair.AccessToken); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}
	if len(publisher.tokenRevoked) != 1 {
		t.Fatalf("expected 1 token revoked event, got %d", len(publisher.tokenRevoked))
	}
	if publisher.tokenRevoked[0].Reason != "logout" {
		t.Fatalf("unexpected revocation reason: %s", publisher.tokenRevoked[0].Reason)
	}

	if err := f.session.RevokeAllSessions(ctx, "u1", ""); err != nil {
		t.Fatalf("RevokeAllSessions returned error: %v", err)
	}
	if len(publisher.subjectRevoked) != 1 {
		t.Fatalf("expected 1 subject revoked event, got %d", len(publisher.subjectRevoked))
	}
	if publisher.subjectRevoked[0].Reason != "revoke_all" {
		t.Fatalf("expected default reason revoke_all, got %s", publisher.subjectRevoked[0].Reason)
	}
}

func TestSessionEvents_PublishFailureDoesNotFailIssuance(t *testing.T) {
	f := newFixture(t, domain.DegradationPolicyModeLenient)
	publisher := &recordingPublisher{failNextPublish: true}
	f.session.events = publisher

	if _, err := f.session.IssueSession(context.Background(), "u1"); err != nil {
		t.Fatalf("issuance must not fail on a broker error, got %v", err)
	}
}
