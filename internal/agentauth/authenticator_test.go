package agentauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/store"
	"github.com/halvard/skald/internal/testutil"
)

type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time        { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *store.DB, *testClock) {
	t.Helper()
	db := testutil.TestDB(t)
	clock := &testClock{t: time.Now().UTC()}
	return NewService(db, WithClock(clock.now)), db, clock
}

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	e := apperr.As(err)
	if e == nil {
		t.Fatalf("err = %v, want coded error %s", err, code)
	}
	if e.Code != code {
		t.Fatalf("code = %s, want %s", e.Code, code)
	}
}

func TestMintShape(t *testing.T) {
	plaintext, tok, err := Mint("alice", "ci", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(plaintext) != tokenLen || plaintext[:4] != "agt_" {
		t.Errorf("plaintext = %q", plaintext)
	}
	if tok.TokenPrefix != plaintext[:PrefixLen] || len(tok.TokenPrefix) != 17 {
		t.Errorf("prefix = %q", tok.TokenPrefix)
	}
	if tok.TokenHash == "" || tok.TokenSalt == "" {
		t.Error("hash or salt missing")
	}
	if got := tok.ExpiresAt.Sub(tok.CreatedAt); got != TokenTTL {
		t.Errorf("ttl = %v", got)
	}
	// The plaintext never appears in the stored record.
	if tok.TokenHash == plaintext || tok.TokenSalt == plaintext {
		t.Error("plaintext leaked into the record")
	}
}

func TestAuthenticateHappyPath(t *testing.T) {
	svc, db, _ := newTestService(t)
	plaintext, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}

	tok, err := svc.Authenticate(context.Background(), "Bearer "+plaintext)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if tok.ID != created.ID || tok.UserID != "alice" {
		t.Errorf("token = %+v", tok)
	}

	stored, _ := db.GetToken(created.ID)
	if stored.LastUsedAt == nil {
		t.Error("last_used_at not updated on success")
	}
}

func TestAuthenticateHeaderStages(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "")
	wantCode(t, err, apperr.CodeMissingAuthHeader)

	_, err = svc.Authenticate(context.Background(), "Basic abc")
	wantCode(t, err, apperr.CodeInvalidTokenFormat)

	_, err = svc.Authenticate(context.Background(), "Bearer short")
	wantCode(t, err, apperr.CodeInvalidTokenFormat)

	// Right length, wrong charset.
	bad := "agt_" + string(make([]byte, 64))
	_, err = svc.Authenticate(context.Background(), "Bearer "+bad)
	wantCode(t, err, apperr.CodeInvalidTokenFormat)
}

func TestAuthenticateWrongSecretPenalizesPrefix(t *testing.T) {
	svc, db, _ := newTestService(t)
	plaintext, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}

	// Same prefix, different secret: valid format, no hash match.
	forged := plaintext[:PrefixLen] + "0123456789abcdef0123456789abcdef0123456789abcdef012"
	if len(forged) != len(plaintext) {
		t.Fatalf("forged length %d", len(forged))
	}
	_, err = svc.Authenticate(context.Background(), "Bearer "+forged)
	wantCode(t, err, apperr.CodeInvalidToken)

	stored, _ := db.GetToken(created.ID)
	if stored.FailedAttempts != 1 {
		t.Errorf("failed_attempts = %d, want 1", stored.FailedAttempts)
	}
	if stored.LastFailedAt == nil {
		t.Error("last_failed_at not set")
	}
}

func TestAuthenticateExpired(t *testing.T) {
	svc, db, clock := newTestService(t)
	plaintext, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}

	clock.advance(TokenTTL + time.Minute)
	_, err = svc.Authenticate(context.Background(), "Bearer "+plaintext)
	wantCode(t, err, apperr.CodeTokenExpired)

	// Expiry carries no failed-attempt penalty.
	stored, _ := db.GetToken(created.ID)
	if stored.FailedAttempts != 0 {
		t.Errorf("failed_attempts = %d after expiry, want 0", stored.FailedAttempts)
	}
}

func TestAuthenticateAtThresholdRevokesEvenWithCorrectSecret(t *testing.T) {
	svc, db, clock := newTestService(t)
	plaintext, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}

	// Push failed_attempts to 9 with forged credentials.
	forged := plaintext[:PrefixLen] + "0123456789abcdef0123456789abcdef0123456789abcdef012"
	for i := 0; i < FailedAttemptLimit-1; i++ {
		if _, err := svc.Authenticate(context.Background(), "Bearer "+forged); err == nil {
			t.Fatal("forged credential accepted")
		}
	}
	stored, _ := db.GetToken(created.ID)
	if stored.FailedAttempts != FailedAttemptLimit-1 || stored.RevokedAt != nil {
		t.Fatalf("attempts=%d revoked=%v", stored.FailedAttempts, stored.RevokedAt)
	}

	// The 10th failure auto-revokes in the same pass.
	if _, err := svc.Authenticate(context.Background(), "Bearer "+forged); err == nil {
		t.Fatal("forged credential accepted")
	}
	stored, _ = db.GetToken(created.ID)
	if stored.RevokedAt == nil {
		t.Fatal("token not revoked at the failure threshold")
	}

	// Even the correct secret is refused now: the token is revoked and
	// no longer among the candidates.
	clock.advance(time.Second)
	_, err = svc.Authenticate(context.Background(), "Bearer "+plaintext)
	wantCode(t, err, apperr.CodeInvalidToken)
}

func TestAuthenticateRevokedTokenRefused(t *testing.T) {
	svc, _, _ := newTestService(t)
	plaintext, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.RevokeToken("alice", created.ID); err != nil {
		t.Fatal(err)
	}
	_, err = svc.Authenticate(context.Background(), "Bearer "+plaintext)
	wantCode(t, err, apperr.CodeInvalidToken)
}

func TestCheckRateLimit(t *testing.T) {
	svc, db, clock := newTestService(t)
	_, created, err := svc.CreateToken("alice", "ci")
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := db.GetToken(created.ID)

	// Burn the whole quota.
	for i := 0; i < RateLimit; i++ {
		if err := svc.CheckRateLimit(tok); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
	err = svc.CheckRateLimit(tok)
	wantCode(t, err, apperr.CodeRateLimitExceeded)
	if e := apperr.As(err); e.RetryAfter < 1 || e.RetryAfter > int(RateWindow.Seconds()) {
		t.Errorf("retryAfter = %d", e.RetryAfter)
	}

	// A fresh window resets the counter.
	clock.advance(RateWindow + time.Second)
	if err := svc.CheckRateLimit(tok); err != nil {
		t.Fatalf("post-window request rejected: %v", err)
	}
	stored, _ := db.GetToken(created.ID)
	if stored.RequestsCount != 1 {
		t.Errorf("requests_count = %d, want 1", stored.RequestsCount)
	}
}

func TestListTokensNeverExposesSecrets(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, _, err := svc.CreateToken("alice", "ci"); err != nil {
		t.Fatal(err)
	}
	tokens, err := svc.ListTokens("alice")
	if err != nil || len(tokens) != 1 {
		t.Fatalf("tokens = %v, err = %v", tokens, err)
	}
	// Hash and salt are json-suppressed; the prefix is all that is shown.
	if len(tokens[0].TokenPrefix) != PrefixLen {
		t.Errorf("prefix = %q", tokens[0].TokenPrefix)
	}
	if !errors.Is(svc.RevokeToken("bob", tokens[0].ID), apperr.ErrNotFound) {
		t.Error("cross-user revoke not refused")
	}
}
