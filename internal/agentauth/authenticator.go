package agentauth

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/store"
)

// Service validates agent credentials and enforces the per-token
// request quota. Safe for concurrent use; every counter mutation is a
// conditional UPDATE in the store.
type Service struct {
	db     *store.DB
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source. Tests use it to move through
// rate windows and past expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates the agent auth service.
func NewService(db *store.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateToken mints and persists a token for userID, returning the
// plaintext (shown once) alongside the stored record.
func (s *Service) CreateToken(userID, name string) (string, *models.AgentToken, error) {
	plaintext, tok, err := Mint(userID, name, s.now())
	if err != nil {
		return "", nil, err
	}
	if err := s.db.InsertToken(tok); err != nil {
		return "", nil, err
	}
	return plaintext, &tok, nil
}

// ListTokens returns all of userID's tokens, revoked included.
func (s *Service) ListTokens(userID string) ([]models.AgentToken, error) {
	return s.db.ListTokens(userID)
}

// RevokeToken revokes one of userID's tokens. Tokens are never
// deleted, only revoked, so the audit trail stays intact.
func (s *Service) RevokeToken(userID, tokenID string) error {
	return s.db.RevokeToken(tokenID, userID, s.now())
}

// Authenticate validates an Authorization header value and returns
// the matched token record. Each stage short-circuits on failure with
// the corresponding coded error.
func (s *Service) Authenticate(ctx context.Context, authHeader string) (*models.AgentToken, error) {
	if authHeader == "" {
		return nil, apperr.New(apperr.CodeMissingAuthHeader, "missing Authorization header")
	}
	plaintext, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || !validFormat(plaintext) {
		return nil, apperr.New(apperr.CodeInvalidTokenFormat, "malformed bearer token")
	}

	candidates, err := s.db.ActiveTokens()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeServiceUnavailable, "token lookup failed", err)
	}

	// Salted hashes cannot be queried directly; compare against every
	// active candidate with a constant-time primitive.
	var match *models.AgentToken
	for i := range candidates {
		if matchesToken(plaintext, candidates[i]) {
			match = &candidates[i]
			break
		}
	}

	now := s.now()

	if match == nil {
		// Best-effort correlation: penalize whatever token shares the
		// presented prefix. The statement also auto-revokes at the
		// threshold.
		if err := s.db.RecordFailedAttempt(plaintext[:PrefixLen], now, FailedAttemptLimit); err != nil {
			s.logger.Warn("agentauth: record failed attempt", slog.String("error", err.Error()))
		}
		return nil, apperr.New(apperr.CodeInvalidToken, "invalid token")
	}

	if !now.Before(match.ExpiresAt) {
		// Expiry is not an attack signal; no failed-attempt penalty.
		return nil, apperr.New(apperr.CodeTokenExpired, "token expired")
	}

	if match.FailedAttempts >= FailedAttemptLimit {
		if err := s.db.ForceRevoke(match.ID, now); err != nil {
			s.logger.Warn("agentauth: auto-revoke", slog.String("error", err.Error()))
		}
		return nil, apperr.New(apperr.CodeTokenAutoRevoked, "token revoked after repeated failures")
	}

	if err := s.db.TouchLastUsed(match.ID, now); err != nil {
		s.logger.Warn("agentauth: touch last used", slog.String("error", err.Error()))
	}
	return match, nil
}

// CheckRateLimit consumes one request from the token's rolling
// window. On rejection the returned error carries retryAfter seconds.
func (s *Service) CheckRateLimit(tok *models.AgentToken) error {
	now := s.now()
	admitted, resetAt, err := s.db.ConsumeRateLimit(tok.ID, now, RateLimit, RateWindow)
	if err != nil {
		return apperr.Wrap(apperr.CodeServiceUnavailable, "rate limit check failed", err)
	}
	if admitted {
		return nil
	}

	retryAfter := int(math.Ceil(resetAt.Add(RateWindow).Sub(now).Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	e := apperr.Newf(apperr.CodeRateLimitExceeded,
		"rate limit of %d requests per hour exceeded", RateLimit)
	e.RetryAfter = retryAfter
	return e
}
