package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
)

const tokenColumns = `id, user_id, token_hash, token_salt, token_prefix, name,
	created_at, expires_at, revoked_at, last_used_at,
	requests_count, rate_limit_reset_at, failed_attempts, last_failed_at`

func scanToken(row interface{ Scan(...any) error }) (*models.AgentToken, error) {
	var t models.AgentToken
	var created, expires, resetAt string
	var revoked, lastUsed, lastFailed sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenSalt, &t.TokenPrefix, &t.Name,
		&created, &expires, &revoked, &lastUsed,
		&t.RequestsCount, &resetAt, &t.FailedAttempts, &lastFailed)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	t.ExpiresAt = parseTime(expires)
	t.RateLimitResetAt = parseTime(resetAt)
	t.RevokedAt = parseNullTime(revoked)
	t.LastUsedAt = parseNullTime(lastUsed)
	t.LastFailedAt = parseNullTime(lastFailed)
	return &t, nil
}

// InsertToken stores a freshly minted token row.
func (db *DB) InsertToken(t models.AgentToken) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`
			INSERT INTO agent_tokens (`+tokenColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.TokenHash, t.TokenSalt, t.TokenPrefix, t.Name,
			fmtTime(t.CreatedAt), fmtTime(t.ExpiresAt), fmtNullTime(t.RevokedAt), fmtNullTime(t.LastUsedAt),
			t.RequestsCount, fmtTime(t.RateLimitResetAt), t.FailedAttempts, fmtNullTime(t.LastFailedAt))
		if err != nil {
			return fmt.Errorf("store: insert token: %w", err)
		}
		return nil
	})
}

// GetToken returns one token by id, or apperr.ErrNotFound.
func (db *DB) GetToken(id string) (*models.AgentToken, error) {
	t, err := scanToken(db.conn.QueryRow(`SELECT `+tokenColumns+` FROM agent_tokens WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get token: %w", err)
	}
	return t, nil
}

// ListTokens returns all of one user's tokens, newest first, revoked
// included (tokens are never deleted).
func (db *DB) ListTokens(userID string) ([]models.AgentToken, error) {
	rows, err := db.conn.Query(`
		SELECT `+tokenColumns+` FROM agent_tokens
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list tokens: %w", err)
	}
	defer rows.Close()

	var out []models.AgentToken
	for rows.Next() {
		t, scanErr := scanToken(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ActiveTokens returns every non-revoked token. Authentication must
// compare the presented secret against each candidate's salted hash,
// so the set cannot be narrowed by hash lookup.
func (db *DB) ActiveTokens() ([]models.AgentToken, error) {
	rows, err := db.conn.Query(`SELECT ` + tokenColumns + ` FROM agent_tokens WHERE revoked_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: active tokens: %w", err)
	}
	defer rows.Close()

	var out []models.AgentToken
	for rows.Next() {
		t, scanErr := scanToken(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// RevokeToken marks a token revoked. Idempotent: an already-revoked
// token keeps its original revocation time. Returns apperr.ErrNotFound
// when the token does not belong to userID.
func (db *DB) RevokeToken(id, userID string, at time.Time) error {
	return retryOnContention(func() error {
		res, err := db.conn.Exec(`
			UPDATE agent_tokens SET revoked_at = COALESCE(revoked_at, ?)
			WHERE id = ? AND user_id = ?`,
			fmtTime(at), id, userID)
		if err != nil {
			return fmt.Errorf("store: revoke token: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

// ForceRevoke revokes a token regardless of owner; used when the
// failed-attempt threshold trips during validation.
func (db *DB) ForceRevoke(id string, at time.Time) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`
			UPDATE agent_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
			fmtTime(at), id)
		if err != nil {
			return fmt.Errorf("store: force revoke: %w", err)
		}
		return nil
	})
}

// TouchLastUsed records a successful validation.
func (db *DB) TouchLastUsed(id string, at time.Time) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`UPDATE agent_tokens SET last_used_at = ? WHERE id = ?`,
			fmtTime(at), id)
		if err != nil {
			return fmt.Errorf("store: touch last used: %w", err)
		}
		return nil
	})
}

// RecordFailedAttempt increments failed_attempts on every non-revoked
// token sharing the presented credential's prefix (best-effort
// correlation: the real token is unrecoverable from a bad secret). A
// token whose count reaches threshold is revoked in the same
// statement. The whole thing is one UPDATE so concurrent failures
// cannot lose increments.
func (db *DB) RecordFailedAttempt(prefix string, at time.Time, threshold int) error {
	return retryOnContention(func() error {
		_, err := db.conn.Exec(`
			UPDATE agent_tokens
			SET failed_attempts = failed_attempts + 1,
			    last_failed_at  = ?,
			    revoked_at      = CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE revoked_at END
			WHERE token_prefix = ? AND revoked_at IS NULL`,
			fmtTime(at), threshold, fmtTime(at), prefix)
		if err != nil {
			return fmt.Errorf("store: record failed attempt: %w", err)
		}
		return nil
	})
}

// ConsumeRateLimit performs the atomic reset-or-increment for one
// request against the rolling window. The WHERE clause checks the
// quota before incrementing, so with limit 100 the 100th in-window
// request is the last one admitted. Returns admitted=false and the
// current window's reset time when the quota is exhausted.
func (db *DB) ConsumeRateLimit(id string, now time.Time, limit int, window time.Duration) (bool, time.Time, error) {
	cutoff := fmtTime(now.Add(-window))
	stamp := fmtTime(now)

	var admitted bool
	err := retryOnContention(func() error {
		res, err := db.conn.Exec(`
			UPDATE agent_tokens
			SET requests_count      = CASE WHEN rate_limit_reset_at <= ? THEN 1 ELSE requests_count + 1 END,
			    rate_limit_reset_at = CASE WHEN rate_limit_reset_at <= ? THEN ? ELSE rate_limit_reset_at END
			WHERE id = ? AND (rate_limit_reset_at <= ? OR requests_count < ?)`,
			cutoff, cutoff, stamp, id, cutoff, limit)
		if err != nil {
			return fmt.Errorf("store: consume rate limit: %w", err)
		}
		affected, _ := res.RowsAffected()
		admitted = affected == 1
		return nil
	})
	if err != nil {
		return false, time.Time{}, err
	}
	if admitted {
		return true, time.Time{}, nil
	}

	var resetAt string
	if scanErr := db.conn.QueryRow(
		`SELECT rate_limit_reset_at FROM agent_tokens WHERE id = ?`, id).Scan(&resetAt); scanErr != nil {
		if errors.Is(scanErr, sql.ErrNoRows) {
			return false, time.Time{}, apperr.ErrNotFound
		}
		return false, time.Time{}, fmt.Errorf("store: read rate window: %w", scanErr)
	}
	return false, parseTime(resetAt), nil
}
