// Package agentauth implements the machine-credential layer: token
// minting and lifecycle, the validation pipeline, the rolling-window
// rate limiter, and the note access guard that composes them.
package agentauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/halvard/skald/internal/models"
)

const (
	// Plaintext token shape: "agt_" + 64 hex chars (32 random bytes).
	tokenPrefix    = "agt_"
	tokenSecretLen = 32
	tokenLen       = len(tokenPrefix) + tokenSecretLen*2

	// PrefixLen is stored alongside the hash for lookup and
	// failed-attempt correlation. Never enough to authenticate.
	PrefixLen = 17

	// TokenTTL is the fixed lifetime from mint to expiry.
	TokenTTL = 90 * 24 * time.Hour

	// FailedAttemptLimit auto-revokes a token when reached.
	FailedAttemptLimit = 10

	// Rolling rate-limit quota per token.
	RateLimit  = 100
	RateWindow = time.Hour

	// Hashing parameters (PBKDF2-SHA256, OWASP-recommended iterations).
	hashIterations = 100_000
	hashKeyLen     = 32
	saltLen        = 16
)

// Mint creates a new agent token for userID. The returned plaintext
// is shown to the user exactly once; only its salted hash is persisted.
func Mint(userID, name string, now time.Time) (plaintext string, tok models.AgentToken, err error) {
	secret := make([]byte, tokenSecretLen)
	if _, err = rand.Read(secret); err != nil {
		return "", tok, fmt.Errorf("agentauth: generate secret: %w", err)
	}
	salt := make([]byte, saltLen)
	if _, err = rand.Read(salt); err != nil {
		return "", tok, fmt.Errorf("agentauth: generate salt: %w", err)
	}

	plaintext = tokenPrefix + hex.EncodeToString(secret)
	now = now.UTC()
	tok = models.AgentToken{
		ID:               uuid.NewString(),
		UserID:           userID,
		TokenHash:        hex.EncodeToString(hashSecret(plaintext, salt)),
		TokenSalt:        hex.EncodeToString(salt),
		TokenPrefix:      plaintext[:PrefixLen],
		Name:             name,
		CreatedAt:        now,
		ExpiresAt:        now.Add(TokenTTL),
		RateLimitResetAt: now,
	}
	return plaintext, tok, nil
}

func hashSecret(plaintext string, salt []byte) []byte {
	return pbkdf2.Key([]byte(plaintext), salt, hashIterations, hashKeyLen, sha256.New)
}

// matchesToken compares the presented plaintext against one stored
// token's salted hash in constant time. Hashes are salted and one-way,
// so there is no lookup shortcut: the authenticator calls this for
// every active candidate.
func matchesToken(plaintext string, tok models.AgentToken) bool {
	salt, err := hex.DecodeString(tok.TokenSalt)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(tok.TokenHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(hashSecret(plaintext, salt), stored) == 1
}

// validFormat reports whether the presented credential has the exact
// expected plaintext shape.
func validFormat(plaintext string) bool {
	if len(plaintext) != tokenLen || plaintext[:len(tokenPrefix)] != tokenPrefix {
		return false
	}
	_, err := hex.DecodeString(plaintext[len(tokenPrefix):])
	return err == nil
}
