// Package validate gates note content before any edit run or agent
// write is attempted. All checks are pure functions with no I/O, so a
// verdict is the same every time for the same input.
package validate

import (
	"regexp"
	"strings"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
)

// Content limits. Edits are measured in characters because the limit
// mirrors what the editor UI enforces; agent writes are measured in
// bytes because they cross a stricter trust boundary.
const (
	MinContentChars    = 10
	MaxEditChars       = 50_000
	MaxAgentWriteBytes = 10_240
)

// Patterns that fail closed for agent-submitted content. Matching is
// case-insensitive and tolerant of attribute noise inside the tag.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)<\s*iframe\b`),
	regexp.MustCompile(`(?i)<\s*object\b`),
	regexp.MustCompile(`(?i)<\s*embed\b`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)javascript\s*:`),
}

// EditContent checks content for an AI edit run.
func EditContent(content string) error {
	if len(strings.TrimSpace(content)) < MinContentChars {
		return apperr.Newf(apperr.CodeContentTooShort,
			"content must be at least %d characters", MinContentChars)
	}
	if len(content) > MaxEditChars {
		return apperr.Newf(apperr.CodeContentTooLong,
			"content exceeds %d characters", MaxEditChars)
	}
	return nil
}

// Options rejects an edit configuration that selects nothing.
func Options(opts models.EditOptions) error {
	if !opts.Any() {
		return apperr.New(apperr.CodeNoOptionsSelected, "no edit options selected")
	}
	return nil
}

// EditRequest is the pre-flight gate the orchestrator runs: content
// first, then options.
func EditRequest(content string, opts models.EditOptions) error {
	if err := EditContent(content); err != nil {
		return err
	}
	return Options(opts)
}

// AgentContent checks content submitted by an automated client before
// any write: byte-based size limit plus XSS-pattern rejection.
func AgentContent(content string) error {
	if len(strings.TrimSpace(content)) < MinContentChars {
		return apperr.Newf(apperr.CodeContentTooShort,
			"content must be at least %d characters", MinContentChars)
	}
	if len(content) > MaxAgentWriteBytes {
		return apperr.Newf(apperr.CodeContentTooLong,
			"content exceeds %d bytes", MaxAgentWriteBytes)
	}
	for _, re := range dangerousPatterns {
		if re.MatchString(content) {
			return apperr.New(apperr.CodeDangerousContent,
				"content contains a disallowed pattern")
		}
	}
	return nil
}
