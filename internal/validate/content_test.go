package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/models"
)

func codeOf(t *testing.T, err error) apperr.Code {
	t.Helper()
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	return e.Code
}

func TestEditContentTooShort(t *testing.T) {
	if err := EditContent("too short"); err == nil {
		t.Fatal("expected rejection for 9 characters")
	} else if codeOf(t, err) != apperr.CodeContentTooShort {
		t.Errorf("code = %v", codeOf(t, err))
	}
	// Whitespace padding does not rescue short content.
	if err := EditContent("   short    \n\n"); err == nil {
		t.Error("trimmed length should be checked")
	}
}

func TestEditContentTooLong(t *testing.T) {
	err := EditContent(strings.Repeat("a", MaxEditChars+1))
	if err == nil || codeOf(t, err) != apperr.CodeContentTooLong {
		t.Fatalf("err = %v", err)
	}
	if err := EditContent(strings.Repeat("a", MaxEditChars)); err != nil {
		t.Errorf("exactly at limit should pass: %v", err)
	}
}

func TestEditContentIdempotent(t *testing.T) {
	in := "fix typo hear"
	first := EditContent(in)
	second := EditContent(in)
	if (first == nil) != (second == nil) {
		t.Fatal("validator verdict changed between calls")
	}
}

func TestOptions(t *testing.T) {
	err := Options(models.EditOptions{LengthAdjustment: models.LengthKeep})
	if err == nil || codeOf(t, err) != apperr.CodeNoOptionsSelected {
		t.Fatalf("err = %v", err)
	}
	if err := Options(models.EditOptions{FixGrammar: true}); err != nil {
		t.Errorf("one flag set should pass: %v", err)
	}
	if err := Options(models.EditOptions{LengthAdjustment: models.LengthConcise}); err != nil {
		t.Errorf("length adjustment alone should pass: %v", err)
	}
}

func TestAgentContentByteLimit(t *testing.T) {
	err := AgentContent(strings.Repeat("b", MaxAgentWriteBytes+1))
	if err == nil || codeOf(t, err) != apperr.CodeContentTooLong {
		t.Fatalf("err = %v", err)
	}
	// Multi-byte runes count as bytes, not characters.
	err = AgentContent(strings.Repeat("é", MaxAgentWriteBytes/2+1))
	if err == nil {
		t.Error("byte-based limit should reject multi-byte overflow")
	}
}

func TestAgentContentDangerousPatterns(t *testing.T) {
	cases := []string{
		`hello <script>alert(1)</script> world plus padding`,
		`hello <SCRIPT src="x"> world plus padding here`,
		`an <iframe src="https://evil.example"> in the middle`,
		`an <object data="x"> tag with some trailing text`,
		`an <embed src="x"> tag with some trailing text`,
		`<img src=x onerror=alert(1)> and some more text`,
		`[click](javascript:alert(1)) and some more text`,
	}
	for _, c := range cases {
		err := AgentContent(c)
		if err == nil || codeOf(t, err) != apperr.CodeDangerousContent {
			t.Errorf("AgentContent(%q) = %v, want DANGEROUS_CONTENT", c, err)
		}
	}
	if err := AgentContent("plain markdown with a [link](https://example.com)"); err != nil {
		t.Errorf("benign content rejected: %v", err)
	}
}
