package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halvard/skald/internal/models"
)

func TestBuildIsDeterministic(t *testing.T) {
	l := NewLibrary()
	a := l.Build(models.EditFixGrammar, "fix typo hear")
	b := l.Build(models.EditFixGrammar, "fix typo hear")
	if a != b {
		t.Fatal("prompt rendering is not deterministic")
	}
	if !strings.Contains(a, "fix typo hear") {
		t.Error("content missing from prompt")
	}
	if !strings.Contains(a, "Preserve technical terms") {
		t.Error("preservation rules missing from prompt")
	}
}

func TestEveryScheduledKindHasADefault(t *testing.T) {
	l := NewLibrary()
	for _, k := range []models.EditKind{
		models.EditFormatMarkdown, models.EditFixGrammar, models.EditAddHeadings,
		models.EditImproveStructure, models.EditMakeConcise, models.EditExpand,
	} {
		if l.Instruction(k) == "" {
			t.Errorf("no default instruction for %s", k)
		}
	}
}

func TestLoadDirOverride(t *testing.T) {
	dir := t.TempDir()
	override := "Custom grammar instruction."
	if err := os.WriteFile(filepath.Join(dir, "fix_grammar.md"), []byte(override+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A stray file must not be picked up.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("not a prompt"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLibrary()
	if err := l.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := l.Instruction(models.EditFixGrammar); got != override {
		t.Errorf("instruction = %q, want override", got)
	}
	if got := l.Instruction(models.EditFormatMarkdown); !strings.Contains(got, "markdown formatter") {
		t.Errorf("unrelated kind lost its default: %q", got)
	}
}

func TestLoadDirMissingIsFine(t *testing.T) {
	l := NewLibrary()
	if err := l.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
}
