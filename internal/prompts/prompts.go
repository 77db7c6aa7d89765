// Package prompts holds the instruction prompt for each edit kind.
// Prompts are deterministic: the same kind and content always render
// the same request, which is what makes the "changesMade only when
// output differs" contract meaningful.
//
// Built-in defaults can be overridden per kind by dropping a
// "<kind>.md" file into an override directory; see Watch for
// hot-reloading.
package prompts

import (
	"fmt"
	"sync"

	"github.com/halvard/skald/internal/models"
)

// preservationRules is appended to every instruction. The edit
// contract forbids dropping information regardless of the edit kind.
const preservationRules = `Rules you must follow:
- Never drop information from the text.
- Preserve technical terms, numbers, and dates verbatim.
- Preserve code fences and links exactly as written.
- Return only the edited text, with no commentary or preamble.`

var defaults = map[models.EditKind]string{
	models.EditFormatMarkdown: `You are a markdown formatter. Normalize the markdown formatting of the text: consistent emphasis markers, list bullets, spacing around headings, and fenced code blocks. Do not reword anything.

Example input:
*  item one
* item   two

Example output:
- item one
- item two`,

	models.EditFixGrammar: `You are a copy editor. Fix spelling, grammar, and punctuation mistakes in the text. Do not change the meaning, tone, or structure.

Example input:
fix typo hear

Example output:
Fix typo here.`,

	models.EditAddHeadings: `You are a document organizer. Insert markdown headings that summarize each section of the text. Use a sensible hierarchy starting at level 2 and never skip heading levels. Do not rewrite the body text.

Example input:
We met on Tuesday. Budget was approved. Next steps are hiring and onboarding.

Example output:
## Meeting notes
We met on Tuesday. Budget was approved.

## Next steps
Next steps are hiring and onboarding.`,

	models.EditImproveStructure: `You are a document restructurer. Reorganize the text so related points sit together, converting run-on passages into paragraphs or lists where that improves readability. Keep every fact.

Example input:
Remember milk, also the meeting moved to 3pm, and eggs, and Bob is out Friday.

Example output:
Shopping:
- milk
- eggs

Schedule:
- The meeting moved to 3pm.
- Bob is out Friday.`,

	models.EditMakeConcise: `You are a concise editor. Shorten the text by removing filler and redundancy while keeping every fact, number, and name.

Example input:
It is worth noting that the deployment, generally speaking, takes about 10 minutes.

Example output:
The deployment takes about 10 minutes.`,

	models.EditExpand: `You are a writing assistant. Expand the text with clarifying detail and connective prose so terse notes read as full sentences. Invent nothing; elaborate only on what is already stated.

Example input:
deploy fri, rollback plan ready

Example output:
The deployment is scheduled for Friday. A rollback plan has been prepared in case it is needed.`,

	models.EditAdjustTone: `You are a tone editor. Rewrite the text in the requested tone without changing its meaning.`,
}

// Library resolves the instruction for each edit kind, preferring
// overrides loaded from disk over the built-in defaults. Safe for
// concurrent use; the watcher swaps overrides while steps render.
type Library struct {
	mu        sync.RWMutex
	overrides map[models.EditKind]string
}

// NewLibrary creates a Library with no overrides loaded.
func NewLibrary() *Library {
	return &Library{overrides: make(map[models.EditKind]string)}
}

// Instruction returns the instruction text for kind.
func (l *Library) Instruction(kind models.EditKind) string {
	l.mu.RLock()
	if s, ok := l.overrides[kind]; ok {
		l.mu.RUnlock()
		return s
	}
	l.mu.RUnlock()
	return defaults[kind]
}

// Build renders the full prompt for one step: instruction, the shared
// preservation rules, then the content to edit.
func (l *Library) Build(kind models.EditKind, content string) string {
	return fmt.Sprintf("%s\n\n%s\n\nText to edit:\n%s", l.Instruction(kind), preservationRules, content)
}

func (l *Library) setOverride(kind models.EditKind, text string) {
	l.mu.Lock()
	l.overrides[kind] = text
	l.mu.Unlock()
}

func (l *Library) clearOverride(kind models.EditKind) {
	l.mu.Lock()
	delete(l.overrides, kind)
	l.mu.Unlock()
}
