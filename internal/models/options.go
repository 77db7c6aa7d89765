package models

// EditKind identifies one atomic AI-driven text transformation.
type EditKind string

const (
	EditFormatMarkdown   EditKind = "format_markdown"
	EditFixGrammar       EditKind = "fix_grammar"
	EditAddHeadings      EditKind = "add_headings"
	EditImproveStructure EditKind = "improve_structure"
	EditMakeConcise      EditKind = "make_concise"
	EditExpand           EditKind = "expand"
	EditAdjustTone       EditKind = "adjust_tone" // reserved, never scheduled
)

// LengthAdjustment selects at most one length-changing edit.
type LengthAdjustment string

const (
	LengthKeep    LengthAdjustment = "keep"
	LengthConcise LengthAdjustment = "concise"
	LengthExpand  LengthAdjustment = "expand"
)

// EditOptions is the user-chosen edit configuration for a single
// orchestrator run. Immutable once passed in.
type EditOptions struct {
	FormatMarkdown   bool             `json:"formatMarkdown"`
	FixGrammar       bool             `json:"fixGrammar"`
	AddHeadings      bool             `json:"addHeadings"`
	ImproveStructure bool             `json:"improveStructure"`
	LengthAdjustment LengthAdjustment `json:"lengthAdjustment,omitempty"`
	Tone             string           `json:"tone,omitempty"` // reserved
}

// Any reports whether at least one edit is selected.
func (o EditOptions) Any() bool {
	return o.FormatMarkdown || o.FixGrammar || o.AddHeadings || o.ImproveStructure ||
		o.LengthAdjustment == LengthConcise || o.LengthAdjustment == LengthExpand
}
