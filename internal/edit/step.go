package edit

import (
	"context"
	"errors"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/genai"
	"github.com/halvard/skald/internal/models"
)

// maxTokens is the fixed generation budget for every step.
const maxTokens = 4096

// Step is one edit transformation: a kind and the temperature chosen
// for its determinism/creativity trade-off.
type Step struct {
	Kind        models.EditKind
	Temperature float64
}

// stepOrder is the fixed application order. Formatting and grammar
// fixes run before structural reorganization, which runs before
// length changes: each later step assumes a cleaner baseline. The
// order is not user-configurable.
var stepOrder = []Step{
	{Kind: models.EditFormatMarkdown, Temperature: 0.1},
	{Kind: models.EditFixGrammar, Temperature: 0.1},
	{Kind: models.EditAddHeadings, Temperature: 0.3},
	{Kind: models.EditImproveStructure, Temperature: 0.4},
	{Kind: models.EditMakeConcise, Temperature: 0.2},
	{Kind: models.EditExpand, Temperature: 0.5},
}

// stepsFor selects steps from the fixed order based on the options.
// The length adjustment contributes at most one step: make-concise or
// expand, never both.
func stepsFor(opts models.EditOptions) []Step {
	var out []Step
	for _, s := range stepOrder {
		switch s.Kind {
		case models.EditFormatMarkdown:
			if opts.FormatMarkdown {
				out = append(out, s)
			}
		case models.EditFixGrammar:
			if opts.FixGrammar {
				out = append(out, s)
			}
		case models.EditAddHeadings:
			if opts.AddHeadings {
				out = append(out, s)
			}
		case models.EditImproveStructure:
			if opts.ImproveStructure {
				out = append(out, s)
			}
		case models.EditMakeConcise:
			if opts.LengthAdjustment == models.LengthConcise {
				out = append(out, s)
			}
		case models.EditExpand:
			if opts.LengthAdjustment == models.LengthExpand {
				out = append(out, s)
			}
		}
	}
	return out
}

// run executes one step over content. On success the returned applied
// list has one element and output carries the new content; on failure
// the failed list has one element, output equals the input, and err
// carries the run-level error the orchestrator may act on. A step is
// flagged changesMade only when the output literally differs from the
// input.
func (o *Orchestrator) run(ctx context.Context, s Step, content string) (output string, applied []AppliedEdit, failed []FailedEdit, err *apperr.Error) {
	if ctx.Err() != nil {
		return content,
			nil,
			[]FailedEdit{{Type: s.Kind, Error: "Operation cancelled", Recoverable: false}},
			apperr.New(apperr.CodeUserCancelled, "operation cancelled")
	}

	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	start := time.Now()
	out, genErr := o.gen.Generate(stepCtx, genai.Request{
		Prompt:      o.lib.Build(s.Kind, content),
		Temperature: s.Temperature,
		MaxTokens:   maxTokens,
	})
	if genErr != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
			return content,
				nil,
				[]FailedEdit{{Type: s.Kind, Error: "Operation cancelled", Recoverable: false}},
				apperr.New(apperr.CodeUserCancelled, "operation cancelled")
		}
		return content,
			nil,
			[]FailedEdit{{Type: s.Kind, Error: genErr.Error(), Recoverable: true}},
			apperr.Wrap(apperr.CodeAPIFailure, "generation failed", genErr)
	}

	return out,
		[]AppliedEdit{{
			Type:           s.Kind,
			DurationMs:     time.Since(start).Milliseconds(),
			ChangesMade:    out != content,
			CharacterDelta: len(out) - len(content),
		}},
		nil,
		nil
}
