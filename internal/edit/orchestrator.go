package edit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/halvard/skald/internal/apperr"
	"github.com/halvard/skald/internal/genai"
	"github.com/halvard/skald/internal/models"
	"github.com/halvard/skald/internal/prompts"
	"github.com/halvard/skald/internal/validate"
)

// DefaultStepTimeout bounds each step's generation call independently
// of the provider client's own timeout.
const DefaultStepTimeout = 60 * time.Second

// Orchestrator sequences the selected edit steps over one note's
// content. Steps run strictly sequentially because each step's output
// is the next step's input.
type Orchestrator struct {
	gen         genai.Generator
	lib         *prompts.Library
	logger      *slog.Logger
	stepTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStepTimeout overrides the per-step generation deadline.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.stepTimeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator creates an orchestrator over the given generator
// and prompt library.
func NewOrchestrator(gen genai.Generator, lib *prompts.Library, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:         gen,
		lib:         lib,
		logger:      slog.Default(),
		stepTimeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the selected steps over content in the fixed order.
// It never returns an error past its boundary: every failure path,
// including panics inside a step, is converted into the Result shape.
//
// Failure policy: a failed step is skipped, not fatal — the content
// simply does not advance past it. The whole run fails only on
// pre-flight validation or cancellation. Success means at least one
// step applied.
func (o *Orchestrator) Run(ctx context.Context, content string, opts models.EditOptions) (res *Result) {
	start := time.Now()
	res = &Result{
		Content:         content,
		OriginalContent: content,
		AppliedEdits:    []AppliedEdit{},
		FailedEdits:     []FailedEdit{},
	}

	finish := func() {
		res.ProcessingTimeMs = time.Since(start).Milliseconds()
		res.ChangePercentage = changePercentage(res.OriginalContent, res.Content)
	}

	// Unexpected panics inside the loop surface as a retryable
	// API_FAILURE carrying whatever partial results accumulated.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("edit run panicked", slog.Any("panic", r))
			res.Success = false
			res.Error = resultError(apperr.Newf(apperr.CodeAPIFailure, "internal error during edit run: %v", r))
			finish()
		}
	}()

	if err := validate.EditRequest(content, opts); err != nil {
		res.Error = resultError(apperr.As(err))
		finish()
		return res
	}

	if ctx.Err() != nil {
		res.Error = resultError(apperr.New(apperr.CodeUserCancelled, "operation cancelled"))
		finish()
		return res
	}

	current := content
	for _, step := range stepsFor(opts) {
		out, applied, failed, stepErr := o.run(ctx, step, current)
		res.AppliedEdits = append(res.AppliedEdits, applied...)
		res.FailedEdits = append(res.FailedEdits, failed...)

		if stepErr != nil && stepErr.Code == apperr.CodeUserCancelled {
			// Stop immediately; later steps are never started. The
			// accumulated content is kept so the caller can still
			// offer it for review.
			res.Success = false
			res.Content = current
			res.Error = resultError(stepErr)
			finish()
			return res
		}
		if stepErr != nil {
			o.logger.Warn("edit step failed",
				slog.String("kind", string(step.Kind)),
				slog.String("error", stepErr.Error()))
			continue
		}
		current = out
	}

	res.Success = len(res.AppliedEdits) > 0
	if res.Success {
		res.Content = current
	} else {
		res.Content = res.OriginalContent
	}
	finish()
	return res
}

// changePercentage is the net character delta from original to final
// content as a percentage of the original length, clamped to [0, 100].
func changePercentage(original, final string) float64 {
	if len(original) == 0 || original == final {
		return 0
	}
	pct := math.Abs(float64(len(final)-len(original))) / float64(len(original)) * 100
	return math.Min(pct, 100)
}
