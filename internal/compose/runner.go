package compose

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/prompt"
)

// RunParams are the per-run inputs. Blank values take their defaults.
type RunParams struct {
	Tag     string
	Context string
	Model   string
}

// RunResult describes a successful run.
type RunResult struct {
	RunID    string
	Record   core.VersionRecord
	Location string
	Duration time.Duration
}

// Runner executes one generation run: load, prompt, generate, compose, save.
// Either exactly one version is persisted or nothing is.
type Runner struct {
	store     core.HistoryStore
	client    core.ModelClient
	renderer  *prompt.Renderer
	composer  *Composer
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
	webSearch bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout bounds the model call. Zero means no extra bound.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithWebSearch tells the system prompt that the search tool is available.
func WithWebSearch(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.webSearch = enabled
	}
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRunnerClock overrides the time source; it is shared with the composer.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner wires a runner around its collaborators.
func NewRunner(store core.HistoryStore, client core.ModelClient, renderer *prompt.Renderer, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    store,
		client:   client,
		renderer: renderer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.composer = NewComposer(WithComposerClock(r.now), WithComposerLogger(r.logger))
	return r
}

// Run performs one run. The history lock, when the store offers one, is held
// from before Load until after Save.
func (r *Runner) Run(ctx context.Context, params RunParams) (result *RunResult, err error) {
	start := time.Now()
	runID := uuid.New().String()
	model := DefaultModel(params.Model)
	logger := r.logger.With("run_id", runID, "model", model)

	if locker, ok := r.store.(core.HistoryLocker); ok {
		if err := locker.AcquireLock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			// Release even if ctx was canceled mid-run.
			if relErr := locker.ReleaseLock(context.WithoutCancel(ctx)); relErr != nil {
				logger.Warn("releasing history lock", "error", relErr)
				if err == nil {
					err = relErr
					result = nil
				}
			}
		}()
	}

	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("history loaded", "location", r.store.Location(), "versions", doc.Len())

	var prev *core.VersionRecord
	if last, ok := doc.Latest(); ok {
		prev = &last
	}
	userPrompt, err := r.renderer.RenderAnalysis(prompt.NewAnalysisParams(r.now(), params.Context, prev))
	if err != nil {
		return nil, core.ErrValidation(core.CodeEmptyPrompt, "rendering analysis prompt").WithCause(err)
	}
	systemPrompt, err := r.renderer.RenderSystem(prompt.SystemParams{WebSearch: r.webSearch})
	if err != nil {
		return nil, core.ErrValidation(core.CodeEmptyPrompt, "rendering system prompt").WithCause(err)
	}

	raw, err := r.generate(ctx, core.GenerateRequest{
		Model:  model,
		System: systemPrompt,
		Prompt: userPrompt,
	})
	if err != nil {
		return nil, err
	}

	rec, err := r.composer.ComposeAndAppend(doc, raw, params.Tag, model)
	if err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	logger.Info("version appended",
		"version", rec.Version,
		"tag", rec.Tag,
		"differences", len(rec.Differences))

	return &RunResult{
		RunID:    runID,
		Record:   rec,
		Location: r.store.Location(),
		Duration: time.Since(start),
	}, nil
}

func (r *Runner) generate(ctx context.Context, req core.GenerateRequest) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	raw, err := r.client.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !core.IsCategory(err, core.ErrCatTimeout) {
			return "", core.ErrTimeout("model call timed out").WithCause(err)
		}
		return "", err
	}
	return raw, nil
}
