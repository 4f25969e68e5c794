// Package pipeline sequences the generator-validator workflow: prompt
// building, generation with provider fallback, syntax checking, static
// safety checks, optional sandboxed execution, and governance assembly.
package pipeline

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/events"
	"github.com/artaoheed/testgate/internal/prompt"
	"github.com/artaoheed/testgate/internal/provider"
	"github.com/artaoheed/testgate/internal/pycheck"
	"github.com/artaoheed/testgate/internal/safety"
	"github.com/artaoheed/testgate/internal/sandbox"
)

// ErrGenerationFailed marks failures of the generation step itself (after
// retries and fallback). These are the only pipeline failures surfaced as
// errors; validation findings are data in the governance report.
var ErrGenerationFailed = errors.New("test generation failed")

// Request describes one generation run. Immutable once constructed; the
// pipeline never writes to it.
type Request struct {
	SourceCode string
	// Provider overrides the configured default when non-empty. Must be one
	// of remote, local, mock.
	Provider    string
	Temperature *float32
	MaxTokens   *int
	TopP        *float32
	RunPytest   bool
}

// Metadata describes how the text was generated.
type Metadata struct {
	RunID           string  `json:"run_id"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	DurationSeconds float64 `json:"duration_s"`
	RawPreview      string  `json:"raw_preview"`
}

// Governance is the terminal verdict for one run. Safe is always exactly
// the static-safety verdict AND the syntax verdict; it says nothing about
// whether the tests passed.
type Governance struct {
	Safe          bool     `json:"safe"`
	SyntaxOK      bool     `json:"syntax_ok"`
	SyntaxError   *string  `json:"syntax_error"`
	Reasons       []string `json:"reasons"`
	Warnings      []string `json:"warnings"`
	PytestPassed  *bool    `json:"pytest_passed"`
	Hallucination bool     `json:"hallucination"`
}

// Result is everything a caller gets back from one run.
type Result struct {
	Tests        string
	Prompt       string
	Metadata     Metadata
	Governance   Governance
	PytestOutput *string
}

type Pipeline struct {
	providers   *provider.Set
	defaultKind provider.Kind
	params      provider.Params
	fewShot     bool
	numExamples int
	analyzer    *safety.Analyzer
	runner      *sandbox.Runner
	emitter     events.Emitter
	log         *zap.SugaredLogger
	now         func() time.Time
}

type Option func(*Pipeline)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(providers *provider.Set, defaultKind provider.Kind, params provider.Params,
	fewShot bool, numExamples int, analyzer *safety.Analyzer, runner *sandbox.Runner,
	emitter events.Emitter, log *zap.SugaredLogger, opts ...Option) *Pipeline {
	p := &Pipeline{
		providers:   providers,
		defaultKind: defaultKind,
		params:      params,
		fewShot:     fewShot,
		numExamples: numExamples,
		analyzer:    analyzer,
		runner:      runner,
		emitter:     emitter,
		log:         log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full generation+validation pass. It returns an error only
// when generation itself fails; everything downstream is captured in the
// governance report.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	kind := p.defaultKind
	if req.Provider != "" {
		k, err := provider.ParseKind(req.Provider)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	params := p.mergedParams(req)
	promptText := prompt.Build(req.SourceCode, p.fewShot, p.numExamples)
	runID := uuid.NewString()

	start := p.now()
	genResult, genName, err := p.generate(ctx, kind, promptText, params)
	if err != nil {
		return nil, err
	}
	duration := p.now().Sub(start)

	res := &Result{
		Tests:  genResult.Text,
		Prompt: promptText,
		Metadata: Metadata{
			RunID:           runID,
			Provider:        genName,
			Model:           genResult.Model,
			DurationSeconds: duration.Seconds(),
			RawPreview:      genResult.RawPreview,
		},
	}

	gov := Governance{
		SyntaxOK: true,
		Reasons:  []string{},
		Warnings: []string{},
	}

	syntaxErr, err := pycheck.Check(ctx, genResult.Text)
	if err != nil {
		return nil, errors.Wrap(err, "syntax check")
	}
	if syntaxErr != nil {
		// Static and execution checks are meaningless on unparseable text.
		msg := syntaxErr.Error()
		gov.SyntaxOK = false
		gov.SyntaxError = &msg
	} else {
		report := p.analyzer.Analyze(genResult.Text)
		gov.Reasons = report.Reasons
		gov.Warnings = report.Warnings
		gov.Hallucination = report.Hallucination

		if req.RunPytest {
			outcome, runErr := p.runner.Run(ctx, req.SourceCode, genResult.Text)
			if runErr != nil {
				// Execution is an optional signal; a broken runner must not
				// fail the whole pipeline.
				gov.Warnings = append(gov.Warnings,
					"Pytest validation failed to run: "+runErr.Error())
			} else {
				passed := outcome.Passed
				output := outcome.Output
				gov.PytestPassed = &passed
				res.PytestOutput = &output
			}
		}
	}

	gov.Safe = len(gov.Reasons) == 0 && gov.SyntaxOK
	res.Governance = gov

	p.logRun(req, res)
	return res, nil
}

// generate invokes the selected provider. When the remote variant reports
// quota exhaustion or runs out of retries and a local model is configured,
// it transparently retries once via the local variant.
func (p *Pipeline) generate(ctx context.Context, kind provider.Kind, promptText string, params provider.Params) (provider.Result, string, error) {
	gen, err := p.providers.ForKind(kind)
	if err != nil {
		return provider.Result{}, "", err
	}

	result, genErr := gen.Generate(ctx, promptText, params)
	if genErr == nil {
		return result, gen.Name(), nil
	}

	if kind == provider.KindRemote && p.providers.Local != nil &&
		(provider.IsQuota(genErr) || provider.IsRetriesExhausted(genErr)) {
		p.log.Warnw("remote generation failed, falling back to local model", "error", genErr)
		local := p.providers.Local
		result, localErr := local.Generate(ctx, promptText, params)
		if localErr == nil {
			return result, local.Name(), nil
		}
		return provider.Result{}, "", errors.Mark(
			errors.Wrapf(localErr, "local fallback also failed after remote failure: %v", genErr),
			ErrGenerationFailed)
	}

	return provider.Result{}, "", errors.Mark(genErr, ErrGenerationFailed)
}

func (p *Pipeline) mergedParams(req Request) provider.Params {
	params := p.params
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		params.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}
	return params.Clamp()
}

// logRun appends the accountability record. Best effort only.
func (p *Pipeline) logRun(req Request, res *Result) {
	if p.emitter == nil {
		return
	}
	p.emitter.Emit(events.Entry{
		Timestamp:         p.now().UTC().Format(time.RFC3339),
		RunID:             res.Metadata.RunID,
		SourceLen:         len(req.SourceCode),
		TestsLen:          len(res.Tests),
		GeneratorMetadata: res.Metadata,
		Governance:        res.Governance,
	})
}
