// Package app wires the configured components into a runnable pipeline.
// Clients are constructed exactly once here and injected; nothing in the
// pipeline lazily initializes global handles.
package app

import (
	"context"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/artaoheed/testgate/internal/config"
	"github.com/artaoheed/testgate/internal/dataset"
	"github.com/artaoheed/testgate/internal/events"
	"github.com/artaoheed/testgate/internal/pipeline"
	"github.com/artaoheed/testgate/internal/provider"
	"github.com/artaoheed/testgate/internal/safety"
	"github.com/artaoheed/testgate/internal/sandbox"
	"github.com/artaoheed/testgate/internal/scoring"
)

type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Runner   *sandbox.Runner
	Dataset  *dataset.Generator
	Scoring  scoring.Options

	closers []func() error
}

// New builds every component from config. The remote backend is only
// constructed when its API key is present in the environment; selecting the
// remote provider without a key is a startup error.
func New(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	a := &App{Config: cfg}

	set := &provider.Set{Mock: provider.NewMockGenerator()}

	remote, err := buildRemote(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}
	if remote != nil {
		set.Remote = provider.NewRetrier(remote, provider.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffSeconds * float64(time.Second)),
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffSeconds * float64(time.Second)),
		}, log)
	}
	if cfg.Model.LocalModel != "" {
		local, err := provider.NewOllamaGenerator(cfg.Model.OllamaBaseURL, cfg.Model.LocalModel, log)
		if err != nil {
			return nil, err
		}
		set.Local = local
	}

	kind, err := provider.ParseKind(cfg.Model.Provider)
	if err != nil {
		return nil, err
	}
	if _, err := set.ForKind(kind); err != nil {
		return nil, errors.Wrap(err, "configured default provider unavailable")
	}

	emitter, err := buildEmitter(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}

	a.Runner = sandbox.NewRunner(cfg.Sandbox.PythonBin,
		time.Duration(cfg.Sandbox.TimeoutSeconds)*time.Second, log)

	a.Pipeline = pipeline.New(set, kind, provider.Params{
		Temperature: cfg.Decoding.Temperature,
		MaxTokens:   cfg.Decoding.MaxTokens,
		TopP:        cfg.Decoding.TopP,
	}, cfg.Prompt.FewShot, cfg.Prompt.Examples,
		safety.NewAnalyzer(), a.Runner, emitter, log)

	a.Dataset = dataset.NewGenerator(a.Pipeline, log)

	a.Scoring = scoring.Options{
		MaxPairs:        cfg.Evaluation.MaxPairs,
		BLEUThreshold:   cfg.Evaluation.BLEUThreshold,
		CosineThreshold: cfg.Evaluation.CosineThreshold,
	}
	if cfg.Evaluation.EmbeddingModel != "" {
		a.Scoring.Embedder = scoring.NewOllamaEmbedder(cfg.Model.OllamaBaseURL, cfg.Evaluation.EmbeddingModel)
	}
	return a, nil
}

func buildRemote(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, a *App) (provider.Generator, error) {
	switch cfg.Model.RemoteBackend {
	case config.BackendOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			if cfg.Model.Provider == config.ProviderRemote {
				return nil, errors.New("OPENAI_API_KEY is not set but provider 'remote' with the openai backend was requested")
			}
			return nil, nil
		}
		return provider.NewOpenAIGenerator(key, cfg.Model.OpenAIModel, log)
	case config.BackendGemini:
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			if cfg.Model.Provider == config.ProviderRemote {
				return nil, errors.New("GEMINI_API_KEY is not set but provider 'remote' with the gemini backend was requested")
			}
			return nil, nil
		}
		g, err := provider.NewGeminiGenerator(ctx, key, cfg.Model.GeminiModel, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
	return nil, errors.Newf("unknown remote backend %q", cfg.Model.RemoteBackend)
}

func buildEmitter(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, a *App) (events.Emitter, error) {
	var emitters []events.Emitter
	if cfg.Logging.JSONLPath != "" {
		emitters = append(emitters, events.NewJSONLEmitter(cfg.Logging.JSONLPath, log))
	}
	if cfg.Logging.PubSub.Enabled {
		ps, err := events.NewPubSubEmitter(ctx, cfg.Logging.PubSub.ProjectID, cfg.Logging.PubSub.TopicID, log)
		if err != nil {
			return nil, errors.Wrap(err, "init pubsub emitter")
		}
		a.closers = append(a.closers, ps.Close)
		emitters = append(emitters, ps)
	}
	switch len(emitters) {
	case 0:
		return nil, nil
	case 1:
		return emitters[0], nil
	}
	return events.NewMultiEmitter(emitters...), nil
}

func (a *App) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}
