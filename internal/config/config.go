package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Provider kinds accepted in model.provider and in per-request overrides.
const (
	ProviderRemote = "remote"
	ProviderLocal  = "local"
	ProviderMock   = "mock"
)

// Remote backends accepted in model.remote_backend.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// MaxTokensCeiling is the hard cap applied to decoding.max_tokens no matter
// what the config or a request asks for.
const MaxTokensCeiling = 2048

type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Decoding   DecodingConfig   `yaml:"decoding"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Retry      RetryConfig      `yaml:"retry"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
}

type ModelConfig struct {
	Provider      string `yaml:"provider"`
	RemoteBackend string `yaml:"remote_backend"`
	OpenAIModel   string `yaml:"openai_model"`
	GeminiModel   string `yaml:"gemini_model"`
	// LocalModel is the model name served by the local inference server.
	// When set, the remote provider falls back to it on quota exhaustion.
	LocalModel    string `yaml:"local_model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
}

type DecodingConfig struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float32 `yaml:"top_p"`
}

type PromptConfig struct {
	FewShot  bool `yaml:"few_shot"`
	Examples int  `yaml:"examples"`
}

type RetryConfig struct {
	MaxAttempts           int     `yaml:"max_attempts"`
	InitialBackoffSeconds float64 `yaml:"initial_backoff_seconds"`
	MaxBackoffSeconds     float64 `yaml:"max_backoff_seconds"`
}

type DatasetConfig struct {
	FunctionsDir      string `yaml:"functions_dir"`
	ExpectedTestsDir  string `yaml:"expected_tests_dir"`
	GeneratedTestsDir string `yaml:"generated_tests_dir"`
}

type SandboxConfig struct {
	PythonBin      string `yaml:"python_bin"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EvaluationConfig struct {
	BLEUThreshold   float64 `yaml:"bleu_threshold"`
	CosineThreshold float64 `yaml:"cosine_threshold"`
	MaxPairs        int     `yaml:"max_pairs"`
	EmbeddingModel  string  `yaml:"embedding_model"`
}

type LoggingConfig struct {
	JSONLPath string       `yaml:"jsonl_path"`
	PubSub    PubSubConfig `yaml:"pubsub"`
}

type PubSubConfig struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	TopicID   string `yaml:"topic_id"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config populated with the same defaults the original
// service shipped in config.yaml.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:      ProviderMock,
			RemoteBackend: BackendOpenAI,
			OpenAIModel:   "gpt-4o-mini",
			GeminiModel:   "gemini-2.5-flash",
			OllamaBaseURL: "http://localhost:11434",
		},
		Decoding: DecodingConfig{
			Temperature: 0.0,
			MaxTokens:   512,
			TopP:        0.95,
		},
		Prompt: PromptConfig{
			FewShot:  true,
			Examples: 1,
		},
		Retry: RetryConfig{
			MaxAttempts:           5,
			InitialBackoffSeconds: 1.0,
			MaxBackoffSeconds:     60.0,
		},
		Dataset: DatasetConfig{
			FunctionsDir:      "data/functions",
			ExpectedTestsDir:  "data/expected_tests",
			GeneratedTestsDir: "data/generated_tests",
		},
		Sandbox: SandboxConfig{
			PythonBin:      "python3",
			TimeoutSeconds: 120,
		},
		Evaluation: EvaluationConfig{
			BLEUThreshold:   0.2,
			CosineThreshold: 0.5,
			MaxPairs:        50,
			EmbeddingModel:  "nomic-embed-text",
		},
		Logging: LoggingConfig{
			JSONLPath: "logs/runs.jsonl",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads path, overlays it on the defaults, clamps decoding values and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the built-in defaults
// (mock provider, no remote backends) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.Clamp()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

// Clamp forces decoding values into their allowed ranges. MaxTokens is always
// capped at MaxTokensCeiling regardless of what the file asked for.
func (c *Config) Clamp() {
	if c.Decoding.MaxTokens <= 0 {
		c.Decoding.MaxTokens = 512
	}
	if c.Decoding.MaxTokens < 16 {
		c.Decoding.MaxTokens = 16
	}
	if c.Decoding.MaxTokens > MaxTokensCeiling {
		c.Decoding.MaxTokens = MaxTokensCeiling
	}
	if c.Decoding.Temperature < 0 {
		c.Decoding.Temperature = 0
	}
	if c.Decoding.Temperature > 1 {
		c.Decoding.Temperature = 1
	}
	if c.Prompt.Examples < 0 {
		c.Prompt.Examples = 0
	}
	if c.Evaluation.MaxPairs < 1 {
		c.Evaluation.MaxPairs = 1
	}
	if c.Evaluation.MaxPairs > 200 {
		c.Evaluation.MaxPairs = 200
	}
}

func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderRemote, ProviderLocal, ProviderMock:
	default:
		return errors.Newf("unknown model.provider %q (want remote, local or mock)", c.Model.Provider)
	}
	if c.Model.Provider == ProviderRemote {
		switch c.Model.RemoteBackend {
		case BackendOpenAI, BackendGemini:
		default:
			return errors.Newf("unknown model.remote_backend %q (want openai or gemini)", c.Model.RemoteBackend)
		}
	}
	if c.Model.Provider == ProviderLocal && c.Model.LocalModel == "" {
		return errors.New("model.provider is local but model.local_model is empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialBackoffSeconds <= 0 || c.Retry.MaxBackoffSeconds <= 0 {
		return errors.New("retry backoff durations must be positive")
	}
	if c.Logging.PubSub.Enabled && (c.Logging.PubSub.ProjectID == "" || c.Logging.PubSub.TopicID == "") {
		return errors.New("logging.pubsub enabled but project_id/topic_id missing")
	}
	return nil
}
