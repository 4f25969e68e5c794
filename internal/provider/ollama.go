package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// OllamaGenerator is the local-model variant: a synchronous call to an
// Ollama-compatible inference server on this machine. It stands in for the
// in-process pipeline the original service loaded, and is the fallback target
// when the remote provider reports quota exhaustion.
type OllamaGenerator struct {
	httpClient *http.Client
	baseURL    string
	model      string
	log        *zap.SugaredLogger
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaGenerator(baseURL, model string, log *zap.SugaredLogger) (*OllamaGenerator, error) {
	if baseURL == "" {
		return nil, errors.New("ollama base url is empty")
	}
	if model == "" {
		return nil, errors.New("ollama model is empty")
	}
	return &OllamaGenerator{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		log:        log,
	}, nil
}

func (o *OllamaGenerator) Name() string { return "local" }

func (o *OllamaGenerator) Generate(ctx context.Context, promptText string, params Params) (Result, error) {
	params = params.Clamp()
	payload := ollamaGenerateRequest{
		Model:  o.model,
		Prompt: promptText,
		Stream: false,
		Options: map[string]any{
			"temperature": params.Temperature,
			"top_p":       params.TopP,
			"num_predict": params.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, errors.Wrap(err, "marshal ollama request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.Wrap(err, "build ollama request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(err, "call ollama")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errors.Wrap(err, "read ollama response")
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, errors.Newf("ollama returned status %d: %s", resp.StatusCode, preview(string(raw)))
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, errors.Wrap(err, "decode ollama response")
	}
	return Result{
		Text:       out.Response,
		Model:      o.model,
		RawPreview: preview(fmt.Sprintf("%+v", out)),
	}, nil
}
