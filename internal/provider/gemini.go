package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiGenerator is the Gemini remote backend.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	log    *zap.SugaredLogger
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string, log *zap.SugaredLogger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "init gemini client")
	}
	return &GeminiGenerator{client: client, model: model, log: log}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Close() error { return g.client.Close() }

func (g *GeminiGenerator) Generate(ctx context.Context, promptText string, params Params) (Result, error) {
	params = params.Clamp()

	// A fresh model handle per call keeps decoding params off shared state.
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(params.Temperature)
	model.SetTopP(params.TopP)
	model.SetMaxOutputTokens(int32(params.MaxTokens))

	resp, err := model.GenerateContent(ctx, genai.Text(promptText))
	if err != nil {
		return Result{}, g.classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, errors.New("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return Result{
		Text:       b.String(),
		Model:      g.model,
		RawPreview: preview(fmt.Sprintf("%+v", resp)),
	}, nil
}

// classify inspects the transport error. Gemini surfaces quota exhaustion as
// a 429 whose message names the exceeded quota; plain 429s without that are
// rate limits and stay retryable.
func (g *GeminiGenerator) classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 429 {
		if strings.Contains(strings.ToLower(gerr.Message), "quota") {
			return errors.Mark(errors.Wrap(err, "gemini generate content"), ErrQuotaExhausted)
		}
	}
	return markIfQuota(errors.Wrap(err, "gemini generate content"))
}
