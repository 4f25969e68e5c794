package provider

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIGenerator is the remote chat-completion backend.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	log    *zap.SugaredLogger
}

// NewOpenAIGenerator builds the client once; it is reused for the life of the
// process.
func NewOpenAIGenerator(apiKey, model string, log *zap.SugaredLogger) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, promptText string, params Params) (Result, error) {
	params = params.Clamp()
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: promptText},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		TopP:        params.TopP,
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{}, o.classify(err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("openai returned no choices")
	}
	return Result{
		Text:       resp.Choices[0].Message.Content,
		Model:      o.model,
		RawPreview: preview(fmt.Sprintf("%+v", resp)),
	}, nil
}

// classify separates terminal quota/billing failures from everything else.
func (o *OpenAIGenerator) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return errors.Mark(errors.Wrap(err, "openai chat completion"), ErrQuotaExhausted)
		}
	}
	return markIfQuota(errors.Wrap(err, "openai chat completion"))
}
