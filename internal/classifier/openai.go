package classifier

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jbplatform/relay/pkg/models"
)

// OpenAIConfig configures the OpenAI-backed classifier.
type OpenAIConfig struct {
	// Model is the chat model to use. Defaults to gpt-4o-mini.
	Model openai.ChatModel
	// APIKey is the OpenAI API key. Empty falls back to OPENAI_API_KEY.
	APIKey string
	// BaseURL overrides the endpoint, for compatible gateways.
	BaseURL string
}

// OpenAI classifies messages with a single chat completion.
type OpenAI struct {
	inner openai.Client
	model openai.ChatModel
}

// NewOpenAI creates the OpenAI-backed classifier.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}

	return &OpenAI{
		inner: openai.NewClient(opts...),
		model: model,
	}, nil
}

// Classify sends the message to the chat API and parses the JSON reply.
func (o *OpenAI) Classify(ctx context.Context, msg models.InboundMessage) (models.RoutingDecision, error) {
	resp, err := o.inner.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(msg)),
		},
	})
	if err != nil {
		return models.RoutingDecision{}, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.RoutingDecision{}, fmt.Errorf("%w: empty completion", ErrUnusableOutput)
	}

	return parseRoutingDecision(resp.Choices[0].Message.Content)
}
