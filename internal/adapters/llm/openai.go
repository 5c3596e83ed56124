package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/whitman-labs/parley/internal/domain"
)

// OpenAIClient talks to any OpenAI-compatible completion endpoint
// (DeepSeek, a local proxy, OpenAI itself). The full transcript is sent on
// every call; exactly one assistant message comes back.
type OpenAIClient struct {
	llm         llms.Model
	temperature *float64
	maxTokens   *int
}

// OpenAIConfig holds the request shaping for the endpoint.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required for the OpenAI-compatible client")
	}

	client, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &OpenAIClient{
		llm:         client,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete implements domain.CompletionClient. Every failure flavor (auth,
// rate limit, network, malformed response) is classified Upstream.
func (c *OpenAIClient) Complete(ctx context.Context, transcript []domain.Message) (domain.Message, error) {
	msgs := make([]llms.MessageContent, 0, len(transcript))
	for _, m := range transcript {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}

	var opts []llms.CallOption
	if c.temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.temperature))
	}
	if c.maxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*c.maxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: generate content: %s", domain.ErrUpstream, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return domain.Message{}, fmt.Errorf("%w: empty completion response", domain.ErrUpstream)
	}

	return domain.Message{
		Role:    domain.RoleAssistant,
		Content: resp.Choices[0].Content,
	}, nil
}
