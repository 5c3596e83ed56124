package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/whitman-labs/parley/internal/domain"
)

// VertexClient is a completion client on Vertex AI (Gemini), for
// deployments that keep everything inside GCP.
type VertexClient struct {
	client      *genai.Client
	modelName   string
	temperature *float64
	maxTokens   *int
}

// VertexConfig holds the project wiring and request shaping.
type VertexConfig struct {
	ProjectID   string
	Location    string
	Model       string
	Temperature *float64
	MaxTokens   *int
}

func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("ProjectID and Location are required for the Vertex client")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:      client,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete implements domain.CompletionClient using Vertex AI.
func (v *VertexClient) Complete(ctx context.Context, transcript []domain.Message) (domain.Message, error) {
	var contents []*genai.Content
	for _, m := range transcript {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.Role(genai.RoleModel)
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if v.temperature != nil {
		t := float32(*v.temperature)
		cfg.Temperature = &t
	}
	if v.maxTokens != nil {
		cfg.MaxOutputTokens = int32(*v.maxTokens)
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: vertex generate content: %s", domain.ErrUpstream, err)
	}

	text := res.Text()
	if text == "" {
		return domain.Message{}, fmt.Errorf("%w: vertex returned empty text", domain.ErrUpstream)
	}

	return domain.Message{Role: domain.RoleAssistant, Content: text}, nil
}
