package llm

import (
	"context"
	"fmt"

	"github.com/whitman-labs/parley/internal/domain"
)

// MockClient is a canned completion client for local mode and tests.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Complete(_ context.Context, transcript []domain.Message) (domain.Message, error) {
	last := ""
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == domain.RoleUser {
			last = transcript[i].Content
			break
		}
	}

	return domain.Message{
		Role:    domain.RoleAssistant,
		Content: fmt.Sprintf("You said %q. Tell me more about that.", last),
	}, nil
}
