package openai

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ResearchOpenAIClient talks to an OpenAI-compatible chat endpoint. It is the
// default model backend of the research agents.
type ResearchOpenAIClient struct {
	chatModel string

	Client *openai.Client
}

// NewResearchOpenAIClientParams defines the configuration for creating a
// ResearchOpenAIClient. BaseURL may point at any OpenAI-compatible server.
type NewResearchOpenAIClientParams struct {
	ChatModel string
	BaseURL   string
	APIKey    string
}

// NewResearchOpenAIClient creates a client for the configured endpoint.
func NewResearchOpenAIClient(params NewResearchOpenAIClientParams) *ResearchOpenAIClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &ResearchOpenAIClient{
		chatModel: params.ChatModel,
		Client:    &client,
	}
}
