package ollama

import (
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// ResearchOllamaClient implements the ai.Client interface using a locally
// hosted Ollama server as the backend.
type ResearchOllamaClient struct {
	chatModel string

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewResearchOllamaClientParams contains configuration options for creating
// a new ResearchOllamaClient.
type NewResearchOllamaClientParams struct {
	ChatModel string

	BaseURL string
	ApiKey  string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewResearchOllamaClient creates a new Ollama-based AI client. It connects
// to the server at the given BaseURL (or the default if empty) and uses the
// configured chat model for all research completions.
func NewResearchOllamaClient(
	params NewResearchOllamaClientParams,
) (*ResearchOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	return &ResearchOllamaClient{
		chatModel: params.ChatModel,

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}
