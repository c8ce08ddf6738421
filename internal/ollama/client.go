package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	// DefaultModel is the recommended embedding model
	DefaultModel = "nomic-embed-text"
	// DefaultURL is the default Ollama API endpoint
	DefaultURL = "http://localhost:11434"
)

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a client for the Ollama server at rawURL
func NewClient(rawURL, model string) (*Client, error) {
	if rawURL == "" {
		rawURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}

	return &Client{
		client: api.NewClient(base, &http.Client{Timeout: 60 * time.Second}),
		model:  model,
	}, nil
}

// IsAvailable checks if Ollama is running and accessible
func IsAvailable(ctx context.Context, rawURL string) bool {
	if rawURL == "" {
		rawURL = DefaultURL
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateEmbedding generates an embedding vector for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := c.client.Embed(ctx, &api.EmbedRequest{
		Model: c.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	embedding32 := resp.Embeddings[0]
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}
	return embedding64, nil
}

// CheckModel checks if the configured model has been pulled
func (c *Client) CheckModel(ctx context.Context) error {
	listResp, err := c.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	for _, model := range listResp.Models {
		if model.Name == c.model || model.Name == c.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model '%s' not found - run: ollama pull %s", c.model, c.model)
}

// Model returns the model being used
func (c *Client) Model() string {
	return c.model
}
