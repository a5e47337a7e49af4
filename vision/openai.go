package vision

import "context"

// openAIProvider implements Provider for OpenAI's API.
//
// Vision-capable models include gpt-4o, gpt-4o-mini, and gpt-4.1.
//
// API key: set via config or OPENAI_API_KEY env var.
type openAIProvider struct {
	base *openAICompatClient
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Describe(ctx context.Context, req Request) (*Description, error) {
	return p.base.describe(ctx, req)
}
