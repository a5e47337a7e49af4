package vision

import "context"

// ollamaProvider implements Provider for Ollama's OpenAI-compatible API.
// Vision-capable local models include llava and llama3.2-vision.
type ollamaProvider struct {
	base *openAICompatClient
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	return &ollamaProvider{base: newOpenAICompatClient(cfg)}
}

func (p *ollamaProvider) Describe(ctx context.Context, req Request) (*Description, error) {
	return p.base.describe(ctx, req)
}
