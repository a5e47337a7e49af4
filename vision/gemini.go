package vision

import "context"

// geminiProvider implements Provider for Google's Gemini API using the
// OpenAI-compatible endpoint. Gemini uses a different path prefix than
// standard OpenAI providers (no /v1).
//
// Vision-capable models include gemini-2.5-flash and gemini-2.5-pro.
//
// API key: set via config or GEMINI_API_KEY env var.
type geminiProvider struct {
	base *openAICompatClient
}

// NewGemini creates a provider for Google Gemini.
func NewGemini(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &geminiProvider{base: newOpenAICompatClientPrefix(cfg, "")}
}

func (p *geminiProvider) Describe(ctx context.Context, req Request) (*Description, error) {
	return p.base.describe(ctx, req)
}
