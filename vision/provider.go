// Package vision obtains image descriptions from multimodal model services.
// All providers speak the OpenAI-compatible chat completions protocol; they
// differ only in endpoint shape and authentication.
package vision

import (
	"context"
	"fmt"
	"time"
)

// Provider is the interface for description services. Implementations are
// safe for concurrent use; the pipeline fans requests out across images.
type Provider interface {
	// Describe requests alt text for one image given its merged context.
	Describe(ctx context.Context, req Request) (*Description, error)
}

// Request carries one image and its merged context to the service.
type Request struct {
	ImageData []byte
	Format    string // declared format, e.g. "PNG", "JPEG"
	Context   string // merged context string, already budgeted
}

// Description is the service's answer for one image, with usage accounting.
type Description struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	Duration         time.Duration
}

// Config configures a description provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // openai, azure, ollama, gemini, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`

	// Azure-only settings.
	Deployment string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`

	// RequestsPerMinute throttles outbound calls. Zero disables throttling.
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`

	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// NewProvider creates a description provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "azure":
		return NewAzure(cfg)
	case "ollama":
		return NewOllama(cfg), nil
	case "gemini":
		return NewGemini(cfg), nil
	case "custom":
		return NewOpenAICompat(cfg), nil
	case "":
		return nil, fmt.Errorf("vision provider not specified")
	default:
		return nil, fmt.Errorf("unknown vision provider: %s", cfg.Provider)
	}
}
