package vision

import (
	"context"
	"fmt"
	"strings"
)

// azureProvider implements Provider for Azure OpenAI deployments. Azure
// addresses a named deployment rather than a model, authenticates with an
// api-key header, and requires an api-version query parameter.
type azureProvider struct {
	base *openAICompatClient
}

// NewAzure creates a provider for an Azure OpenAI deployment.
func NewAzure(cfg Config) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("azure provider requires an endpoint base URL")
	}
	deployment := cfg.Deployment
	if deployment == "" {
		deployment = cfg.Model
	}
	if deployment == "" {
		return nil, fmt.Errorf("azure provider requires a deployment name")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-06-01"
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	base := newOpenAICompatClientPrefix(cfg, "/openai/deployments/"+deployment)
	base.authHeader = "api-key"
	base.query = "api-version=" + cfg.APIVersion
	return &azureProvider{base: base}, nil
}

func (p *azureProvider) Describe(ctx context.Context, req Request) (*Description, error) {
	return p.base.describe(ctx, req)
}
