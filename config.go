package annotator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dlambright03/picture-annotations-sub001/docctx"
	"github.com/dlambright03/picture-annotations-sub001/validate"
	"github.com/dlambright03/picture-annotations-sub001/vision"
)

// Config holds all configuration for the annotation pipeline.
type Config struct {
	// Vision configures the description provider.
	Vision vision.Config `json:"vision" yaml:"vision"`

	// Policy holds the alt text validation thresholds. Zero-valued fields
	// fall back to the defaults.
	Policy validate.Policy `json:"policy" yaml:"policy"`

	// Context controls local-context window sizes.
	Context docctx.Config `json:"context" yaml:"context"`

	// MaxContextChars is the merged context character budget.
	MaxContextChars int `json:"max_context_chars" yaml:"max_context_chars"`

	// ExternalContextFile optionally points at a .txt or .md file whose
	// content is prepended to every image's context.
	ExternalContextFile string `json:"external_context_file" yaml:"external_context_file"`

	// Concurrency caps parallel description requests. Default 4.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxImages caps how many images are described per run. Zero means all.
	MaxImages int `json:"max_images" yaml:"max_images"`

	// SkipExisting leaves images that already carry alt text untouched.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing"`

	// LedgerPath is the SQLite run ledger location. Empty disables the
	// ledger; "default" resolves to ~/.ada-annotator/runs.db.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
func DefaultConfig() Config {
	return Config{
		Vision: vision.Config{
			Provider: "ollama",
			Model:    "llama3.2-vision",
			BaseURL:  "http://localhost:11434",
		},
		Policy:          validate.DefaultPolicy(),
		Context:         docctx.DefaultConfig(),
		MaxContextChars: docctx.DefaultMaxChars,
		Concurrency:     4,
	}
}

// LoadConfigFile reads a YAML config file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays provider settings from the environment. Callers load a
// .env file first if one exists; this only reads the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("VISION_PROVIDER"); v != "" {
		c.Vision.Provider = v
	}
	if v := os.Getenv("VISION_MODEL"); v != "" {
		c.Vision.Model = v
	}
	if v := os.Getenv("VISION_BASE_URL"); v != "" {
		c.Vision.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Vision.Provider == "openai" {
		c.Vision.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Vision.Provider == "gemini" {
		c.Vision.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" && c.Vision.Provider == "azure" {
		c.Vision.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" && c.Vision.Provider == "azure" {
		c.Vision.BaseURL = v
	}
	if v := os.Getenv("AZURE_OPENAI_DEPLOYMENT"); v != "" {
		c.Vision.Deployment = v
	}
	if v := os.Getenv("VISION_API_KEY"); v != "" {
		c.Vision.APIKey = v
	}
	if v := os.Getenv("VISION_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Vision.RequestsPerMinute = n
		}
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Vision.Provider == "" {
		return fmt.Errorf("%w: vision provider not set", ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalidConfig)
	}
	if c.MaxContextChars < 0 {
		return fmt.Errorf("%w: max_context_chars must not be negative", ErrInvalidConfig)
	}
	return nil
}

// resolveLedgerPath computes the ledger database path, "" when disabled.
func (c *Config) resolveLedgerPath() string {
	switch c.LedgerPath {
	case "":
		return ""
	case "default":
		home, err := os.UserHomeDir()
		if err != nil {
			return "runs.db"
		}
		return filepath.Join(home, ".ada-annotator", "runs.db")
	default:
		return c.LedgerPath
	}
}
