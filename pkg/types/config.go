package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "course-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call the generative language service.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API root (default https://api.anthropic.com).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retries after a rate-limited call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxTokens caps the generated output (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Reasoning selects the extended reasoning tier; empty disables it.
	Reasoning ReasoningTier `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
}

// ResearchConfig holds settings for the research stage.
type ResearchConfig struct {
	AIConfig `yaml:",inline"`

	// MaxSearches bounds web search invocations per unit (default 5).
	MaxSearches int `json:"max_searches" yaml:"max_searches"`

	// DBPath is the SQLite file holding committed dossiers.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// AuditConfig holds settings for the answer-bias audit stage.
type AuditConfig struct {
	AIConfig `yaml:",inline"`

	// MinItems is the smallest batch worth auditing (default 5).
	MinItems int `json:"min_items" yaml:"min_items"`
}

// ValidationConfig holds settings for bibliographic identifier resolution.
type ValidationConfig struct {
	HTTPConfig `yaml:",inline"`

	// ResolverBase is the handle-resolution endpoint prefix
	// (default https://doi.org/api/handles/).
	ResolverBase string `json:"resolver_base,omitempty" yaml:"resolver_base,omitempty"`

	// Concurrency bounds parallel resolution checks (default 8).
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Research   ResearchConfig   `json:"research" yaml:"research"`
	Audit      AuditConfig      `json:"audit" yaml:"audit"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`
}
