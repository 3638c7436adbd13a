// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/course-engine/internal/doi"
	"github.com/pdiddy/course-engine/internal/invoke"
	"github.com/pdiddy/course-engine/internal/llm"
	"github.com/pdiddy/course-engine/internal/secrets"
	"github.com/pdiddy/course-engine/internal/store"
	"github.com/pdiddy/course-engine/pkg/types"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultUserAgent = "course-engine/0.1"
)

func setDefaults() {
	viper.SetDefault("model", defaultModel)
	viper.SetDefault("max_retries", 3)
	viper.SetDefault("timeout", 10*time.Minute)
	viper.SetDefault("user_agent", defaultUserAgent)

	viper.SetDefault("research.max_searches", 5)
	viper.SetDefault("research.max_tokens", 16000)
	viper.SetDefault("research.db_path", store.DefaultPath)

	viper.SetDefault("audit.min_items", 5)
	viper.SetDefault("audit.max_tokens", 4096)

	viper.SetDefault("validation.timeout", 15*time.Second)
	viper.SetDefault("validation.concurrency", 8)
}

// pipelineConfig assembles stage settings from flags, environment, config
// file, and the secrets directory, in that order of precedence.
func pipelineConfig() types.PipelineConfig {
	http := types.HTTPConfig{
		Timeout:   viper.GetDuration("timeout"),
		UserAgent: viper.GetString("user_agent"),
	}
	apiKey := viper.GetString("api_key")
	if apiKey == "" {
		apiKey = loadedSecrets.Get(secrets.AnthropicAPIKey)
	}
	ai := func(section string) types.AIConfig {
		return types.AIConfig{
			HTTPConfig: http,
			Model:      viper.GetString("model"),
			APIKey:     apiKey,
			BaseURL:    viper.GetString("base_url"),
			MaxRetries: viper.GetInt("max_retries"),
			MaxTokens:  viper.GetInt(section + ".max_tokens"),
			Reasoning:  types.ReasoningTier(viper.GetString("reasoning")),
		}
	}

	userAgent := http.UserAgent
	if email := loadedSecrets.Get(secrets.ContactEmail); email != "" {
		userAgent = fmt.Sprintf("%s (mailto:%s)", userAgent, email)
	}

	return types.PipelineConfig{
		Research: types.ResearchConfig{
			AIConfig:    ai("research"),
			MaxSearches: viper.GetInt("research.max_searches"),
			DBPath:      viper.GetString("research.db_path"),
		},
		Audit: types.AuditConfig{
			AIConfig: ai("audit"),
			MinItems: viper.GetInt("audit.min_items"),
		},
		Validation: types.ValidationConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("validation.timeout"),
				UserAgent: userAgent,
			},
			ResolverBase: viper.GetString("validation.resolver_base"),
			Concurrency:  viper.GetInt("validation.concurrency"),
		},
	}
}

// clients keeps one generation client per credential for the process.
var clients = llm.NewClientCache(func(apiKey string) *llm.Client {
	cfg := pipelineConfig().Research.AIConfig
	cfg.APIKey = apiKey
	return llm.NewClient(cfg, logger)
})

// newInvoker returns a retrying invoker for the stage config.
func newInvoker(cfg types.AIConfig) (*invoke.Invoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key: set COURSE_ENGINE_API_KEY or write .secrets/%s", secrets.AnthropicAPIKey)
	}
	if !cfg.Reasoning.Valid() {
		return nil, fmt.Errorf("unknown reasoning tier %q: use low, medium, or high", cfg.Reasoning)
	}
	return &invoke.Invoker{
		Generator:  clients.Get(cfg.APIKey),
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	}, nil
}

func newValidator(cfg types.ValidationConfig) *doi.Validator {
	return doi.NewValidator(cfg.ResolverBase, cfg.UserAgent, cfg.Timeout, cfg.Concurrency, logger)
}
