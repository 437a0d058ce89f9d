// Package ai adapts the go-llms engine to the turn pipeline: it builds the
// recruiter agent for a job, converts the engine's update stream into the
// tagged event sequence the rest of the system consumes, and runs the
// one-shot generations used by batch enrichment.
package ai

import (
	"context"
	"fmt"

	"github.com/flitsinc/go-llms/anthropic"
	"github.com/flitsinc/go-llms/google"
	"github.com/flitsinc/go-llms/llms"
	"github.com/flitsinc/go-llms/openai"
	llmtools "github.com/flitsinc/go-llms/tools"

	"github.com/hireloop/hireloop/internal/candidates"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
}

// Searcher looks up candidate profiles in an external pool. The provider
// behind it is a black box.
type Searcher interface {
	SearchProfiles(ctx context.Context, query string, limit int) ([]map[string]any, error)
}

type Client struct {
	config     Config
	candidates *candidates.Service

	// Searcher enables the agent's profile search tool; nil disables it.
	Searcher Searcher
}

func NewClient(cfg Config, cands *candidates.Service) (*Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	return &Client{config: cfg, candidates: cands}, nil
}

// newLLM builds a fresh engine session; go-llms sessions accumulate state, so
// every turn and every derivation gets its own.
func (c *Client) newLLM(tools ...llmtools.Tool) (*llms.LLM, error) {
	cfg := c.config

	var provider llms.Provider
	switch cfg.Provider {
	case "openai-responses":
		provider = openai.NewResponsesAPI(cfg.APIKey, cfg.Model)
	case "openai-chat":
		provider = openai.NewChatCompletionsAPI(cfg.APIKey, cfg.Model)
	case "anthropic":
		provider = anthropic.New(cfg.APIKey, cfg.Model)
	case "google":
		provider = google.New(cfg.Model).WithGeminiAPI(cfg.APIKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	if len(tools) > 0 {
		return llms.New(provider, tools...), nil
	}
	return llms.New(provider), nil
}
