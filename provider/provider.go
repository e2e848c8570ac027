package provider

import (
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/itinerary/config"
	"github.com/mohammad-safakhou/itinerary/internal/agent/core"
	openai_provider "github.com/mohammad-safakhou/itinerary/provider/openai"
)

// Client represents different LLM providers
type Client string

// OpenAI covers every OpenAI-compatible endpoint, Groq included.
const OpenAI Client = "openai"

// NewAgent builds the tool-using agent described by cfg. The credential must
// already be resolvable; see config.Config.RequireCredential.
func NewAgent(cfg config.LLMConfig, logger *zap.Logger) (core.Agent, error) {
	switch Client(cfg.Type) {
	case OpenAI, "":
		return openai_provider.NewAgent(openai_provider.Options{
			APIKey:        cfg.Credential(),
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
			MaxToolRounds: cfg.MaxToolRounds,
			Timeout:       cfg.Timeout,
		}, logger)
	default:
		return nil, &config.ConfigurationError{Key: "llm.type", Reason: "unsupported provider " + cfg.Type}
	}
}
