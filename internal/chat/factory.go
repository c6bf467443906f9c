package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Provider      string
	URL           string
	Timeout       time.Duration
	GeminiAPIKey  string
	GeminiModel   string
	BedrockRegion string
	BedrockModel  string
}

// NewProvider creates the configured provider. "none" and "" return a nil
// provider, which makes the service answer from the fallback only.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		logger.Info("chat provider disabled, using scripted replies")
		return nil, nil
	case "upstream", "http":
		logger.Info("using upstream chat provider", zap.String("url", cfg.URL))
		p, err := NewUpstreamProvider(cfg.URL, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini", "google":
		logger.Info("using Gemini chat provider", zap.String("model", cfg.GeminiModel))
		p, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "bedrock", "aws":
		logger.Info("using Bedrock chat provider", zap.String("model", cfg.BedrockModel), zap.String("region", cfg.BedrockRegion))
		p, err := NewBedrockProvider(ctx, cfg.BedrockRegion, cfg.BedrockModel)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown chat provider: %s (supported: none, upstream, gemini, bedrock)", cfg.Provider)
	}
}
