package remote

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/config"
)

// Adapter names accepted in remote.adapter.
const (
	AdapterBackgroundRemoval = "background_removal"
	AdapterGenerativeReplace = "generative_replace"
)

// New builds the adapter selected by configuration, wrapped in the outbound
// rate limiter. A missing credential is not an error here: the adapter reports
// it as Unconfigured when used, so the service still starts and tells the
// operator what to fix.
func New(cfg config.RemoteConfig, logger *zap.Logger) (Processor, error) {
	credential := NewCredential(cfg.APIKey)

	var p Processor
	switch cfg.Adapter {
	case "", AdapterBackgroundRemoval:
		p = NewRemoveBG(credential, RemoveBGConfig{
			Endpoint: cfg.RemoveBG.Endpoint,
			Size:     cfg.RemoveBG.Size,
			Timeout:  cfg.Timeout,
		}, logger)
	case AdapterGenerativeReplace:
		p = NewGenerative(credential, GenerativeConfig{
			BaseURL: cfg.Generative.BaseURL,
			Model:   cfg.Generative.Model,
			Size:    cfg.Generative.Size,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown remote adapter %q (want %s or %s)",
			cfg.Adapter, AdapterBackgroundRemoval, AdapterGenerativeReplace)
	}

	if credential.IsZero() {
		logger.Warn("no API key configured, processing will fail until API_KEY is set",
			zap.String("adapter", p.Name()))
	}

	return WithRateLimit(p, cfg.RatePerMinute), nil
}
