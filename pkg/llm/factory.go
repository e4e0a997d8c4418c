package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// NewCompleter creates the completer named by cfg.Provider, guarded by a
// circuit breaker. Provider "none" (or empty) returns apperrors.ErrNoTranslator.
func NewCompleter(cfg *Config, logger *zap.Logger) (Completer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		c   Completer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI:
		c, err = NewClient(cfg, logger)
	case ProviderAnthropic:
		c, err = NewAnthropicClient(cfg, logger)
	case ProviderNone, "":
		return nil, apperrors.ErrNoTranslator
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", apperrors.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return WithCircuitBreaker(c, NewCircuitBreaker(DefaultCircuitBreakerConfig()), logger.Named("llm")), nil
}
