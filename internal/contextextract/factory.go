package contextextract

import "fmt"

// NewExtractor selects an Extractor implementation from cfg.Provider,
// matching the factory pattern used throughout this codebase for
// swappable providers.
func NewExtractor(cfg Config) (Extractor, error) {
	switch cfg.Provider {
	case "", "disabled":
		return disabledExtractor{}, nil
	case "anthropic":
		return NewAnthropicExtractor(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown extraction provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
