package answer

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid answer configuration")

// Config is the decision logic's configuration surface.
type Config struct {
	// SimilarityThreshold is the minimum top-hit similarity required to generate
	SimilarityThreshold float64 `toml:"similarity_threshold"`

	// TopK is the number of hits admitted into the prompt (ties at the top may add more)
	TopK int `toml:"top_k"`

	// SearchK is how many hits are requested from the index (0 = 2 * TopK)
	SearchK int `toml:"search_k"`

	// MinQuoteLength is the shortest quoted span, in runes, that can ground an answer
	MinQuoteLength int `toml:"min_quote_length"`
}

// DefaultConfig returns the tuned defaults for short FAQ documents.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.28,
		TopK:                4,
		MinQuoteLength:      DefaultMinQuoteLength,
	}
}

// SearchDepth is the number of hits to request from retrieval.
func (c Config) SearchDepth() int {
	if c.SearchK >= c.TopK && c.SearchK > 0 {
		return c.SearchK
	}
	return 2 * c.TopK
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold %v outside [-1, 1]", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.SearchK != 0 && c.SearchK < c.TopK {
		return fmt.Errorf("%w: search_k %d below top_k %d", ErrInvalidConfig, c.SearchK, c.TopK)
	}
	if c.MinQuoteLength < 1 {
		return fmt.Errorf("%w: min_quote_length must be at least 1, got %d", ErrInvalidConfig, c.MinQuoteLength)
	}
	return nil
}
