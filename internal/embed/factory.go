package embed

import (
	"fmt"
	"log/slog"
)

// Provider names accepted by NewEmbedder.
const (
	ProviderTFIDF        = "tfidf"
	ProviderSemanticHash = "semhash"
	ProviderCodeAware    = "code"
)

// Options configures embedder construction.
type Options struct {
	// Provider selects the embedding algorithm: tfidf, semhash, or code.
	Provider string

	// Dimensions is the embedding dimension (default: DefaultDimensions).
	Dimensions int

	// CacheSize enables LRU caching when > 0.
	CacheSize int
}

// NewEmbedder creates an embedder from options.
// Unknown providers are an error; an empty provider defaults to code-aware.
func NewEmbedder(opts Options) (Embedder, error) {
	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	var inner Embedder
	switch opts.Provider {
	case ProviderTFIDF:
		inner = NewTFIDFEmbedder(dims)
	case ProviderSemanticHash:
		inner = NewSemanticHashEmbedder(dims)
	case ProviderCodeAware, "":
		inner = NewCodeAwareEmbedder(dims)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", opts.Provider)
	}

	slog.Debug("created embedder",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	if opts.CacheSize > 0 {
		return NewCachedEmbedder(inner, opts.CacheSize), nil
	}
	return inner, nil
}
