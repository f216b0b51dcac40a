package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa/internal/postprocessors/identity"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("identity", func(map[string]any) (driven.PostProcessor, error) {
		return identity.New(), nil
	})
}

// DefaultProcessors is the standard pipeline order.
var DefaultProcessors = []string{"chunker", "identity"}

// NewDefaultPipeline builds the standard chunking pipeline from index settings.
func NewDefaultPipeline(settings domain.IndexSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	cfg := map[string]map[string]any{
		"chunker": {
			"chunk_size": settings.ChunkSize,
			"overlap":    settings.ChunkOverlap,
		},
	}

	p := NewPipeline()
	for _, name := range DefaultProcessors {
		proc, err := r.Build(name, cfg[name])
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 800)
//   - overlap (int): Overlapping characters between chunks (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
