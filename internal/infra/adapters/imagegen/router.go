package imagegen

import (
	"context"
	"strings"

	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.ImageGenerator = (*Router)(nil)

// Router sends requests for a trained model version to the training provider
// and everything else to the configured default provider.
type Router struct {
	defaultProvider string
	byProvider      map[string]adapter.ImageGenerator
	trained         adapter.ImageGenerator
}

// NewRouter does not pick models; each provider adapter owns its default model.
func NewRouter(defaultProvider string, byProvider map[string]adapter.ImageGenerator, trained adapter.ImageGenerator) *Router {
	return &Router{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
		trained:         trained,
	}
}

func (r *Router) Name() string { return "router" }

func (r *Router) pick(req adapter.ImageRequest) adapter.ImageGenerator {
	if req.ModelVersion != "" && r.trained != nil {
		return r.trained
	}
	if g := r.byProvider[r.defaultProvider]; g != nil {
		return g
	}
	// last resort: first available
	for _, g := range r.byProvider {
		if g != nil {
			return g
		}
	}
	return r.trained
}

func (r *Router) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	g := r.pick(req)
	if g == nil {
		return nil, errNoProvider
	}
	return g.Generate(ctx, req)
}
