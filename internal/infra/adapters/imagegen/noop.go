package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
)

var errNoProvider = fmt.Errorf("no image provider configured: %w", domain.ErrUpstream)

var _ adapter.ImageGenerator = (*Noop)(nil)

// Noop returns placeholder URLs for local/dev runs without provider keys.
type Noop struct {
	log *zerolog.Logger
}

func NewNoop(log *zerolog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	if req.Prompt == "" {
		return nil, errors.New("noop: empty prompt")
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	n.log.Debug().Int("count", count).Str("model_version", req.ModelVersion).Msg("noop image generation")
	out := make([]adapter.GeneratedImage, count)
	for i := range out {
		out[i] = adapter.GeneratedImage{URL: fmt.Sprintf("https://placehold.co/1024x1024?text=%d", i+1)}
	}
	return out, nil
}
