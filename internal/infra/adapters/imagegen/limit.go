package imagegen

import (
	"context"

	"ai-image-studio/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ImageGenerator = (*limited)(nil)

type limited struct {
	inner adapter.ImageGenerator
	sem   chan struct{}
}

// NewLimited caps concurrent in-flight generations across all callers.
func NewLimited(inner adapter.ImageGenerator, maxConcurrent int) adapter.ImageGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limited{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limited) Name() string { return l.inner.Name() }

func (l *limited) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Generate(ctx, req)
}
