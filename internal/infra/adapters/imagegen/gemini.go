package imagegen

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/retry"
)

var _ adapter.ImageGenerator = (*GeminiGenerator)(nil)

type GeminiGenerator struct {
	client *genai.Client
	model  string
	policy retry.Policy
}

// NewGeminiGenerator creates an Imagen-backed generator using the official SDK.
func NewGeminiGenerator(ctx context.Context, apiKey, baseURL, model string, policy retry.Policy) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiGenerator{client: c, model: model, policy: policy}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	n := req.Count
	if n <= 0 {
		n = 1
	}
	resp, err := retry.DoValue(ctx, g.policy, func(ctx context.Context) (*genai.GenerateImagesResponse, error) {
		return g.client.Models.GenerateImages(ctx, g.model, req.Prompt, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w: %w", domain.ErrUpstream, err)
	}

	out := make([]adapter.GeneratedImage, 0, n)
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mime := gi.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		out = append(out, adapter.GeneratedImage{Data: gi.Image.ImageBytes, MIMEType: mime})
		if len(out) == n {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gemini: no images returned: %w", domain.ErrUpstream)
	}
	return out, nil
}
