package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/retry"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ImageGenerator = (*OpenAIGenerator)(nil)

// OpenAIGenerator implements adapter.ImageGenerator with the Images API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
	policy retry.Policy
}

func NewOpenAIGenerator(apiKey, model string, policy retry.Policy, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "dall-e-3"
	}
	// retries are driven by the policy, not the SDK
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &OpenAIGenerator{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
		policy: policy,
	}, nil
}

func (o *OpenAIGenerator) Name() string { return "openai" }

func (o *OpenAIGenerator) Generate(ctx context.Context, req adapter.ImageRequest) ([]adapter.GeneratedImage, error) {
	n := req.Count
	if n <= 0 {
		n = 1
	}
	params := openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(o.model),
		N:      openai.Int(int64(n)),
		Size:   openai.ImageGenerateParamsSize1024x1024,
	}
	resp, err := retry.DoValue(ctx, o.policy, func(ctx context.Context) (*openai.ImagesResponse, error) {
		r, err := o.client.Images.Generate(ctx, params)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) && (apiErr.StatusCode >= 500 || apiErr.StatusCode == 429) {
				return nil, retry.Transient(err)
			}
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai generate: %w: %w", domain.ErrUpstream, err)
	}

	out := make([]adapter.GeneratedImage, 0, len(resp.Data))
	for _, img := range resp.Data {
		switch {
		case img.URL != "":
			out = append(out, adapter.GeneratedImage{URL: img.URL})
		case img.B64JSON != "":
			b, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("openai: decode image: %w", err)
			}
			out = append(out, adapter.GeneratedImage{Data: b, MIMEType: "image/png"})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("openai: no images returned: %w", domain.ErrUpstream)
	}
	return out, nil
}
