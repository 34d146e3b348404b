package adapter

import "context"

// GeneratedImage is one provider result. Either URL or Data is set.
type GeneratedImage struct {
	URL      string
	Data     []byte
	MIMEType string
}

type ImageRequest struct {
	Prompt string
	Count  int
	// ModelVersion selects a user-trained model; empty uses the provider default.
	ModelVersion string
}

// ImageGenerator is the port for the remote image-generation call.
type ImageGenerator interface {
	Name() string
	Generate(ctx context.Context, req ImageRequest) ([]GeneratedImage, error)
}

// TokenCounter estimates the model token length of a prompt.
type TokenCounter interface {
	Count(text string) int
}
