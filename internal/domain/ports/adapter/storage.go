package adapter

import (
	"context"
	"io"
)

// BlobStore is a put/get object service. Put returns a URL that can be handed to clients.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageRehoster copies a generated image into the blob store and returns its new URL.
type ImageRehoster interface {
	Rehost(ctx context.Context, img GeneratedImage, key string) (string, error)
}
