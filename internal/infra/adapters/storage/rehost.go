package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/retry"
)

var _ adapter.ImageRehoster = (*Rehoster)(nil)

const maxImageBytes = 32 << 20

// Rehoster downloads provider images (or takes inline bytes) and stores them in
// the blob store. Connection-class failures are retried under the policy.
type Rehoster struct {
	store  adapter.BlobStore
	http   *http.Client
	policy retry.Policy
}

func NewRehoster(store adapter.BlobStore, policy retry.Policy) *Rehoster {
	return &Rehoster{store: store, http: &http.Client{}, policy: policy}
}

func (r *Rehoster) WithHTTPClient(h *http.Client) *Rehoster {
	r.http = h
	return r
}

func (r *Rehoster) Rehost(ctx context.Context, img adapter.GeneratedImage, key string) (string, error) {
	return retry.DoValue(ctx, r.policy, func(ctx context.Context) (string, error) {
		data, contentType := img.Data, img.MIMEType
		if len(data) == 0 {
			if img.URL == "" {
				return "", errors.New("rehost: image has neither url nor data")
			}
			var err error
			if data, contentType, err = r.fetch(ctx, img.URL); err != nil {
				return "", err
			}
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		return r.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	})
}

func (r *Rehoster) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("rehost: fetch %s: http %d", url, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, "", retry.Transient(err)
		}
		return nil, "", err
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(b) > maxImageBytes {
		return nil, "", fmt.Errorf("rehost: image larger than %d bytes", maxImageBytes)
	}
	return b, resp.Header.Get("Content-Type"), nil
}
