package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.BlobStore = (*MemoryStore)(nil)
	_ http.Handler      = (*MemoryStore)(nil)
)

type memoryObject struct {
	body        []byte
	contentType string
}

// MemoryStore is used for local runs without a bucket. It serves its own
// objects over HTTP, so the URLs Put returns resolve once the store is
// mounted under baseURL.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]memoryObject{}}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{body: b, contentType: contentType}
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, ok := m.lookup(key)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

// ServeHTTP answers GET and HEAD for the object named by the request path.
// Mount it with http.StripPrefix so the path is the bare key.
func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	obj, ok := m.lookup(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	ct := obj.contentType
	if ct == "" {
		ct = http.DetectContentType(obj.body)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(obj.body)
	}
}

func (m *MemoryStore) lookup(key string) (memoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}
