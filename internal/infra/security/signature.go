package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-image-studio/internal/domain"
)

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders   = fmt.Errorf("%w: missing webhook headers", domain.ErrUnauthorized)
	ErrInvalidTimestamp = fmt.Errorf("%w: invalid webhook timestamp", domain.ErrUnauthorized)
	ErrStaleTimestamp   = fmt.Errorf("%w: webhook timestamp outside tolerance", domain.ErrUnauthorized)
	ErrInvalidSignature = fmt.Errorf("%w: no matching webhook signature", domain.ErrUnauthorized)
)

// Headers carries the three signed-delivery headers.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

func HeadersFrom(h http.Header) Headers {
	return Headers{
		ID:        h.Get(HeaderID),
		Timestamp: h.Get(HeaderTimestamp),
		Signature: h.Get(HeaderSignature),
	}
}

// Verifier checks HMAC-SHA256 signed webhooks over "{id}.{timestamp}.{body}".
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

type Option func(*Verifier)

func WithClock(now func() time.Time) Option { return func(v *Verifier) { v.now = now } }

func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// NewVerifier decodes the secret. A "whsec_" prefix is stripped and the rest is
// base64; a secret that is not valid base64 is used as raw bytes.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}
	v := &Verifier{key: key, tolerance: DefaultTolerance, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

func DecodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("webhook secret is empty")
	}
	if raw, ok := strings.CutPrefix(secret, secretPrefix); ok {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode webhook secret: %w", err)
		}
		return key, nil
	}
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil {
		return key, nil
	}
	return []byte(secret), nil
}

// Verify returns nil when the delivery is authentic and fresh. Staleness is
// checked before the signature, so a stale delivery is rejected even if signed.
func (v *Verifier) Verify(body []byte, h Headers) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return ErrMissingHeaders
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(h.Timestamp), 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	delta := v.now().Sub(time.Unix(ts, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > v.tolerance {
		return ErrStaleTimestamp
	}

	expected := v.compute(h.ID, h.Timestamp, body)
	for _, candidate := range strings.Fields(h.Signature) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found {
			sig, version = version, signatureVersion
		}
		if version != signatureVersion {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// Sign produces a "v1,<base64>" header value for the given delivery.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) (timestamp, signature string) {
	timestamp = strconv.FormatInt(ts.Unix(), 10)
	mac := v.compute(id, timestamp, body)
	return timestamp, signatureVersion + "," + base64.StdEncoding.EncodeToString(mac)
}

func (v *Verifier) compute(id, timestamp string, body []byte) []byte {
	m := hmac.New(sha256.New, v.key)
	m.Write([]byte(id))
	m.Write([]byte{'.'})
	m.Write([]byte(timestamp))
	m.Write([]byte{'.'})
	m.Write(body)
	return m.Sum(nil)
}
