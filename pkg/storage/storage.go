// Package storage uploads verification documents. Providers are tried in
// order; the first that accepts the object wins. GCS is primary, local disk
// is the dev/offline fallback.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/spotixhq/spotix-backend/pkg/logger"
)

// Provider stores an object and returns its public URL.
type Provider interface {
	Name() string
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Uploader fans uploads across providers with per-provider retry.
type Uploader struct {
	providers []Provider
	attempts  uint64
	backoff   time.Duration
	logg      *logger.Logger
}

// NewUploader builds a tiered uploader. Providers are tried in the order given.
func NewUploader(providers []Provider, attempts int, backoff time.Duration, logg *logger.Logger) (*Uploader, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one storage provider is required")
	}
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Uploader{
		providers: providers,
		attempts:  uint64(attempts),
		backoff:   backoff,
		logg:      logg,
	}, nil
}

// UploadResult names the provider that accepted the object so callers can
// record where a document actually landed.
type UploadResult struct {
	URL      string
	Provider string
}

// Upload stores the object with the first provider that succeeds. The body
// must be rewindable across providers, so callers hand in the raw bytes.
func (u *Uploader) Upload(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error) {
	var errs []error
	for _, provider := range u.providers {
		url, err := u.uploadWithRetry(ctx, provider, key, contentType, data)
		if err == nil {
			return &UploadResult{URL: url, Provider: provider.Name()}, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
		if u.logg != nil {
			fields := map[string]any{"provider": provider.Name(), "key": key}
			u.logg.Warn(u.logg.WithFields(ctx, fields), "storage provider failed, trying next")
		}
	}
	return nil, fmt.Errorf("all storage providers failed: %w", multierr.Combine(errs...))
}

func (u *Uploader) uploadWithRetry(ctx context.Context, provider Provider, key, contentType string, data []byte) (string, error) {
	var url string
	backoff := retry.WithMaxRetries(u.attempts-1, retry.NewExponential(u.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		uploaded, err := provider.Upload(ctx, key, contentType, bytes.NewReader(data))
		if err != nil {
			return retry.RetryableError(err)
		}
		url = uploaded
		return nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}
