// Package local is the filesystem storage provider used in development and
// as the fallback tier when GCS is unreachable.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Provider struct {
	dir     string
	baseURL string
}

// New builds a local-disk provider rooted at dir. Served URLs are
// baseURL + "/" + key.
func New(dir, baseURL string) (*Provider, error) {
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &Provider{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Name identifies the provider in tiered-upload errors.
func (p *Provider) Name() string {
	return "local"
}

// Upload writes the object under the storage root. Keys may contain slashes;
// anything escaping the root is rejected.
func (p *Provider) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}

	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	fullPath := filepath.Join(p.dir, cleaned)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %q: %w", key, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", fullPath, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, body); err != nil {
		return "", fmt.Errorf("write %q: %w", fullPath, err)
	}

	return p.baseURL + "/" + filepath.ToSlash(cleaned), nil
}
