package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	name     string
	failures int
	calls    int
	url      string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("transient failure")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty body")
	}
	return s.url + "/" + key, nil
}

func TestUploadFirstProviderWins(t *testing.T) {
	primary := &stubProvider{name: "primary", url: "https://primary"}
	fallback := &stubProvider{name: "fallback", url: "https://fallback"}
	uploader, err := NewUploader([]Provider{primary, fallback}, 3, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}

	result, err := uploader.Upload(context.Background(), "docs/nin.png", "image/png", []byte("payload"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.URL != "https://primary/docs/nin.png" {
		t.Fatalf("unexpected url %s", result.URL)
	}
	if result.Provider != "primary" {
		t.Fatalf("unexpected provider %s", result.Provider)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback should not be touched, got %d calls", fallback.calls)
	}
}

func TestUploadRetriesThenFallsBack(t *testing.T) {
	primary := &stubProvider{name: "primary", url: "https://primary", failures: 10}
	fallback := &stubProvider{name: "fallback", url: "https://fallback", failures: 1}
	uploader, err := NewUploader([]Provider{primary, fallback}, 2, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}

	result, err := uploader.Upload(context.Background(), "docs/selfie.png", "image/png", []byte("payload"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.URL != "https://fallback/docs/selfie.png" {
		t.Fatalf("unexpected url %s", result.URL)
	}
	if result.Provider != "fallback" {
		t.Fatalf("unexpected provider %s", result.Provider)
	}
	if primary.calls != 2 {
		t.Fatalf("expected 2 primary attempts, got %d", primary.calls)
	}
	// the fallback's first attempt fails, the retry succeeds with a rewound body
	if fallback.calls != 2 {
		t.Fatalf("expected 2 fallback attempts, got %d", fallback.calls)
	}
}

func TestUploadAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "primary", failures: 10}
	fallback := &stubProvider{name: "fallback", failures: 10}
	uploader, err := NewUploader([]Provider{primary, fallback}, 2, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}

	_, err = uploader.Upload(context.Background(), "docs/poa.png", "image/png", []byte("payload"))
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if !strings.Contains(err.Error(), "primary") || !strings.Contains(err.Error(), "fallback") {
		t.Fatalf("combined error should name both providers: %v", err)
	}
}

func TestNewUploaderRequiresProviders(t *testing.T) {
	if _, err := NewUploader(nil, 3, time.Millisecond, nil); err == nil {
		t.Fatal("expected error for empty provider list")
	}
}
