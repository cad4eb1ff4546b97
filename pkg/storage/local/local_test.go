package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUploadWritesFileAndBuildsURL(t *testing.T) {
	dir := t.TempDir()
	provider, err := New(dir, "http://localhost:8080/files/")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	url, err := provider.Upload(context.Background(), "verification/abc/nin.png", "image/png", strings.NewReader("doc-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "http://localhost:8080/files/verification/abc/nin.png" {
		t.Fatalf("unexpected url %s", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "verification", "abc", "nin.png"))
	if err != nil {
		t.Fatalf("read uploaded file: %v", err)
	}
	if string(data) != "doc-bytes" {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestUploadRejectsEscapingKeys(t *testing.T) {
	provider, err := New(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	for _, key := range []string{"../evil", "/abs/path", ""} {
		if _, err := provider.Upload(context.Background(), key, "", strings.NewReader("x")); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}
