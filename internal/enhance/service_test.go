package enhance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/spotixhq/spotix-backend/pkg/config"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "enhance-test", Level: zerolog.Disabled})
}

func newEnhanceSvc(t *testing.T, baseURL, apiKey string) Service {
	t.Helper()
	svc, err := NewService(config.OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   "gpt-4o-mini",
		Timeout: 2 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestEnhanceDescriptionHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"A night to remember."}}]}`))
	}))
	defer server.Close()

	svc := newEnhanceSvc(t, server.URL, "test-key")
	got := svc.EnhanceDescription(context.Background(), Input{
		EventName:   "Lagos Jazz Night",
		Description: "jazz show",
	})
	if got != "A night to remember." {
		t.Fatalf("unexpected enhancement %q", got)
	}
}

func TestEnhanceDescriptionDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc := newEnhanceSvc(t, server.URL, "test-key")
	got := svc.EnhanceDescription(context.Background(), Input{
		EventName:   "Lagos Jazz Night",
		Description: "jazz show",
	})
	if got != "jazz show" {
		t.Fatalf("expected original description, got %q", got)
	}
}

func TestEnhanceDescriptionDegradesOnBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	svc := newEnhanceSvc(t, server.URL, "test-key")
	got := svc.EnhanceDescription(context.Background(), Input{Description: "jazz show"})
	if got != "jazz show" {
		t.Fatalf("expected original description, got %q", got)
	}
}

func TestEnhanceDescriptionWithoutAPIKey(t *testing.T) {
	svc := newEnhanceSvc(t, "http://unused.invalid", "")
	got := svc.EnhanceDescription(context.Background(), Input{Description: "jazz show"})
	if got != "jazz show" {
		t.Fatalf("expected original description, got %q", got)
	}
}
