package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spotixhq/spotix-backend/pkg/config"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

const systemPrompt = "You are a copywriter for a ticketing marketplace. " +
	"Rewrite the event description to be vivid and concise. " +
	"Return only the rewritten description, no preamble."

// Input carries the event fields the model sees.
type Input struct {
	EventName   string `json:"event_name"`
	Venue       string `json:"venue,omitempty"`
	City        string `json:"city,omitempty"`
	Description string `json:"description"`
}

// Service rewrites event descriptions through an OpenAI-compatible API.
// Enhancement is strictly best-effort: any failure degrades to the original
// description and never surfaces an error to the caller.
type Service interface {
	EnhanceDescription(ctx context.Context, input Input) string
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type service struct {
	client httpDoer
	cfg    config.OpenAIConfig
	logg   *logger.Logger
}

// NewService builds the enhancement service. A missing API key is allowed;
// every call then degrades immediately.
func NewService(cfg config.OpenAIConfig, logg *logger.Logger) (Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logg:   logg,
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *service) EnhanceDescription(ctx context.Context, input Input) string {
	if strings.TrimSpace(input.Description) == "" {
		return input.Description
	}
	if s.cfg.APIKey == "" {
		return input.Description
	}

	enhanced, err := s.callModel(ctx, input)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "description enhancement degraded to original")
		return input.Description
	}
	if strings.TrimSpace(enhanced) == "" {
		return input.Description
	}
	return enhanced
}

func (s *service) callModel(ctx context.Context, input Input) (string, error) {
	prompt, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(prompt)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("model returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
