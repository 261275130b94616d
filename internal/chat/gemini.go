package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"solar-system-ai/internal/config"
)

// GeminiRelay answers through the Gemini API. The client is created on first
// use so a missing key surfaces as a per-request failure.
type GeminiRelay struct {
	cfg    config.RelayConfig
	logger *zap.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiRelay creates a relay from configuration
func NewGeminiRelay(cfg config.RelayConfig, logger *zap.Logger) *GeminiRelay {
	return &GeminiRelay{cfg: cfg, logger: logger}
}

func (r *GeminiRelay) getClient(ctx context.Context) (*genai.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil {
		return r.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  r.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if r.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: r.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	r.client = client
	return client, nil
}

// Reply implements Relay
func (r *GeminiRelay) Reply(ctx context.Context, body, message string) (string, error) {
	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, r.cfg.Model, genai.Text(Prompt(body, message)), &genai.GenerateContentConfig{
		MaxOutputTokens: int32(r.cfg.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrNoCompletion
	}
	r.logger.Debug("Gemini completion received", zap.String("body", body), zap.Int("reply_len", len(reply)))
	return reply, nil
}
