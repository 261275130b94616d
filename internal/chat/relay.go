// Package chat relays user messages to a body's conversational voice and
// keeps the transcript of the open conversation.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/config"
)

// FailureMessage is the only diagnostic shown to users when a relay fails
const FailureMessage = "Something went wrong with the AI."

var (
	// ErrNoCompletion is returned when the completion service sends no text
	ErrNoCompletion = errors.New("no completion returned")
	// ErrEmptyMessage is returned for blank user input
	ErrEmptyMessage = errors.New("empty message")
	// ErrNoConversation is returned when sending with no panel open
	ErrNoConversation = errors.New("no conversation open")
)

// StatusError is a non-2xx answer from the completion service
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion request failed with status %d: %s", e.Code, e.Body)
}

// Relay answers a user message in the voice of a body
type Relay interface {
	Reply(ctx context.Context, body, message string) (string, error)
}

// Prompt builds the instruction sent to remote completion services
func Prompt(body, message string) string {
	return fmt.Sprintf("You are the planet %s. Respond to this message: \"%s\"", body, message)
}

// LocalRelay answers from the fixed table of canned lines. It never fails.
type LocalRelay struct{}

// Reply implements Relay
func (LocalRelay) Reply(_ context.Context, body, _ string) (string, error) {
	return celestial.CannedLine(body), nil
}

// NewRelay selects a relay implementation from configuration. Missing
// credentials are not checked here; remote relays fail per request instead.
func NewRelay(cfg config.RelayConfig, logger *zap.Logger) (Relay, error) {
	switch strings.ToLower(cfg.Mode) {
	case "", config.RelayLocal:
		logger.Info("Using local relay")
		return LocalRelay{}, nil
	case config.RelayRemote:
	default:
		return nil, fmt.Errorf("unknown relay mode %q", cfg.Mode)
	}

	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderOpenAI:
		logger.Info("Using OpenAI relay", zap.String("model", cfg.Model), zap.String("base_url", cfg.BaseURL))
		return NewOpenAIRelay(cfg, logger), nil
	case config.ProviderGemini:
		logger.Info("Using Gemini relay", zap.String("model", cfg.Model))
		return NewGeminiRelay(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown relay provider %q", cfg.Provider)
	}
}
