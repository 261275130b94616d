package chat

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solar-system-ai/internal/celestial"
)

// Conversation is the transcript held with one selected body
type Conversation struct {
	ID         string
	Body       string
	Transcript *Transcript
}

// Exchange is a user message waiting for its reply
type Exchange struct {
	Conversation *Conversation
	Message      string
}

// Fetch asks the relay for the reply. It touches no transcript and is safe
// to call off the frame loop goroutine.
func (e *Exchange) Fetch(ctx context.Context, relay Relay) (string, error) {
	return relay.Reply(ctx, e.Conversation.Body, e.Message)
}

// Panel is the conversation panel. Selecting a new body starts a fresh
// conversation; replies always land in the conversation that asked.
// A Panel is not safe for concurrent use.
type Panel struct {
	relay   Relay
	logger  *zap.Logger
	current *Conversation
}

// NewPanel creates a closed panel
func NewPanel(relay Relay, logger *zap.Logger) *Panel {
	return &Panel{relay: relay, logger: logger}
}

// Open starts a new conversation with body and greets the user
func (p *Panel) Open(body string) {
	conv := &Conversation{
		ID:         uuid.New().String(),
		Body:       body,
		Transcript: &Transcript{},
	}
	conv.Transcript.Append(body, celestial.Greeting(body))
	p.current = conv
	p.logger.Debug("Conversation opened", zap.String("body", body), zap.String("conversation", conv.ID))
}

// Close hides the panel. In-flight exchanges still complete into their
// conversation.
func (p *Panel) Close() {
	p.current = nil
}

// IsOpen reports whether a conversation is showing
func (p *Panel) IsOpen() bool {
	return p.current != nil
}

// Current returns the showing conversation, or nil
func (p *Panel) Current() *Conversation {
	return p.current
}

// Begin records the user's message in the current conversation and returns
// the exchange to fetch. Blank messages are rejected without any entry.
func (p *Panel) Begin(message string) (*Exchange, error) {
	if p.current == nil {
		return nil, ErrNoConversation
	}
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	p.current.Transcript.Append(UserSpeaker, message)
	return &Exchange{Conversation: p.current, Message: message}, nil
}

// Complete appends the outcome of an exchange to the conversation that
// issued it. Replies are appended in arrival order.
func (p *Panel) Complete(ex *Exchange, reply string, err error) {
	conv := ex.Conversation
	if err != nil {
		p.logger.Error("Relay failed",
			zap.String("body", conv.Body),
			zap.String("conversation", conv.ID),
			zap.Error(err))
		conv.Transcript.Append(SystemSpeaker, FailureMessage)
		return
	}
	conv.Transcript.Append(conv.Body, reply)
}

// Send runs a whole exchange synchronously
func (p *Panel) Send(ctx context.Context, message string) error {
	ex, err := p.Begin(message)
	if err != nil {
		return err
	}
	reply, err := ex.Fetch(ctx, p.relay)
	p.Complete(ex, reply, err)
	return err
}

// Relay returns the relay used by Send
func (p *Panel) Relay() Relay {
	return p.relay
}
