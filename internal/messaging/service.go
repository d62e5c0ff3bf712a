// Package messaging defines the outbound delivery abstraction shared by
// channel adapters, plus plain-text rendering for channels without buttons.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/btrlrn/learnbuddy/internal/flow"
)

// Sender delivers one rendered message to a channel-specific recipient.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// RenderText flattens a message for text-only channels: choices become a
// bulleted list of labels the user can type back.
func RenderText(m flow.Message) string {
	if len(m.Choices) == 0 {
		return m.Text
	}
	var b strings.Builder
	b.WriteString(m.Text)
	for _, c := range m.Choices {
		b.WriteString("\n• ")
		b.WriteString(c.Label)
	}
	return b.String()
}

// SendReply delivers every message of a reply in order, stopping at the first
// send failure.
func SendReply(ctx context.Context, s Sender, to string, r flow.Reply) error {
	for _, m := range r.Messages {
		if err := s.SendMessage(ctx, to, RenderText(m)); err != nil {
			return err
		}
	}
	return nil
}

// Router dispatches outbound messages to channel senders keyed by the user ID
// prefix, e.g. "whatsapp:" or "telegram:".
type Router struct {
	routes map[string]Sender
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]Sender)}
}

// Register binds a sender to a user ID prefix.
func (r *Router) Register(prefix string, s Sender) {
	r.routes[prefix] = s
}

// SendMessage forwards to the sender whose prefix matches the recipient.
func (r *Router) SendMessage(ctx context.Context, to string, body string) error {
	for prefix, s := range r.routes {
		if strings.HasPrefix(to, prefix) {
			return s.SendMessage(ctx, to, body)
		}
	}
	return fmt.Errorf("no sender registered for recipient %s", to)
}
