package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/btrlrn/learnbuddy/internal/flow"
)

type recordingSender struct {
	sent []string
	err  error
}

func (r *recordingSender) SendMessage(ctx context.Context, to, body string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, body)
	return nil
}

func TestRenderTextPlain(t *testing.T) {
	if got := RenderText(flow.Message{Text: "hello"}); got != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestRenderTextWithChoices(t *testing.T) {
	m := flow.Message{
		Text: "Pick a board:",
		Choices: []flow.Choice{
			{Label: "CBSE", Data: "BOARD:CBSE"},
			{Label: "ICSE", Data: "BOARD:ICSE"},
		},
	}
	got := RenderText(m)
	if !strings.HasPrefix(got, "Pick a board:") {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(got, "• CBSE") || !strings.Contains(got, "• ICSE") {
		t.Errorf("choices missing: %q", got)
	}
}

func TestSendReplyDeliversAllMessages(t *testing.T) {
	s := &recordingSender{}
	r := flow.Reply{Messages: []flow.Message{{Text: "one"}, {Text: "two"}}}
	if err := SendReply(context.Background(), s, "+911234567890", r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.sent) != 2 || s.sent[0] != "one" || s.sent[1] != "two" {
		t.Errorf("got %v", s.sent)
	}
}

func TestSendReplyStopsOnError(t *testing.T) {
	s := &recordingSender{err: errors.New("rate limited")}
	r := flow.Reply{Messages: []flow.Message{{Text: "one"}}}
	if err := SendReply(context.Background(), s, "+911234567890", r); err == nil {
		t.Error("expected error")
	}
}

func TestRouterDispatchesByPrefix(t *testing.T) {
	wa := &recordingSender{}
	tg := &recordingSender{}
	r := NewRouter()
	r.Register("whatsapp:", wa)
	r.Register("telegram:", tg)

	if err := r.SendMessage(context.Background(), "whatsapp:+911234567890", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SendMessage(context.Background(), "telegram:42", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wa.sent) != 1 || wa.sent[0] != "hi" {
		t.Errorf("whatsapp sender got %v", wa.sent)
	}
	if len(tg.sent) != 1 || tg.sent[0] != "hello" {
		t.Errorf("telegram sender got %v", tg.sent)
	}
}

func TestRouterUnknownPrefix(t *testing.T) {
	r := NewRouter()
	if err := r.SendMessage(context.Background(), "sms:+911234567890", "hi"); err == nil {
		t.Error("expected error for unregistered prefix")
	}
}
