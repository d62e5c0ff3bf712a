package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/store"
)

type recordingSender struct {
	sent map[string]string
	fail map[string]bool
}

func (r *recordingSender) SendMessage(ctx context.Context, to, body string) error {
	if r.fail[to] {
		return errors.New("send failed")
	}
	if r.sent == nil {
		r.sent = make(map[string]string)
	}
	r.sent[to] = body
	return nil
}

func seedUser(t *testing.T, st store.Store, id, subject string, lastSeen time.Time) {
	t.Helper()
	u := models.User{
		ID: id, FirstName: "Asha", Grade: "8", Subject: subject,
		Level: 1, Language: "en", LastSeen: lastSeen, CreatedAt: lastSeen,
	}
	if err := st.CreateUser(u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
}

func TestSendNudgesTargetsIdleWindow(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	seedUser(t, st, "wa:fresh", "Mathematics", now.Add(-1*time.Hour))
	seedUser(t, st, "wa:idle", "Mathematics", now.Add(-3*24*time.Hour))
	seedUser(t, st, "wa:gone", "Mathematics", now.Add(-30*24*time.Hour))

	s := &recordingSender{}
	r := NewReminder(st, s, WithClock(func() time.Time { return now }))
	sent, err := r.SendNudges(context.Background())
	if err != nil {
		t.Fatalf("SendNudges failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent = %d", sent)
	}
	body, ok := s.sent["wa:idle"]
	if !ok {
		t.Fatalf("idle user not nudged: %v", s.sent)
	}
	if !strings.Contains(body, "Asha") || !strings.Contains(body, "Mathematics") {
		t.Errorf("nudge body = %q", body)
	}
}

func TestSendNudgesSkipsUsersWithoutSubject(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	seedUser(t, st, "wa:nosubject", "", now.Add(-3*24*time.Hour))

	s := &recordingSender{}
	r := NewReminder(st, s, WithClock(func() time.Time { return now }))
	sent, err := r.SendNudges(context.Background())
	if err != nil {
		t.Fatalf("SendNudges failed: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d", sent)
	}
}

func TestSendNudgesContinuesPastFailures(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	seedUser(t, st, "wa:a", "Mathematics", now.Add(-3*24*time.Hour))
	seedUser(t, st, "wa:b", "Science", now.Add(-3*24*time.Hour))

	s := &recordingSender{fail: map[string]bool{"wa:a": true}}
	r := NewReminder(st, s, WithClock(func() time.Time { return now }))
	sent, err := r.SendNudges(context.Background())
	if err != nil {
		t.Fatalf("SendNudges failed: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d", sent)
	}
	if _, ok := s.sent["wa:b"]; !ok {
		t.Errorf("second user not nudged: %v", s.sent)
	}
}
