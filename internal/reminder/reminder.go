// Package reminder sends re-engagement nudges to students who finished
// onboarding but have gone quiet.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/btrlrn/learnbuddy/internal/i18n"
	"github.com/btrlrn/learnbuddy/internal/messaging"
	"github.com/btrlrn/learnbuddy/internal/scheduler"
	"github.com/btrlrn/learnbuddy/internal/store"
)

// DefaultCronSpec fires the nudge job daily at 17:00 server time, after school.
const DefaultCronSpec = "0 17 * * *"

// DefaultIdleAfter is how long a student must be quiet before a nudge.
const DefaultIdleAfter = 48 * time.Hour

// DefaultGiveUpAfter stops nudging students gone longer than this.
const DefaultGiveUpAfter = 14 * 24 * time.Hour

// Opts holds configuration options for the reminder job.
type Opts struct {
	CronSpec    string
	IdleAfter   time.Duration
	GiveUpAfter time.Duration
	Now         func() time.Time
}

// Option configures the reminder job.
type Option func(*Opts)

// WithCronSpec sets the cron expression for the nudge job.
func WithCronSpec(spec string) Option {
	return func(o *Opts) { o.CronSpec = spec }
}

// WithIdleAfter sets the quiet period before a student gets nudged.
func WithIdleAfter(d time.Duration) Option {
	return func(o *Opts) { o.IdleAfter = d }
}

// WithGiveUpAfter sets the quiet period after which nudging stops.
func WithGiveUpAfter(d time.Duration) Option {
	return func(o *Opts) { o.GiveUpAfter = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Reminder periodically nudges inactive students back into lessons.
type Reminder struct {
	store  store.Store
	sender messaging.Sender
	opts   Opts
}

// NewReminder creates a reminder job over the given store and sender.
func NewReminder(st store.Store, sender messaging.Sender, opts ...Option) *Reminder {
	cfg := Opts{
		CronSpec:    DefaultCronSpec,
		IdleAfter:   DefaultIdleAfter,
		GiveUpAfter: DefaultGiveUpAfter,
		Now:         time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Reminder{store: st, sender: sender, opts: cfg}
}

// Schedule registers the nudge job with the scheduler.
func (r *Reminder) Schedule(s *scheduler.Scheduler) error {
	slog.Info("Reminder scheduled", "cron", r.opts.CronSpec, "idle_after", r.opts.IdleAfter)
	return s.AddJob(r.opts.CronSpec, func() {
		if _, err := r.SendNudges(context.Background()); err != nil {
			slog.Error("Reminder run failed", "error", err)
		}
	})
}

// SendNudges messages every student in the idle window and returns how many
// nudges went out. Per-student send failures are logged and skipped.
func (r *Reminder) SendNudges(ctx context.Context) (int, error) {
	now := r.opts.Now().UTC()
	users, err := r.store.InactiveUsers(now.Add(-r.opts.IdleAfter), now.Add(-r.opts.GiveUpAfter))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, u := range users {
		if u.Subject == "" {
			continue
		}
		body := i18n.T(u.Language, "nudge", u.FirstName, u.Subject)
		if err := r.sender.SendMessage(ctx, u.ID, body); err != nil {
			slog.Warn("Reminder send failed", "userID", u.ID, "error", err)
			continue
		}
		sent++
	}
	slog.Info("Reminder run finished", "candidates", len(users), "sent", sent)
	return sent, nil
}
