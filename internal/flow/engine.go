package flow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/btrlrn/learnbuddy/internal/i18n"
	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/store"
)

// Generator is the slice of the lesson generator the engine needs.
type Generator interface {
	Generate(ctx context.Context, u models.User, mastered []string, recent []models.HistoryRecord) (*models.Lesson, error)
	Translate(ctx context.Context, lang, text string) (string, error)
}

// Geocoder resolves a city to an Indian state, "" when unknown.
type Geocoder interface {
	StateForCity(ctx context.Context, city string) (string, error)
}

// Opts holds configuration options for the engine.
type Opts struct {
	Now func() time.Time
}

// Option configures the engine.
type Option func(*Opts)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Engine drives one user's conversation per inbound event. All state lives in
// the store; the engine itself is stateless and safe for concurrent use
// across different users.
type Engine struct {
	store store.Store
	gen   Generator
	geo   Geocoder
	now   func() time.Time
}

// NewEngine creates a conversation engine.
func NewEngine(st store.Store, gen Generator, geo Geocoder, opts ...Option) *Engine {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{store: st, gen: gen, geo: geo, now: cfg.Now}
}

// Handle processes one inbound event for a user and returns what to send back.
// Unknown users are created and dropped into onboarding.
func (e *Engine) Handle(ctx context.Context, userID string, ev models.Event) (Reply, error) {
	if userID == "" {
		return Reply{}, models.ErrEmptyUserID
	}
	slog.Debug("Engine Handle", "userID", userID, "has_text", ev.Text != "", "has_button", ev.Button != "", "has_contact", ev.Contact != "")

	u, err := e.store.GetUser(userID)
	if err != nil {
		return Reply{}, err
	}
	if u == nil {
		return e.startOnboarding(ctx, userID)
	}

	now := e.now().UTC()
	if err := e.store.UpdateUser(userID, models.UserPatch{LastSeen: &now}); err != nil {
		slog.Warn("Engine failed to touch last_seen", "error", err, "userID", userID)
	}
	u.LastSeen = now

	sess, err := e.store.GetSession(userID)
	if err != nil {
		return Reply{}, err
	}
	if sess == nil {
		sess = &models.Session{UserID: userID, Stage: models.StageOf(models.StageIdle)}
	}

	if sess.Stage.IsOnboarding() {
		return e.handleOnboarding(ctx, u, sess, ev)
	}

	// Commands win over stage handling once onboarding is done, so a user can
	// always escape a menu or a stuck quiz.
	if reply, handled, err := e.handleCommand(ctx, u, sess, ev); handled {
		return reply, err
	}

	switch sess.Stage.Kind {
	case models.StageChooseSubject:
		return e.handleChooseSubject(ctx, u, sess, ev)
	case models.StageProfileMenu:
		return e.handleProfileMenu(ctx, u, sess, ev)
	case models.StageEditName, models.StageEditCity, models.StageEditGrade:
		return e.handleProfileEdit(ctx, u, sess, ev)
	case models.StageQuiz:
		return e.handleQuiz(ctx, u, sess, ev)
	case models.StageLesson:
		return e.handleLesson(ctx, u, sess, ev)
	default:
		return text(i18n.T(u.Language, "unknown")), nil
	}
}

// startOnboarding creates the user row and asks for a language.
func (e *Engine) startOnboarding(ctx context.Context, userID string) (Reply, error) {
	now := e.now().UTC()
	u := models.User{
		ID:        userID,
		Level:     1,
		Language:  "en",
		FirstSeen: now,
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := e.store.CreateUser(u); err != nil {
		return Reply{}, err
	}
	if err := e.store.SetSession(models.Session{UserID: userID, Stage: models.StageOf(models.StageAskLang)}); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine created new user", "userID", userID)
	return withChoices(i18n.T("en", "choose_language"), languageChoices()), nil
}

func languageChoices() []Choice {
	choices := make([]Choice, 0, len(i18n.SupportedLanguages))
	for _, l := range i18n.SupportedLanguages {
		choices = append(choices, Choice{Label: i18n.LanguageName(l), Data: "LANG:" + l})
	}
	return choices
}

// setStage replaces the session with a fresh one at the given stage, clearing
// any quiz cursor.
func (e *Engine) setStage(userID string, stage models.Stage) error {
	return e.store.SetSession(models.Session{UserID: userID, Stage: stage, CreatedAt: e.now().UTC()})
}

// eventInput returns the effective input of an event: button payload when
// present, trimmed text otherwise.
func eventInput(ev models.Event) string {
	if ev.Button != "" {
		return ev.Button
	}
	return strings.TrimSpace(ev.Text)
}

// buttonPayload extracts the value of a prefixed payload, accepting both
// button data and typed text of the same shape.
func buttonPayload(ev models.Event, prefix string) (string, bool) {
	return strings.CutPrefix(eventInput(ev), prefix)
}
