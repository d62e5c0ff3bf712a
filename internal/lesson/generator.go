// Package lesson turns a student profile into validated micro-lesson content
// via the GenAI client: prompt assembly, JSON extraction, schema validation,
// and bounded retry on malformed output.
package lesson

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/syllabus"
	"github.com/btrlrn/learnbuddy/internal/util"
)

// Completer is the slice of the GenAI client the generator needs.
type Completer interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Opts holds configuration options for the generator.
type Opts struct {
	Retry util.RetryPolicy
}

// Option configures the generator.
type Option func(*Opts)

// WithRetryPolicy overrides the default retry policy for malformed output.
func WithRetryPolicy(p util.RetryPolicy) Option {
	return func(o *Opts) {
		o.Retry = p
	}
}

// Generator produces lessons for a student profile.
type Generator struct {
	ai    Completer
	retry util.RetryPolicy
}

// NewGenerator creates a lesson generator backed by the given completer.
func NewGenerator(ai Completer, opts ...Option) *Generator {
	cfg := Opts{Retry: util.DefaultRetryPolicy}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Generator{ai: ai, retry: cfg.Retry}
}

const systemPrompt = "You are a friendly tutor for Indian school students. " +
	"You write short lessons with simple language and everyday Indian examples. " +
	"Respond with a single JSON object and nothing else."

// lessonPayload mirrors the JSON shape the model is asked to produce.
type lessonPayload struct {
	Title     string            `json:"title"`
	Intro     []string          `json:"intro"`
	Questions []models.Question `json:"questions"`
}

// Generate produces one validated lesson for the user. Mastered titles are
// excluded from topic selection; recent history steers difficulty hints.
// Malformed or invalid model output is retried per the configured policy.
func (g *Generator) Generate(ctx context.Context, u models.User, mastered []string, recent []models.HistoryRecord) (*models.Lesson, error) {
	reqID := util.GenerateLessonRequestID()
	prompt := buildPrompt(u, mastered, recent)
	slog.Debug("Lesson generation started", "requestID", reqID, "userID", u.ID, "subject", u.Subject, "level", u.Level)

	var payload lessonPayload
	err := util.Retry(ctx, g.retry, "lesson generation", func(ctx context.Context) error {
		raw, err := g.ai.GenerateJSON(ctx, systemPrompt, prompt)
		if err != nil {
			return err
		}
		extracted := ExtractJSON(raw)
		if extracted == "" {
			return fmt.Errorf("no JSON object in model output")
		}
		if err := validateAgainstSchema([]byte(extracted)); err != nil {
			return err
		}
		var p lessonPayload
		if err := json.Unmarshal([]byte(extracted), &p); err != nil {
			return fmt.Errorf("failed to decode lesson JSON: %w", err)
		}
		l := models.Lesson{Title: p.Title, Intro: p.Intro, Questions: p.Questions}
		if err := l.Validate(); err != nil {
			return err
		}
		payload = p
		return nil
	})
	if err != nil {
		slog.Error("Lesson generation failed", "requestID", reqID, "error", err, "userID", u.ID, "subject", u.Subject)
		return nil, fmt.Errorf("%w: %s", models.ErrGenerationFailed, err)
	}

	l := &models.Lesson{
		UserID:    u.ID,
		Board:     u.Board,
		Grade:     u.Grade,
		Subject:   u.Subject,
		Level:     u.Level,
		Title:     payload.Title,
		Intro:     payload.Intro,
		Questions: payload.Questions,
		CreatedAt: time.Now().UTC(),
	}
	slog.Info("Lesson generated", "requestID", reqID, "userID", u.ID, "subject", u.Subject, "level", u.Level, "title", l.Title)
	return l, nil
}

// buildPrompt assembles the user prompt from the profile, mastery list, and
// recent quiz results.
func buildPrompt(u models.User, mastered []string, recent []models.HistoryRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a micro-lesson for a grade %s student", orDefault(u.Grade, "8"))
	if u.Board != "" {
		fmt.Fprintf(&b, " following the %s curriculum", u.Board)
	}
	if place := joinPlace(u.City, u.State); place != "" {
		fmt.Fprintf(&b, " from %s", place)
	}
	fmt.Fprintf(&b, ".\nSubject: %s (%s).\nDifficulty level: %d on a 1-10 scale.\n",
		orDefault(u.Subject, "Mathematics"), syllabus.TopicHint(u.Subject), clampLevel(u.Level))

	if labels := troubleSubjects(recent); len(labels) > 0 {
		fmt.Fprintf(&b, "Recent trouble areas to remediate: %s.\n", strings.Join(labels, ", "))
	}
	if hint := troubleHint(recent); hint != "" {
		b.WriteString(hint)
		b.WriteString("\n")
	}
	if len(mastered) > 0 {
		fmt.Fprintf(&b, "The student has already mastered these topics, pick something different: %s.\n",
			strings.Join(mastered, "; "))
	}

	b.WriteString(`Return a JSON object with exactly these fields:
"title": short topic name,
"intro": array of 1 to 4 short bullet strings teaching the topic,
"questions": array of exactly 3 multiple-choice questions, each an object with
"q" (question text), "options" (exactly 4 strings), "ans" (one of "A","B","C","D"),
and "explain" (one-line explanation of the correct answer).`)
	return b.String()
}

// joinPlace formats city and state for the prompt, dropping empty parts.
func joinPlace(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}

// troubleSubjects lists up to 4 distinct subject labels from recent imperfect
// quizzes, newest first.
func troubleSubjects(recent []models.HistoryRecord) []string {
	var labels []string
	seen := make(map[string]bool)
	for _, h := range recent {
		if h.Subject == "" || h.Score >= h.Total || seen[h.Subject] {
			continue
		}
		seen[h.Subject] = true
		labels = append(labels, h.Subject)
		if len(labels) == 4 {
			break
		}
	}
	return labels
}

// troubleHint summarizes recent weak results so the next lesson reinforces
// instead of repeating blindly.
func troubleHint(recent []models.HistoryRecord) string {
	var weak int
	for _, h := range recent {
		if h.Total > 0 && h.Score*2 < h.Total {
			weak++
		}
	}
	switch {
	case len(recent) == 0:
		return "This is the student's first lesson in a while, start with fundamentals."
	case weak >= 2:
		return "Recent quiz scores were low. Re-teach the fundamentals with extra-simple examples before asking questions."
	case weak == 1:
		return "One recent quiz went poorly, include a brief recap of basics."
	}
	return ""
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 10 {
		return 10
	}
	return level
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ExtractJSON pulls a JSON object out of model output: a fenced ```json block
// if present, otherwise the span from the first '{' to the last '}'.
func ExtractJSON(s string) string {
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if end := strings.Index(rest, "```"); end >= 0 {
			if candidate := strings.TrimSpace(rest[:end]); candidate != "" {
				return candidate
			}
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// Translate renders text into the target language. English and unknown
// languages return the text unchanged.
func (g *Generator) Translate(ctx context.Context, lang, text string) (string, error) {
	var language string
	switch lang {
	case "hi":
		language = "Hindi"
	case "mr":
		language = "Marathi"
	default:
		return text, nil
	}
	out, err := g.ai.Generate(ctx,
		fmt.Sprintf("Translate the user's message into %s. Keep numbers, option letters (A/B/C/D), and formatting unchanged. Reply with the translation only.", language),
		text)
	if err != nil {
		slog.Warn("Translation failed, falling back to English", "error", err, "lang", lang)
		return text, nil
	}
	return strings.TrimSpace(out), nil
}
