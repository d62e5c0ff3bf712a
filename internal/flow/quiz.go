package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/btrlrn/learnbuddy/internal/i18n"
	"github.com/btrlrn/learnbuddy/internal/models"
)

// passThreshold is the score needed to move up a level.
const passThreshold = 2

// cmdStart acknowledges immediately and defers generation to a task the
// adapter runs in the background.
func (e *Engine) cmdStart(ctx context.Context, u *models.User) (Reply, error) {
	if u.Subject == "" {
		return e.cmdSubject(u)
	}
	user := *u
	task := &LessonTask{
		UserID: u.ID,
		Run: func(taskCtx context.Context) Reply {
			return e.runGeneration(taskCtx, user)
		},
	}
	slog.Info("Engine lesson requested", "userID", u.ID, "subject", u.Subject, "level", u.Level)
	reply := text(i18n.T(u.Language, "generating"))
	reply.Task = task
	return reply, nil
}

// runGeneration produces, stores, and renders a lesson. All failures fold
// into a user-facing message with the session parked back at idle.
func (e *Engine) runGeneration(ctx context.Context, u models.User) Reply {
	fail := func(err error) Reply {
		slog.Error("Engine lesson generation failed", "error", err, "userID", u.ID)
		if stErr := e.setStage(u.ID, models.StageOf(models.StageIdle)); stErr != nil {
			slog.Error("Engine failed to park session after generation failure", "error", stErr, "userID", u.ID)
		}
		return text(i18n.T(u.Language, "gen_failed"))
	}

	mastered, err := e.store.MasteredTitles(u.ID, u.Subject)
	if err != nil {
		return fail(err)
	}
	recent, err := e.store.RecentHistory(u.ID, recentHistoryLimit)
	if err != nil {
		return fail(err)
	}

	l, err := e.gen.Generate(ctx, u, mastered, recent)
	if err != nil {
		return fail(err)
	}
	if err := e.store.SaveLesson(l); err != nil {
		return fail(err)
	}
	sess := models.Session{
		UserID:   u.ID,
		Stage:    models.StageOf(models.StageLesson),
		LessonID: l.ID,
	}
	if err := e.store.SetSession(sess); err != nil {
		return fail(err)
	}

	intro := renderLessonIntro(u.Language, l)
	if translated, err := e.gen.Translate(ctx, u.Language, intro); err == nil {
		intro = translated
	}
	return text(intro)
}

// renderLessonIntro formats the title, bullets, and quiz invitation.
func renderLessonIntro(lang string, l *models.Lesson) string {
	var b strings.Builder
	b.WriteString(i18n.T(lang, "lesson_title", l.Title))
	for _, bullet := range l.Intro {
		b.WriteString("\n• ")
		b.WriteString(bullet)
	}
	b.WriteString("\n\n")
	b.WriteString(i18n.T(lang, "lesson_ready"))
	return b.String()
}

// renderQuestion formats question idx with answer choices.
func (e *Engine) renderQuestion(ctx context.Context, u *models.User, l *models.Lesson, idx int) (Message, error) {
	if idx < 0 || idx >= len(l.Questions) {
		return Message{}, fmt.Errorf("question index %d out of range", idx)
	}
	q := l.Questions[idx]

	body := q.Text
	if translated, err := e.gen.Translate(ctx, u.Language, body); err == nil {
		body = translated
	}
	var b strings.Builder
	b.WriteString(i18n.T(u.Language, "question", idx+1, body))
	letters := []string{"A", "B", "C", "D"}
	choices := make([]Choice, 0, len(letters))
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "\n%s) %s", letters[i], opt)
		choices = append(choices, Choice{Label: letters[i], Data: "ANS:" + letters[i]})
	}
	return Message{Text: b.String(), Choices: choices}, nil
}

// cmdQuiz resumes the quiz for the current lesson at the stored cursor,
// keeping the accumulated score.
func (e *Engine) cmdQuiz(ctx context.Context, u *models.User, sess *models.Session) (Reply, error) {
	if sess.LessonID == 0 {
		return text(i18n.T(u.Language, "not_in_quiz")), nil
	}
	l, err := e.store.GetLesson(sess.LessonID)
	if err != nil {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "not_in_quiz")), nil
	}
	if sess.QIndex >= len(l.Questions) {
		return text(i18n.T(u.Language, "quiz_done")), nil
	}
	sess.Stage = models.StageOf(models.StageQuiz)
	if err := e.store.SetSession(*sess); err != nil {
		return Reply{}, err
	}
	question, err := e.renderQuestion(ctx, u, l, sess.QIndex)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Messages: []Message{question}}, nil
}

// askQuestion re-renders the question at the session's cursor.
func (e *Engine) askQuestion(ctx context.Context, u *models.User, sess *models.Session) (Reply, error) {
	l, err := e.store.GetLesson(sess.LessonID)
	if err != nil {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "not_in_quiz")), nil
	}
	if sess.QIndex >= len(l.Questions) {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "next_lesson_hint")), nil
	}
	question, err := e.renderQuestion(ctx, u, l, sess.QIndex)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Messages: []Message{question}}, nil
}

// handleQuiz processes one answer (or a next-question tap) during a quiz.
func (e *Engine) handleQuiz(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	input := eventInput(ev)
	// Text-only channels type NEXT instead of tapping the button.
	if strings.EqualFold(input, "NEXTQ") || strings.EqualFold(input, "NEXT") {
		return e.askQuestion(ctx, u, sess)
	}

	answer, ok := buttonPayload(ev, "ANS:")
	if !ok {
		answer = input
	}
	answer = strings.ToUpper(strings.TrimSpace(answer))
	switch answer {
	case "A", "B", "C", "D":
	default:
		return text(i18n.T(u.Language, "answer_with")), nil
	}

	l, err := e.store.GetLesson(sess.LessonID)
	if err != nil {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "not_in_quiz")), nil
	}
	if sess.QIndex >= len(l.Questions) {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "next_lesson_hint")), nil
	}

	q := l.Questions[sess.QIndex]
	score := sess.Score
	var feedback string
	if answer == q.Answer {
		score++
		feedback = i18n.T(u.Language, "correct", q.Explanation)
	} else {
		feedback = i18n.T(u.Language, "incorrect", q.Answer, q.Explanation)
	}
	nextIndex := sess.QIndex + 1
	slog.Debug("Engine quiz answer", "userID", u.ID, "qIndex", sess.QIndex, "correct", answer == q.Answer, "score", score)

	if nextIndex < len(l.Questions) {
		if err := e.store.UpdateSessionProgress(u.ID, nextIndex, score); err != nil {
			return Reply{}, err
		}
		sess.QIndex = nextIndex
		sess.Score = score
		return Reply{Messages: []Message{{
			Text:    feedback,
			Choices: []Choice{{Label: i18n.T(u.Language, "btn_next_q"), Data: "NEXTQ"}},
		}}}, nil
	}
	return e.finishQuiz(ctx, u, l, score, feedback)
}

// finishQuiz records the attempt, adapts level and streak, and summarizes.
func (e *Engine) finishQuiz(ctx context.Context, u *models.User, l *models.Lesson, score int, feedback string) (Reply, error) {
	total := len(l.Questions)
	err := e.store.AppendHistory(models.HistoryRecord{
		UserID:   u.ID,
		LessonID: l.ID,
		Subject:  l.Subject,
		Level:    l.Level,
		Score:    score,
		Total:    total,
		TakenAt:  e.now().UTC(),
	})
	if err != nil {
		return Reply{}, err
	}

	newLevel := u.Level
	var levelKey string
	if score >= passThreshold {
		newLevel = u.Level + 1
		levelKey = "level_up"
	} else if u.Level > 1 {
		newLevel = u.Level - 1
		levelKey = "level_down"
	} else {
		levelKey = "level_same"
	}
	newStreak := 0
	if score == total {
		newStreak = u.Streak + 1
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{Level: &newLevel, Streak: &newStreak}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine quiz finished", "userID", u.ID, "score", score, "total", total, "level", newLevel, "streak", newStreak)

	var b strings.Builder
	b.WriteString(i18n.T(u.Language, "quiz_result", score, total))
	b.WriteString("\n")
	b.WriteString(i18n.T(u.Language, levelKey, newLevel))
	if newStreak > 0 {
		b.WriteString("\n")
		b.WriteString(i18n.T(u.Language, "streak", newStreak))
	}
	b.WriteString("\n")
	b.WriteString(i18n.T(u.Language, "next_lesson_hint"))
	return Reply{Messages: []Message{
		{Text: feedback},
		{Text: b.String()},
	}}, nil
}
