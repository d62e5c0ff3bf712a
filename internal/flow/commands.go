package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/btrlrn/learnbuddy/internal/i18n"
	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/syllabus"
)

// recentHistoryLimit is how many quiz results STATS shows.
const recentHistoryLimit = 5

// handleCommand dispatches the post-onboarding keyword commands. The second
// return value reports whether the event was consumed.
func (e *Engine) handleCommand(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, bool, error) {
	cmd := strings.ToUpper(strings.TrimSpace(ev.Text))
	if ev.Button != "" {
		// Buttons belong to stage handlers, except NEXTQ which is stage-checked
		// in the quiz handler.
		return Reply{}, false, nil
	}

	switch cmd {
	case "HELP", "/HELP":
		reply, err := e.cmdHelp(u)
		return reply, true, err
	case "PROFILE", "/PROFILE":
		reply, err := e.cmdProfile(u)
		return reply, true, err
	case "STATS", "/STATS":
		reply, err := e.cmdStats(u)
		return reply, true, err
	case "RANK", "/RANK":
		reply, err := e.cmdRank(u)
		return reply, true, err
	case "RESET", "/RESET":
		reply, err := e.cmdReset(u)
		return reply, true, err
	case "SUBJECT", "/SUBJECT":
		reply, err := e.cmdSubject(u)
		return reply, true, err
	case "START", "/START":
		reply, err := e.cmdStart(ctx, u)
		return reply, true, err
	case "QUIZ", "/QUIZ":
		reply, err := e.cmdQuiz(ctx, u, sess)
		return reply, true, err
	}
	return Reply{}, false, nil
}

func (e *Engine) cmdHelp(u *models.User) (Reply, error) {
	return text(i18n.T(u.Language, "help")), nil
}

func (e *Engine) cmdProfile(u *models.User) (Reply, error) {
	if err := e.setStage(u.ID, models.StageOf(models.StageProfileMenu)); err != nil {
		return Reply{}, err
	}
	header := i18n.T(u.Language, "profile_header", profileSummary(u))
	menu := i18n.T(u.Language, "profile_menu")
	return Reply{Messages: []Message{{
		Text: header + "\n" + menu,
		Choices: []Choice{
			{Label: "A", Data: "A"}, {Label: "B", Data: "B"}, {Label: "C", Data: "C"},
			{Label: "D", Data: "D"}, {Label: "E", Data: "E"},
		},
	}}}, nil
}

func (e *Engine) cmdStats(u *models.User) (Reply, error) {
	records, err := e.store.RecentHistory(u.ID, recentHistoryLimit)
	if err != nil {
		return Reply{}, err
	}
	if len(records) == 0 {
		return text(i18n.T(u.Language, "stats_empty")), nil
	}
	var b strings.Builder
	b.WriteString(i18n.T(u.Language, "stats_header", len(records)))
	for _, r := range records {
		b.WriteString("\n")
		b.WriteString(i18n.T(u.Language, "stats_line", r.Subject, r.Level, r.Score, r.Total))
	}
	return text(b.String()), nil
}

// cmdRank returns the fixed mock leaderboard. There is no real cross-user
// ranking yet.
func (e *Engine) cmdRank(u *models.User) (Reply, error) {
	return text(i18n.T(u.Language, "rank")), nil
}

// cmdReset clears the session back to idle with zeroed counters. The profile
// and quiz history stay.
func (e *Engine) cmdReset(u *models.User) (Reply, error) {
	if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine session reset", "userID", u.ID)
	return text(i18n.T(u.Language, "reset_done")), nil
}

func (e *Engine) cmdSubject(u *models.User) (Reply, error) {
	if err := e.setStage(u.ID, models.StageOf(models.StageChooseSubject)); err != nil {
		return Reply{}, err
	}
	return withChoices(i18n.T(u.Language, "choose_subject"), subjectChoices(u)), nil
}

func (e *Engine) handleChooseSubject(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	subjects := syllabus.SubjectsFor(u.Board, u.Grade)
	var subject string
	if payload, ok := buttonPayload(ev, "SUBJ:"); ok {
		for _, s := range subjects {
			if s == payload {
				subject = s
				break
			}
		}
	} else if typed := strings.ToUpper(strings.TrimSpace(ev.Text)); len(typed) == 1 && typed[0] >= 'A' && typed[0] <= 'Z' {
		// A single letter indexes into the subject list.
		if i := int(typed[0] - 'A'); i < len(subjects) {
			subject = subjects[i]
		}
	} else {
		// Accept typed subject names, case-insensitive.
		for _, s := range subjects {
			if strings.EqualFold(s, typed) {
				subject = s
				break
			}
		}
	}
	if subject == "" {
		return withChoices(i18n.T(u.Language, "choose_subject"), subjectChoices(u)), nil
	}
	level := 1
	if err := e.store.UpdateUser(u.ID, models.UserPatch{Subject: &subject, Level: &level}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine subject selected", "userID", u.ID, "subject", subject)
	return text(i18n.T(u.Language, "subject_set", subject)), nil
}

func (e *Engine) handleProfileMenu(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	switch strings.ToUpper(eventInput(ev)) {
	case "A":
		if err := e.setStage(u.ID, models.StageOf(models.StageEditName)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "edit_name")), nil
	case "B":
		if err := e.setStage(u.ID, models.StageOf(models.StageEditCity)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "edit_city")), nil
	case "C":
		// Re-run board and state selection with the existing city.
		if err := e.setStage(u.ID, models.StageOf(models.StageAskBoard)); err != nil {
			return Reply{}, err
		}
		return withChoices(i18n.T(u.Language, "ask_board"), boardChoices(u.Language)), nil
	case "D":
		if err := e.setStage(u.ID, models.StageOf(models.StageEditGrade)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "edit_grade")), nil
	case "E":
		return e.cmdSubject(u)
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
		return Reply{}, err
	}
	return text(i18n.T(u.Language, "unknown")), nil
}

func (e *Engine) handleProfileEdit(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	value := strings.TrimSpace(ev.Text)
	if value == "" {
		return text(i18n.T(u.Language, "unknown")), nil
	}

	var patch models.UserPatch
	switch sess.Stage.Kind {
	case models.StageEditName:
		first, last, _ := strings.Cut(value, " ")
		patch.FirstName = &first
		if last = strings.TrimSpace(last); last != "" {
			patch.LastName = &last
		}
	case models.StageEditCity:
		patch.City = &value
	case models.StageEditGrade:
		grade, err := strconv.Atoi(value)
		if err != nil || grade < models.MinGrade || grade > models.MaxGrade {
			return text(i18n.T(u.Language, "bad_grade")), nil
		}
		gradeStr := strconv.Itoa(grade)
		patch.Grade = &gradeStr
	default:
		return text(i18n.T(u.Language, "unknown")), nil
	}

	if err := e.store.UpdateUser(u.ID, patch); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine profile edited", "userID", u.ID, "stage", sess.Stage.Tag())
	return text(i18n.T(u.Language, "profile_saved")), nil
}

// handleLesson covers the window between lesson delivery and the quiz; any
// input moves into the quiz at the stored cursor.
func (e *Engine) handleLesson(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	if sess.LessonID == 0 {
		if err := e.setStage(u.ID, models.StageOf(models.StageIdle)); err != nil {
			return Reply{}, err
		}
		return text(i18n.T(u.Language, "next_lesson_hint")), nil
	}
	sess.Stage = models.StageOf(models.StageQuiz)
	if err := e.store.SetSession(*sess); err != nil {
		return Reply{}, err
	}
	r, err := e.askQuestion(ctx, u, sess)
	if err != nil {
		return Reply{}, err
	}
	if sess.QIndex == 0 && len(r.Messages) > 0 {
		r.Messages = append([]Message{{Text: i18n.T(u.Language, "quiz_intro")}}, r.Messages...)
	}
	return r, nil
}
