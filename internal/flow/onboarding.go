package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/btrlrn/learnbuddy/internal/i18n"
	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/syllabus"
)

var (
	dobPattern   = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// handleOnboarding advances the profile-collection sequence one step.
func (e *Engine) handleOnboarding(ctx context.Context, u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	slog.Debug("Engine onboarding step", "userID", u.ID, "stage", sess.Stage.Tag())

	switch sess.Stage.Kind {
	case models.StageAskLang:
		return e.onAskLang(u, ev)
	case models.StageAskFirst:
		return e.onAskName(u, ev, true)
	case models.StageAskLast:
		return e.onAskName(u, ev, false)
	case models.StageAskDOB:
		return e.onAskDOB(u, ev)
	case models.StageAskPhone:
		return e.onAskPhone(u, ev)
	case models.StageAskCity:
		return e.onAskCity(u, ev)
	case models.StageAskBoard:
		return e.onAskBoard(ctx, u, ev)
	case models.StageConfirmState:
		return e.onConfirmState(u, sess, ev)
	case models.StagePickState:
		return e.onPickState(u, sess, ev)
	case models.StageAskGrade:
		return e.onAskGrade(u, ev)
	}
	// Unreachable while IsOnboarding and this switch agree.
	return text(i18n.T(u.Language, "unknown")), nil
}

func (e *Engine) onAskLang(u *models.User, ev models.Event) (Reply, error) {
	lang, _ := buttonPayload(ev, "LANG:")
	if lang == "" {
		switch strings.ToLower(eventInput(ev)) {
		case "english", "en":
			lang = "en"
		case "हिन्दी", "hindi", "hi":
			lang = "hi"
		case "मराठी", "marathi", "mr":
			lang = "mr"
		}
	}
	if !i18n.IsSupported(lang) {
		return withChoices(i18n.T(u.Language, "choose_language"), languageChoices()), nil
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{Language: &lang}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageAskFirst)); err != nil {
		return Reply{}, err
	}
	return text(i18n.T(lang, "ask_first_name")), nil
}

func (e *Engine) onAskName(u *models.User, ev models.Event, first bool) (Reply, error) {
	name := strings.TrimSpace(ev.Text)
	if name == "" || len(name) > 64 {
		key := "ask_last_name"
		if first {
			key = "ask_first_name"
		}
		return text(i18n.T(u.Language, key)), nil
	}
	var patch models.UserPatch
	next := models.StageAskDOB
	prompt := "ask_dob"
	if first {
		patch.FirstName = &name
		next = models.StageAskLast
		prompt = "ask_last_name"
	} else {
		patch.LastName = &name
	}
	if err := e.store.UpdateUser(u.ID, patch); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(next)); err != nil {
		return Reply{}, err
	}
	return text(i18n.T(u.Language, prompt)), nil
}

func (e *Engine) onAskDOB(u *models.User, ev models.Event) (Reply, error) {
	dob := strings.TrimSpace(ev.Text)
	if !validDOB(dob) {
		return text(i18n.T(u.Language, "bad_dob")), nil
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{DOB: &dob}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageAskPhone)); err != nil {
		return Reply{}, err
	}
	return Reply{Messages: []Message{{
		Text:           i18n.T(u.Language, "ask_phone"),
		RequestContact: true,
	}}}, nil
}

// validDOB accepts DD-MM-YYYY dates that actually exist.
func validDOB(s string) bool {
	if !dobPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("02-01-2006", s)
	return err == nil
}

func (e *Engine) onAskPhone(u *models.User, ev models.Event) (Reply, error) {
	raw := ev.Contact
	if raw == "" {
		raw = ev.Text
	}
	phone, ok := normalizePhone(raw)
	if !ok {
		return Reply{Messages: []Message{{
			Text:           i18n.T(u.Language, "bad_phone"),
			RequestContact: true,
		}}}, nil
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{Phone: &phone}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageAskCity)); err != nil {
		return Reply{}, err
	}
	return text(i18n.T(u.Language, "ask_city")), nil
}

// normalizePhone strips formatting and the country prefix, then checks for a
// valid Indian mobile number.
func normalizePhone(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	if !phonePattern.MatchString(p) {
		return "", false
	}
	return p, true
}

func (e *Engine) onAskCity(u *models.User, ev models.Event) (Reply, error) {
	city := strings.TrimSpace(ev.Text)
	if city == "" {
		return text(i18n.T(u.Language, "ask_city")), nil
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{City: &city}); err != nil {
		return Reply{}, err
	}
	u.City = city
	if err := e.setStage(u.ID, models.StageOf(models.StageAskBoard)); err != nil {
		return Reply{}, err
	}
	return withChoices(i18n.T(u.Language, "ask_board"), boardChoices(u.Language)), nil
}

func boardChoices(lang string) []Choice {
	return []Choice{
		{Label: "CBSE", Data: "BOARD:CBSE"},
		{Label: "ICSE", Data: "BOARD:ICSE"},
		{Label: i18n.T(lang, "state_board"), Data: "BOARD:STATE"},
	}
}

func (e *Engine) onAskBoard(ctx context.Context, u *models.User, ev models.Event) (Reply, error) {
	board, _ := buttonPayload(ev, "BOARD:")
	if board == "" {
		switch strings.ToUpper(eventInput(ev)) {
		case "CBSE":
			board = "CBSE"
		case "ICSE":
			board = "ICSE"
		case "STATE", "STATE BOARD":
			board = "STATE"
		}
	}

	switch board {
	case "CBSE", "ICSE":
		if err := e.store.UpdateUser(u.ID, models.UserPatch{Board: &board}); err != nil {
			return Reply{}, err
		}
		if err := e.setStage(u.ID, models.StageOf(models.StageAskGrade)); err != nil {
			return Reply{}, err
		}
		return withChoices(i18n.T(u.Language, "ask_grade"), gradeChoices()), nil
	case "STATE":
		// Try to guess the state from the city before falling back to the
		// manual picker.
		state, err := e.geo.StateForCity(ctx, u.City)
		if err != nil {
			slog.Warn("Engine geocode failed during onboarding", "error", err, "userID", u.ID, "city", u.City)
			state = ""
		}
		if state != "" {
			if err := e.setStage(u.ID, models.ConfirmStateStage(state)); err != nil {
				return Reply{}, err
			}
			return withChoices(i18n.T(u.Language, "confirm_state", state), []Choice{
				{Label: i18n.T(u.Language, "btn_yes"), Data: "YN:Y"},
				{Label: i18n.T(u.Language, "btn_no"), Data: "YN:N"},
			}), nil
		}
		return e.showStatePicker(u, 0)
	default:
		return withChoices(i18n.T(u.Language, "ask_board"), boardChoices(u.Language)), nil
	}
}

func (e *Engine) onConfirmState(u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	answer, _ := buttonPayload(ev, "YN:")
	switch strings.ToUpper(answer) {
	case "Y", "YES":
		return e.applyState(u, sess.Stage.StateGuess)
	case "N", "NO":
		return e.showStatePicker(u, 0)
	}
	if state := syllabus.BestMatchState(ev.Text); state != "" {
		return e.applyState(u, state)
	}
	return withChoices(i18n.T(u.Language, "confirm_state", sess.Stage.StateGuess), []Choice{
		{Label: i18n.T(u.Language, "btn_yes"), Data: "YN:Y"},
		{Label: i18n.T(u.Language, "btn_no"), Data: "YN:N"},
	}), nil
}

func (e *Engine) onPickState(u *models.User, sess *models.Session, ev models.Event) (Reply, error) {
	if state, ok := buttonPayload(ev, "STATE:"); ok && syllabus.IsKnownState(state) {
		return e.applyState(u, state)
	}
	if pg, ok := buttonPayload(ev, "PG:"); ok {
		offset, err := strconv.Atoi(pg)
		if err != nil {
			offset = 0
		}
		return e.showStatePicker(u, offset)
	}
	if state := syllabus.BestMatchState(ev.Text); state != "" {
		return e.applyState(u, state)
	}
	return e.showStatePicker(u, sess.Stage.PageOffset)
}

// showStatePicker renders one page of the state list with pager buttons.
func (e *Engine) showStatePicker(u *models.User, offset int) (Reply, error) {
	if err := e.setStage(u.ID, models.PickStateStage(offset)); err != nil {
		return Reply{}, err
	}
	page, hasPrev, hasNext := syllabus.StatePage(offset)
	choices := make([]Choice, 0, len(page)+2)
	for _, s := range page {
		choices = append(choices, Choice{Label: s, Data: "STATE:" + s})
	}
	if hasPrev {
		choices = append(choices, Choice{
			Label: i18n.T(u.Language, "btn_prev"),
			Data:  "PG:" + strconv.Itoa(offset-syllabus.StatePageSize),
		})
	}
	if hasNext {
		choices = append(choices, Choice{
			Label: i18n.T(u.Language, "btn_more"),
			Data:  "PG:" + strconv.Itoa(offset+syllabus.StatePageSize),
		})
	}
	return withChoices(i18n.T(u.Language, "pick_state"), choices), nil
}

// applyState records the state and derives the board, then moves to grade.
func (e *Engine) applyState(u *models.User, state string) (Reply, error) {
	board := syllabus.SuggestBoardForState(state)
	if board == "" {
		board = "STATE: " + state
	}
	if err := e.store.UpdateUser(u.ID, models.UserPatch{State: &state, Board: &board}); err != nil {
		return Reply{}, err
	}
	if err := e.setStage(u.ID, models.StageOf(models.StageAskGrade)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine state selected", "userID", u.ID, "state", state, "board", board)
	return withChoices(i18n.T(u.Language, "ask_grade"), gradeChoices()), nil
}

func gradeChoices() []Choice {
	choices := make([]Choice, 0, models.MaxGrade-models.MinGrade+1)
	for g := models.MinGrade; g <= models.MaxGrade; g++ {
		n := strconv.Itoa(g)
		choices = append(choices, Choice{Label: n, Data: "GRADE:" + n})
	}
	return choices
}

func (e *Engine) onAskGrade(u *models.User, ev models.Event) (Reply, error) {
	raw, ok := buttonPayload(ev, "GRADE:")
	if !ok {
		raw = eventInput(ev)
	}
	grade, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || grade < models.MinGrade || grade > models.MaxGrade {
		return withChoices(i18n.T(u.Language, "bad_grade"), gradeChoices()), nil
	}

	gradeStr := strconv.Itoa(grade)
	subject := "Mathematics"
	level := 1
	streak := 0
	patch := models.UserPatch{
		Grade:   &gradeStr,
		Subject: &subject,
		Level:   &level,
		Streak:  &streak,
	}
	if err := e.store.UpdateUser(u.ID, patch); err != nil {
		return Reply{}, err
	}
	u.Grade = gradeStr
	if err := e.setStage(u.ID, models.StageOf(models.StageChooseSubject)); err != nil {
		return Reply{}, err
	}
	slog.Info("Engine onboarding complete", "userID", u.ID, "grade", gradeStr)

	done := i18n.T(u.Language, "onboard_done", u.FirstName)
	fresh, err := e.store.GetUser(u.ID)
	if err == nil && fresh != nil {
		u = fresh
	}
	return Reply{Messages: []Message{
		{Text: done},
		{Text: i18n.T(u.Language, "choose_subject"), Choices: subjectChoices(u)},
	}}, nil
}

func subjectChoices(u *models.User) []Choice {
	subs := syllabus.SubjectsFor(u.Board, u.Grade)
	choices := make([]Choice, 0, len(subs))
	for _, s := range subs {
		choices = append(choices, Choice{Label: s, Data: "SUBJ:" + s})
	}
	return choices
}

// profileSummary renders the profile block shown by the PROFILE command.
func profileSummary(u *models.User) string {
	grade := u.Grade
	if grade == "" {
		grade = "-"
	}
	return fmt.Sprintf("%s %s\n%s, %s\n%s | Grade %s\n%s (level %d)",
		u.FirstName, u.LastName, u.City, u.State, u.Board, grade, u.Subject, u.Level)
}
