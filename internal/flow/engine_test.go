package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/btrlrn/learnbuddy/internal/models"
	"github.com/btrlrn/learnbuddy/internal/store"
)

// mockGenerator returns a fixed lesson shaped from the requesting user.
type mockGenerator struct {
	err      error
	lastUser models.User
	mastered []string
}

func (m *mockGenerator) Generate(ctx context.Context, u models.User, mastered []string, recent []models.HistoryRecord) (*models.Lesson, error) {
	m.lastUser = u
	m.mastered = mastered
	if m.err != nil {
		return nil, m.err
	}
	qs := make([]models.Question, 3)
	for i := range qs {
		qs[i] = models.Question{
			Text:        "Pick option A.",
			Options:     []string{"right", "wrong", "wrong", "wrong"},
			Answer:      "A",
			Explanation: "A is the designated answer.",
		}
	}
	return &models.Lesson{
		UserID: u.ID, Board: u.Board, Grade: u.Grade, Subject: u.Subject, Level: u.Level,
		Title: "Test Topic", Intro: []string{"Bullet one.", "Bullet two."}, Questions: qs,
	}, nil
}

func (m *mockGenerator) Translate(ctx context.Context, lang, text string) (string, error) {
	return text, nil
}

// mockGeocoder resolves every city to a fixed state, or none.
type mockGeocoder struct {
	state string
	err   error
}

func (m *mockGeocoder) StateForCity(ctx context.Context, city string) (string, error) {
	return m.state, m.err
}

type testEnv struct {
	engine *Engine
	store  *store.InMemoryStore
	gen    *mockGenerator
	geo    *mockGeocoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewInMemoryStore()
	gen := &mockGenerator{}
	geo := &mockGeocoder{}
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(st, gen, geo, WithClock(func() time.Time { return fixed }))
	return &testEnv{engine: e, store: st, gen: gen, geo: geo}
}

func (env *testEnv) send(t *testing.T, userID, msg string) Reply {
	t.Helper()
	r, err := env.engine.Handle(context.Background(), userID, models.Event{Text: msg})
	if err != nil {
		t.Fatalf("Handle(%q) failed: %v", msg, err)
	}
	return r
}

func (env *testEnv) press(t *testing.T, userID, payload string) Reply {
	t.Helper()
	r, err := env.engine.Handle(context.Background(), userID, models.Event{Button: payload})
	if err != nil {
		t.Fatalf("Handle(button %q) failed: %v", payload, err)
	}
	return r
}

func firstText(r Reply) string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].Text
}

func lastText(r Reply) string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Text
}

// onboard walks a user through the CBSE happy path up to the subject chooser.
func (env *testEnv) onboard(t *testing.T, userID string) {
	t.Helper()
	env.send(t, userID, "hi")
	env.press(t, userID, "LANG:en")
	env.send(t, userID, "Asha")
	env.send(t, userID, "Patil")
	env.send(t, userID, "15-08-2011")
	env.send(t, userID, "9876543210")
	env.send(t, userID, "Pune")
	env.press(t, userID, "BOARD:CBSE")
	env.press(t, userID, "GRADE:6")
	env.press(t, userID, "SUBJ:Mathematics")
}

func TestNewUserGetsLanguagePrompt(t *testing.T) {
	env := newTestEnv(t)
	r := env.send(t, "tg:1", "hello")

	if !strings.Contains(firstText(r), "choose your language") {
		t.Errorf("expected language prompt, got %q", firstText(r))
	}
	if len(r.Messages[0].Choices) != 3 {
		t.Errorf("expected 3 language choices, got %d", len(r.Messages[0].Choices))
	}
	u, _ := env.store.GetUser("tg:1")
	if u == nil {
		t.Fatal("user not created")
	}
	if u.Level != 1 || u.Language != "en" {
		t.Errorf("unexpected defaults: %+v", u)
	}
}

func TestOnboardingHappyPathCBSE(t *testing.T) {
	env := newTestEnv(t)
	id := "tg:2"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:en")
	env.send(t, id, "Asha")
	env.send(t, id, "Patil")
	env.send(t, id, "15-08-2011")
	env.send(t, id, "9876543210")
	env.send(t, id, "Pune")
	r := env.press(t, id, "BOARD:CBSE")
	if !strings.Contains(firstText(r), "grade") {
		t.Errorf("expected grade prompt, got %q", firstText(r))
	}

	r = env.press(t, id, "GRADE:6")
	if !strings.Contains(firstText(r), "all set") {
		t.Errorf("expected completion message, got %q", firstText(r))
	}
	if !strings.Contains(lastText(r), "subject") {
		t.Errorf("expected subject chooser, got %q", lastText(r))
	}

	u, _ := env.store.GetUser(id)
	if u.FirstName != "Asha" || u.LastName != "Patil" || u.DOB != "15-08-2011" {
		t.Errorf("profile fields wrong: %+v", u)
	}
	if u.Phone != "9876543210" || u.City != "Pune" || u.Board != "CBSE" || u.Grade != "6" {
		t.Errorf("profile fields wrong: %+v", u)
	}
	if u.Subject != "Mathematics" || u.Level != 1 || u.Streak != 0 {
		t.Errorf("grade step must set defaults: subject=%q level=%d streak=%d", u.Subject, u.Level, u.Streak)
	}

	r = env.press(t, id, "SUBJ:Science")
	if !strings.Contains(firstText(r), "Science") {
		t.Errorf("expected subject confirmation, got %q", firstText(r))
	}
	sess, _ := env.store.GetSession(id)
	if sess.Stage.Kind != models.StageIdle {
		t.Errorf("expected idle after subject, got %v", sess.Stage.Kind)
	}
}

func TestOnboardingRejectsBadDOB(t *testing.T) {
	env := newTestEnv(t)
	id := "tg:3"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:en")
	env.send(t, id, "Ravi")
	env.send(t, id, "Kumar")

	for _, bad := range []string{"2011-08-15", "15/08/2011", "32-01-2011", "15-13-2011", "nope"} {
		r := env.send(t, id, bad)
		if !strings.Contains(firstText(r), "DD-MM-YYYY") {
			t.Errorf("DOB %q should be rejected, got %q", bad, firstText(r))
		}
	}
	sess, _ := env.store.GetSession(id)
	if sess.Stage.Kind != models.StageAskDOB {
		t.Errorf("stage should not advance on bad DOB, got %v", sess.Stage.Kind)
	}

	r := env.send(t, id, "29-02-2012")
	if !strings.Contains(firstText(r), "mobile") {
		t.Errorf("leap-day DOB should be accepted, got %q", firstText(r))
	}
}

func TestOnboardingPhoneNormalization(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "9876543210", true},
		{"+91 98765 43210", "9876543210", true},
		{"919876543210", "9876543210", true},
		{"98765-43210", "9876543210", true},
		{"1234567890", "", false}, // must start 6-9
		{"98765", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizePhone(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("normalizePhone(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestOnboardingPhoneViaContact(t *testing.T) {
	env := newTestEnv(t)
	id := "tg:4"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:hi")
	env.send(t, id, "Ravi")
	env.send(t, id, "Kumar")
	r := env.send(t, id, "15-08-2011")
	if !r.Messages[0].RequestContact {
		t.Error("phone prompt should request contact")
	}

	r2, err := env.engine.Handle(context.Background(), id, models.Event{Contact: "+919812345678"})
	if err != nil {
		t.Fatalf("contact event failed: %v", err)
	}
	if len(r2.Messages) == 0 {
		t.Fatal("no reply to contact")
	}
	u, _ := env.store.GetUser(id)
	if u.Phone != "9812345678" {
		t.Errorf("contact phone not normalized: %q", u.Phone)
	}
	if u.Language != "hi" {
		t.Errorf("language not persisted: %q", u.Language)
	}
}

func TestStateBoardConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	env.geo.state = "Maharashtra"
	id := "tg:5"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:mr")
	env.send(t, id, "Sai")
	env.send(t, id, "Joshi")
	env.send(t, id, "01-01-2012")
	env.send(t, id, "9876543210")
	env.send(t, id, "Pune")

	r := env.press(t, id, "BOARD:STATE")
	if !strings.Contains(firstText(r), "Maharashtra") {
		t.Errorf("expected state confirmation, got %q", firstText(r))
	}

	env.press(t, id, "YN:Y")
	u, _ := env.store.GetUser(id)
	if u.State != "Maharashtra" {
		t.Errorf("state not set: %q", u.State)
	}
	if u.Board != "SSC" {
		t.Errorf("Maharashtra should map to SSC, got %q", u.Board)
	}
}

func TestStateBoardPickerFlow(t *testing.T) {
	env := newTestEnv(t)
	env.geo.err = errors.New("geocoder down")
	id := "tg:6"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:en")
	env.send(t, id, "Dev")
	env.send(t, id, "Singh")
	env.send(t, id, "01-01-2012")
	env.send(t, id, "9876543210")
	env.send(t, id, "Smalltown")

	r := env.press(t, id, "BOARD:STATE")
	if !strings.Contains(firstText(r), "select your state") {
		t.Errorf("geocode failure should fall back to picker, got %q", firstText(r))
	}
	var hasMore bool
	for _, c := range r.Messages[0].Choices {
		if strings.HasPrefix(c.Data, "PG:") {
			hasMore = true
		}
	}
	if !hasMore {
		t.Error("first picker page should offer a next page")
	}

	r = env.press(t, id, "PG:8")
	sess, _ := env.store.GetSession(id)
	if sess.Stage.Kind != models.StagePickState || sess.Stage.PageOffset != 8 {
		t.Errorf("pager offset not stored: %+v", sess.Stage)
	}
	found := false
	for _, c := range r.Messages[0].Choices {
		if c.Data == "STATE:Karnataka" {
			found = true
		}
	}
	if !found {
		t.Errorf("second page should list Karnataka, got %+v", r.Messages[0].Choices)
	}

	env.press(t, id, "STATE:Karnataka")
	u, _ := env.store.GetUser(id)
	if u.State != "Karnataka" || u.Board != "STATE: Karnataka" {
		t.Errorf("picked state not applied: state=%q board=%q", u.State, u.Board)
	}
}

func TestConfirmStateDeclineGoesToPicker(t *testing.T) {
	env := newTestEnv(t)
	env.geo.state = "Goa"
	id := "tg:7"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:en")
	env.send(t, id, "A")
	env.send(t, id, "B")
	env.send(t, id, "01-01-2012")
	env.send(t, id, "9876543210")
	env.send(t, id, "Somewhere")
	env.press(t, id, "BOARD:STATE")

	r := env.press(t, id, "YN:N")
	if !strings.Contains(firstText(r), "select your state") {
		t.Errorf("declining should open picker, got %q", firstText(r))
	}
}

func TestGradeValidation(t *testing.T) {
	env := newTestEnv(t)
	id := "tg:8"
	env.send(t, id, "hi")
	env.press(t, id, "LANG:en")
	env.send(t, id, "A")
	env.send(t, id, "B")
	env.send(t, id, "01-01-2012")
	env.send(t, id, "9876543210")
	env.send(t, id, "Delhi")
	env.press(t, id, "BOARD:CBSE")

	for _, bad := range []string{"5", "13", "abc", "0"} {
		r := env.send(t, id, bad)
		if !strings.Contains(firstText(r), "between 6 and 12") {
			t.Errorf("grade %q should be rejected, got %q", bad, firstText(r))
		}
	}
	env.send(t, id, "12")
	u, _ := env.store.GetUser(id)
	if u.Grade != "12" {
		t.Errorf("typed grade not accepted: %q", u.Grade)
	}
}

func TestHelpCommand(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:9")
	r := env.send(t, "tg:9", "help")
	if !strings.Contains(firstText(r), "START") || !strings.Contains(firstText(r), "RESET") {
		t.Errorf("help text incomplete: %q", firstText(r))
	}
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:10")

	r := env.send(t, "tg:10", "STATS")
	if !strings.Contains(firstText(r), "No quizzes yet") {
		t.Errorf("expected empty stats, got %q", firstText(r))
	}

	for i := 0; i < 7; i++ {
		env.store.AppendHistory(models.HistoryRecord{
			UserID: "tg:10", Subject: "Mathematics", Level: i + 1, Score: 2, Total: 3,
		})
	}
	r = env.send(t, "tg:10", "stats")
	if !strings.Contains(firstText(r), "last 5 quizzes") {
		t.Errorf("expected stats header, got %q", firstText(r))
	}
	if got := strings.Count(firstText(r), "Mathematics"); got != 5 {
		t.Errorf("expected 5 stat lines, got %d in %q", got, firstText(r))
	}
}

func TestRankCommandReturnsMockLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:11")

	r := env.send(t, "tg:11", "RANK")
	if !strings.Contains(firstText(r), "Leaderboard") {
		t.Errorf("expected leaderboard text, got %q", firstText(r))
	}

	// The text is a constant, independent of level and streak.
	lvl, streak := 50, 50
	env.store.UpdateUser("tg:11", models.UserPatch{Level: &lvl, Streak: &streak})
	if again := env.send(t, "tg:11", "RANK"); firstText(again) != firstText(r) {
		t.Errorf("rank changed with profile: %q vs %q", firstText(again), firstText(r))
	}
}

func TestResetClearsSessionKeepsProfile(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:12")
	env.startLesson(t, "tg:12")
	env.press(t, "tg:12", "ANS:A")

	r := env.send(t, "tg:12", "RESET")
	if !strings.Contains(firstText(r), "reset") {
		t.Errorf("expected reset confirmation, got %q", firstText(r))
	}
	u, _ := env.store.GetUser("tg:12")
	if u == nil {
		t.Fatal("profile must survive RESET")
	}
	if u.FirstName != "Asha" || u.Subject != "Mathematics" {
		t.Errorf("profile fields lost: %+v", u)
	}

	// Repeated RESET stays at an empty idle session.
	for i := 0; i < 2; i++ {
		env.send(t, "tg:12", "RESET")
		sess, _ := env.store.GetSession("tg:12")
		if sess.Stage.Kind != models.StageIdle || sess.QIndex != 0 || sess.Score != 0 || sess.LessonID != 0 {
			t.Errorf("RESET %d left session %+v", i, sess)
		}
	}
}

func TestProfileMenuEditCity(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:13")

	r := env.send(t, "tg:13", "PROFILE")
	if !strings.Contains(firstText(r), "Asha Patil") {
		t.Errorf("profile should show name, got %q", firstText(r))
	}
	if !strings.Contains(firstText(r), "B) City") {
		t.Errorf("profile should show menu, got %q", firstText(r))
	}

	env.send(t, "tg:13", "B")
	env.send(t, "tg:13", "Mumbai")
	u, _ := env.store.GetUser("tg:13")
	if u.City != "Mumbai" {
		t.Errorf("city edit not applied: %q", u.City)
	}
	sess, _ := env.store.GetSession("tg:13")
	if sess.Stage.Kind != models.StageIdle {
		t.Errorf("should return to idle after edit, got %v", sess.Stage.Kind)
	}
}

func TestProfileMenuEditName(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:14")

	env.send(t, "tg:14", "PROFILE")
	env.send(t, "tg:14", "A")
	env.send(t, "tg:14", "Meera Iyer")
	u, _ := env.store.GetUser("tg:14")
	if u.FirstName != "Meera" || u.LastName != "Iyer" {
		t.Errorf("name edit not applied: %q %q", u.FirstName, u.LastName)
	}
}

func TestSubjectCommand(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:15")

	r := env.send(t, "tg:15", "SUBJECT")
	if len(r.Messages[0].Choices) == 0 {
		t.Fatal("expected subject choices")
	}
	env.send(t, "tg:15", "science")
	u, _ := env.store.GetUser("tg:15")
	if u.Subject != "Science" {
		t.Errorf("typed subject should match case-insensitively, got %q", u.Subject)
	}
}

func TestSubjectLetterIndexesIntoList(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:18")

	// CBSE grade 6 list starts English, Hindi, Mathematics, ...
	env.send(t, "tg:18", "SUBJECT")
	env.send(t, "tg:18", "b")
	u, _ := env.store.GetUser("tg:18")
	if u.Subject != "Hindi" {
		t.Errorf("letter B should pick the second subject, got %q", u.Subject)
	}

	// Out-of-range letter re-prompts without touching the profile.
	env.send(t, "tg:18", "SUBJECT")
	r := env.send(t, "tg:18", "Z")
	if !strings.Contains(firstText(r), "subject") {
		t.Errorf("expected re-prompt, got %q", firstText(r))
	}
	u, _ = env.store.GetUser("tg:18")
	if u.Subject != "Hindi" {
		t.Errorf("invalid letter must not change subject, got %q", u.Subject)
	}
}

func TestSubjectRejectsUnknownText(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:19")

	env.send(t, "tg:19", "SUBJECT")
	r := env.send(t, "tg:19", "Astrology")
	if !strings.Contains(firstText(r), "subject") {
		t.Errorf("expected re-prompt, got %q", firstText(r))
	}
	u, _ := env.store.GetUser("tg:19")
	if u.Subject != "Mathematics" {
		t.Errorf("free text must not become the subject, got %q", u.Subject)
	}
	sess, _ := env.store.GetSession("tg:19")
	if sess.Stage.Kind != models.StageChooseSubject {
		t.Errorf("should stay at the chooser, got %v", sess.Stage.Kind)
	}
}

func TestSubjectSelectionResetsLevel(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:33")
	lvl := 7
	env.store.UpdateUser("tg:33", models.UserPatch{Level: &lvl})

	env.send(t, "tg:33", "SUBJECT")
	env.press(t, "tg:33", "SUBJ:Science")
	u, _ := env.store.GetUser("tg:33")
	if u.Subject != "Science" || u.Level != 1 {
		t.Errorf("new subject should start at level 1, got subject=%q level=%d", u.Subject, u.Level)
	}
}

func TestSubjectButtonPayloadMustBeListed(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:34")

	env.send(t, "tg:34", "SUBJECT")
	r := env.press(t, "tg:34", "SUBJ:Astrology")
	if !strings.Contains(firstText(r), "subject") {
		t.Errorf("expected re-prompt, got %q", firstText(r))
	}
	u, _ := env.store.GetUser("tg:34")
	if u.Subject != "Mathematics" {
		t.Errorf("unlisted payload must not become the subject, got %q", u.Subject)
	}
}

func TestUnknownInputWhenIdle(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:16")

	r := env.send(t, "tg:16", "what's the weather")
	if !strings.Contains(firstText(r), "HELP") {
		t.Errorf("expected unknown-input hint, got %q", firstText(r))
	}
}

func TestHandleEmptyUserID(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.engine.Handle(context.Background(), "", models.Event{Text: "hi"}); !errors.Is(err, models.ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestLastSeenTouchedOnActivity(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "tg:17")
	env.send(t, "tg:17", "HELP")
	u, _ := env.store.GetUser("tg:17")
	if u.LastSeen.IsZero() {
		t.Error("last_seen should be set")
	}
}
