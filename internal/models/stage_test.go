package models

import "testing"

func TestStageTagRoundTrip(t *testing.T) {
	cases := []Stage{
		StageOf(StageAskLang),
		StageOf(StageAskGrade),
		StageOf(StageIdle),
		StageOf(StageQuiz),
		ConfirmStateStage("Maharashtra"),
		PickStateStage(0),
		PickStateStage(16),
	}
	for _, s := range cases {
		got := ParseStageTag(s.Tag())
		if got != s {
			t.Errorf("round trip %q: got %+v, want %+v", s.Tag(), got, s)
		}
	}
}

func TestParseStageTagUnknown(t *testing.T) {
	for _, tag := range []string{"", "bogus", "confirm_state", "pick_state:notanumber"} {
		s := ParseStageTag(tag)
		if s.Kind != StageIdle && tag != "confirm_state" && tag != "pick_state:notanumber" {
			t.Errorf("tag %q: expected idle, got %+v", tag, s)
		}
	}
	// A malformed pick_state offset falls back to page zero, not idle.
	if s := ParseStageTag("pick_state:notanumber"); s.Kind != StagePickState || s.PageOffset != 0 {
		t.Errorf("malformed pick_state: got %+v", s)
	}
}

func TestStageIsOnboarding(t *testing.T) {
	if !StageOf(StageAskDOB).IsOnboarding() {
		t.Error("ask_dob should be onboarding")
	}
	if !ConfirmStateStage("Goa").IsOnboarding() {
		t.Error("confirm_state should be onboarding")
	}
	for _, k := range []StageKind{StageIdle, StageLesson, StageQuiz, StageChooseSubject, StageProfileMenu} {
		if StageOf(k).IsOnboarding() {
			t.Errorf("%s should not be onboarding", k)
		}
	}
}
