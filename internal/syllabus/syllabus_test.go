package syllabus

import (
	"reflect"
	"strconv"
	"testing"
)

func TestSubjectsForKnownBoards(t *testing.T) {
	for _, board := range []string{"CBSE", "ICSE", "SSC", "STATE"} {
		for grade := 6; grade <= 12; grade++ {
			subs := SubjectsFor(board, strconv.Itoa(grade))
			if len(subs) == 0 {
				t.Errorf("%s grade %d: empty subject list", board, grade)
			}
			// Deterministic and order-stable across calls.
			again := SubjectsFor(board, strconv.Itoa(grade))
			if !reflect.DeepEqual(subs, again) {
				t.Errorf("%s grade %d: unstable subject list", board, grade)
			}
		}
	}
}

func TestSubjectsForGradeString(t *testing.T) {
	subs := SubjectsFor("CBSE", "6")
	want := []string{"English", "Hindi", "Mathematics", "Science", "Social Science"}
	if !reflect.DeepEqual(subs, want) {
		t.Errorf("CBSE/6: got %v", subs)
	}
}

func TestSubjectsForFallback(t *testing.T) {
	if got := SubjectsFor("UNKNOWN", "6"); !reflect.DeepEqual(got, FallbackSubjects) {
		t.Errorf("unknown board: got %v", got)
	}
	if got := SubjectsFor("", ""); !reflect.DeepEqual(got, FallbackSubjects) {
		t.Errorf("empty board: got %v", got)
	}
}

func TestSubjectsForStatePrefixedBoard(t *testing.T) {
	got := SubjectsFor("STATE: Karnataka", "7")
	want := SubjectsFor("STATE", "7")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("STATE: Karnataka should resolve to STATE table, got %v", got)
	}
}

func TestSuggestBoardForState(t *testing.T) {
	if got := SuggestBoardForState("Maharashtra"); got != "SSC" {
		t.Errorf("Maharashtra: got %q", got)
	}
	if got := SuggestBoardForState(" maharashtra "); got != "SSC" {
		t.Errorf("case/space-insensitive match failed: got %q", got)
	}
	if got := SuggestBoardForState("Karnataka"); got != "" {
		t.Errorf("Karnataka: expected no preset, got %q", got)
	}
}

func TestTopicHint(t *testing.T) {
	cases := map[string]string{
		"Mathematics":                   "mathematics",
		"General Science":               "science",
		"English":                       "english",
		"History & Civics & Geography":  "social science",
		"Computer Applications":         "computer science",
		"Marathi/Hindi (2nd Lang)":      "marathi/hindi (2nd lang)",
		"":                              "general",
	}
	for in, want := range cases {
		if got := TopicHint(in); got != want {
			t.Errorf("TopicHint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBestMatchState(t *testing.T) {
	if got := BestMatchState("maharashtra"); got != "Maharashtra" {
		t.Errorf("exact: got %q", got)
	}
	if got := BestMatchState("Tamil"); got != "Tamil Nadu" {
		t.Errorf("prefix: got %q", got)
	}
	if got := BestMatchState("Atlantis"); got != "" {
		t.Errorf("miss: got %q", got)
	}
}

func TestStatePage(t *testing.T) {
	page, hasPrev, hasNext := StatePage(0)
	if len(page) != StatePageSize || hasPrev || !hasNext {
		t.Errorf("first page: len=%d prev=%v next=%v", len(page), hasPrev, hasNext)
	}
	last := (len(IndianStates) / StatePageSize) * StatePageSize
	if last == len(IndianStates) {
		last -= StatePageSize
	}
	page, hasPrev, hasNext = StatePage(last)
	if hasNext || !hasPrev {
		t.Errorf("last page: prev=%v next=%v", hasPrev, hasNext)
	}
	if len(page) == 0 {
		t.Error("last page empty")
	}
}
