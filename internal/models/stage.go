// Package models defines state management structures for LearnBuddy flows.
package models

import (
	"strconv"
	"strings"
)

// StageKind names one logical phase of the conversation state machine.
type StageKind string

// Stage kind constants, ordered roughly as the onboarding flow visits them.
const (
	StageAskLang       StageKind = "ask_lang"
	StageAskFirst      StageKind = "ask_first"
	StageAskLast       StageKind = "ask_last"
	StageAskDOB        StageKind = "ask_dob"
	StageAskPhone      StageKind = "ask_phone"
	StageAskCity       StageKind = "ask_city"
	StageAskBoard      StageKind = "ask_board"
	StageConfirmState  StageKind = "confirm_state" // carries the guessed state name
	StagePickState     StageKind = "pick_state"    // carries the pager offset
	StageAskGrade      StageKind = "ask_grade"
	StageChooseSubject StageKind = "choose_subject"
	StageProfileMenu   StageKind = "profile_menu"
	StageEditName      StageKind = "edit_name"
	StageEditCity      StageKind = "edit_city"
	StageEditGrade     StageKind = "edit_grade"
	StageIdle          StageKind = "idle"
	StageLesson        StageKind = "lesson"
	StageQuiz          StageKind = "quiz"
)

// Stage is the typed cursor for the conversation state machine. The two
// parameterized kinds carry their payload as typed fields rather than
// delimiter-joined strings; Tag/ParseStageTag round-trip the stored form.
type Stage struct {
	Kind       StageKind `json:"kind"`
	StateGuess string    `json:"state_guess,omitempty"` // StageConfirmState only
	PageOffset int       `json:"page_offset,omitempty"` // StagePickState only
}

// StageOf returns an unparameterized stage of the given kind.
func StageOf(k StageKind) Stage { return Stage{Kind: k} }

// ConfirmStateStage returns the state-confirmation stage for a guessed name.
func ConfirmStateStage(guess string) Stage {
	return Stage{Kind: StageConfirmState, StateGuess: guess}
}

// PickStateStage returns the paged state-picker stage at the given offset.
func PickStateStage(offset int) Stage {
	if offset < 0 {
		offset = 0
	}
	return Stage{Kind: StagePickState, PageOffset: offset}
}

// Tag renders the stage into its stored string form, e.g.
// "confirm_state:Maharashtra" or "pick_state:8".
func (s Stage) Tag() string {
	switch s.Kind {
	case StageConfirmState:
		return string(StageConfirmState) + ":" + s.StateGuess
	case StagePickState:
		return string(StagePickState) + ":" + strconv.Itoa(s.PageOffset)
	case "":
		return string(StageIdle)
	default:
		return string(s.Kind)
	}
}

// IsOnboarding reports whether the stage belongs to the onboarding sequence,
// during which commands are not dispatched.
func (s Stage) IsOnboarding() bool {
	switch s.Kind {
	case StageAskLang, StageAskFirst, StageAskLast, StageAskDOB, StageAskPhone,
		StageAskCity, StageAskBoard, StageConfirmState, StagePickState, StageAskGrade:
		return true
	}
	return false
}

// ParseStageTag parses a stored stage tag back into a typed Stage. Unknown
// tags map to idle so a stale row cannot strand the conversation.
func ParseStageTag(tag string) Stage {
	if rest, ok := strings.CutPrefix(tag, string(StageConfirmState)+":"); ok {
		return ConfirmStateStage(rest)
	}
	if rest, ok := strings.CutPrefix(tag, string(StagePickState)+":"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil {
			n = 0
		}
		return PickStateStage(n)
	}
	switch k := StageKind(tag); k {
	case StageAskLang, StageAskFirst, StageAskLast, StageAskDOB, StageAskPhone,
		StageAskCity, StageAskBoard, StageAskGrade, StageChooseSubject,
		StageProfileMenu, StageEditName, StageEditCity, StageEditGrade,
		StageIdle, StageLesson, StageQuiz:
		return StageOf(k)
	default:
		return StageOf(StageIdle)
	}
}
