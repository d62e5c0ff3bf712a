package models

import "testing"

func validLesson() Lesson {
	qs := make([]Question, 3)
	for i := range qs {
		qs[i] = Question{
			Text:        "What is 2+2?",
			Options:     []string{"3", "4", "5", "6"},
			Answer:      "B",
			Explanation: "2+2 equals 4.",
		}
	}
	return Lesson{Title: "Addition", Intro: []string{"Adding combines numbers."}, Questions: qs}
}

func TestLessonValidate(t *testing.T) {
	l := validLesson()
	if err := l.Validate(); err != nil {
		t.Fatalf("valid lesson rejected: %v", err)
	}

	bad := validLesson()
	bad.Title = ""
	if err := bad.Validate(); err != ErrEmptyLessonTitle {
		t.Errorf("expected ErrEmptyLessonTitle, got %v", err)
	}

	bad = validLesson()
	bad.Questions = bad.Questions[:2]
	if err := bad.Validate(); err != ErrBadQuestionCount {
		t.Errorf("expected ErrBadQuestionCount, got %v", err)
	}

	bad = validLesson()
	bad.Questions[1].Options = bad.Questions[1].Options[:3]
	if err := bad.Validate(); err != ErrBadOptionCount {
		t.Errorf("expected ErrBadOptionCount, got %v", err)
	}

	bad = validLesson()
	bad.Questions[2].Answer = "E"
	if err := bad.Validate(); err != ErrBadAnswerLetter {
		t.Errorf("expected ErrBadAnswerLetter, got %v", err)
	}

	bad = validLesson()
	bad.Intro = nil
	if err := bad.Validate(); err != ErrBadIntroCount {
		t.Errorf("expected ErrBadIntroCount, got %v", err)
	}
}
