// Package models defines the core data structures for LearnBuddy.
//
// It includes the student profile, conversation session, generated lesson,
// and quiz history types shared across modules.
package models

import (
	"errors"
	"time"
)

// Validation constants for lesson content.
const (
	// LessonQuestionCount is the number of quiz questions every lesson carries.
	LessonQuestionCount = 3
	// QuestionOptionCount is the number of options every question carries.
	QuestionOptionCount = 4
	// MinIntroBullets is the minimum number of intro bullets in a lesson.
	MinIntroBullets = 1
	// MaxIntroBullets is the maximum number of intro bullets in a lesson.
	MaxIntroBullets = 4
	// MinGrade and MaxGrade bound the accepted school grades.
	MinGrade = 6
	MaxGrade = 12
)

// Error variables for better error handling and testability.
var (
	ErrEmptyUserID        = errors.New("user id cannot be empty")
	ErrEmptyLessonTitle   = errors.New("lesson title cannot be empty")
	ErrBadIntroCount      = errors.New("lesson must have 1 to 4 intro bullets")
	ErrBadQuestionCount   = errors.New("lesson must have exactly 3 questions")
	ErrBadOptionCount     = errors.New("question must have exactly 4 options")
	ErrBadAnswerLetter    = errors.New("answer must be one of A, B, C, D")
	ErrEmptyQuestionText  = errors.New("question text cannot be empty")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrNoActiveLesson     = errors.New("no active lesson for session")
	ErrGenerationFailed   = errors.New("lesson generation failed")
	ErrUnauthorizedAccess = errors.New("unauthorized")
)

// User is a student profile keyed by a channel-qualified identifier such as
// "telegram:12345" or "whatsapp:+919876543210". Created on first inbound
// message, mutated field-by-field as onboarding steps complete, never deleted.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	DOB       string    `json:"dob,omitempty"` // DD-MM-YYYY
	Phone     string    `json:"phone,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	Board     string    `json:"board,omitempty"` // CBSE | ICSE | SSC | STATE: <name>
	Grade     string    `json:"grade,omitempty"` // "6".."12"
	Subject   string    `json:"subject,omitempty"`
	Level     int       `json:"level"`
	Streak    int       `json:"streak"`
	Language  string    `json:"language,omitempty"` // en | hi | mr
	FirstSeen time.Time `json:"first_seen,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPatch is a field mask for partial profile updates. Nil fields are left
// untouched by the store.
type UserPatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	DOB       *string `json:"dob,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Board     *string `json:"board,omitempty"`
	Grade     *string `json:"grade,omitempty"`
	Subject   *string `json:"subject,omitempty"`
	Level     *int    `json:"level,omitempty"`
	Streak    *int    `json:"streak,omitempty"`
	Language  *string `json:"language,omitempty"`
	LastSeen  *time.Time
	FirstSeen *time.Time
}

// StrPtr returns a pointer to s, for building patches inline.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to n, for building patches inline.
func IntPtr(n int) *int { return &n }

// Session is the single state-machine cursor for a user. One row per user
// identifier, replaced wholesale on every stage transition; no history of
// past stages is retained.
type Session struct {
	UserID    string    `json:"user_id"`
	Stage     Stage     `json:"stage"`
	QIndex    int       `json:"q_index"`
	Score     int       `json:"score"`
	LessonID  int64     `json:"lesson_id,omitempty"` // 0 means no active lesson
	CreatedAt time.Time `json:"created_at"`
}

// Question is one multiple-choice quiz item.
type Question struct {
	Text        string   `json:"q"`
	Options     []string `json:"options"` // exactly 4
	Answer      string   `json:"ans"`     // "A".."D"
	Explanation string   `json:"explain"`
}

// Validate checks a single question's shape.
func (q *Question) Validate() error {
	if q.Text == "" {
		return ErrEmptyQuestionText
	}
	if len(q.Options) != QuestionOptionCount {
		return ErrBadOptionCount
	}
	switch q.Answer {
	case "A", "B", "C", "D":
	default:
		return ErrBadAnswerLetter
	}
	return nil
}

// Lesson is one generated unit of instructional content plus its quiz.
// Immutable once created; referenced by Session via LessonID.
type Lesson struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Board     string     `json:"board"`
	Grade     string     `json:"grade"`
	Subject   string     `json:"subject"`
	Level     int        `json:"level"`
	Title     string     `json:"title"`
	Intro     []string   `json:"intro"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate performs field-by-field validation of generated lesson content.
func (l *Lesson) Validate() error {
	if l.Title == "" {
		return ErrEmptyLessonTitle
	}
	if len(l.Intro) < MinIntroBullets || len(l.Intro) > MaxIntroBullets {
		return ErrBadIntroCount
	}
	if len(l.Questions) != LessonQuestionCount {
		return ErrBadQuestionCount
	}
	for i := range l.Questions {
		if err := l.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HistoryRecord is the append-only fact of one completed quiz attempt.
type HistoryRecord struct {
	UserID   string    `json:"user_id"`
	LessonID int64     `json:"lesson_id,omitempty"`
	Subject  string    `json:"subject"`
	Level    int       `json:"level"`
	Score    int       `json:"score"`
	Total    int       `json:"total"`
	TakenAt  time.Time `json:"taken_at"`
}

// Event is a normalized inbound channel event: exactly one of Text, Button,
// or Contact is expected to be set by the adapter.
type Event struct {
	Text    string `json:"text,omitempty"`    // free text
	Button  string `json:"button,omitempty"`  // structured payload, e.g. "BOARD:CBSE"
	Contact string `json:"contact,omitempty"` // shared phone number
}

// AdminStats summarizes user activity for the admin command.
type AdminStats struct {
	TotalUsers  int `json:"total_users"`
	Online10Min int `json:"online_10m"`
	DailyActive int `json:"dau"`
	WeekActive  int `json:"wau"`
}
