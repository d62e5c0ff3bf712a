// Package store provides storage backends for LearnBuddy.
//
// It includes a SQLite-backed store for student profiles, conversation
// sessions, generated lessons, and quiz history, plus an in-memory store
// used by tests.
package store

import (
	"time"

	"github.com/btrlrn/learnbuddy/internal/models"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	// DSN is the data source name. For SQLite this is the database file path.
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// Store is the persistence interface consumed by the conversation engine.
type Store interface {
	// GetUser returns the user with the given ID, or (nil, nil) when absent.
	GetUser(id string) (*models.User, error)
	// CreateUser inserts a new user row.
	CreateUser(u models.User) error
	// UpdateUser applies the non-nil fields of patch to the user row.
	UpdateUser(id string, patch models.UserPatch) error

	// GetSession returns the session for a user, or (nil, nil) when absent.
	GetSession(userID string) (*models.Session, error)
	// SetSession replaces the user's session row wholesale.
	SetSession(s models.Session) error
	// UpdateSessionProgress updates only the quiz cursor of an existing session.
	UpdateSessionProgress(userID string, qIndex, score int) error
	// DeleteSession removes the session row for a user.
	DeleteSession(userID string) error

	// SaveLesson inserts a lesson and fills in its assigned ID.
	SaveLesson(l *models.Lesson) error
	// GetLesson returns the lesson with the given ID, or models.ErrLessonNotFound.
	GetLesson(id int64) (*models.Lesson, error)
	// MasteredTitles returns titles of lessons the user completed with a
	// perfect score in the given subject.
	MasteredTitles(userID, subject string) ([]string, error)

	// AppendHistory records one completed quiz attempt.
	AppendHistory(h models.HistoryRecord) error
	// RecentHistory returns the user's most recent attempts, newest first.
	RecentHistory(userID string, limit int) ([]models.HistoryRecord, error)

	// AdminStats summarizes user activity relative to now.
	AdminStats(now time.Time) (models.AdminStats, error)
	// InactiveUsers returns onboarded users last seen inside the
	// (newerThan, olderThan] window, for re-engagement nudges.
	InactiveUsers(olderThan, newerThan time.Time) ([]models.User, error)

	Close() error
}
