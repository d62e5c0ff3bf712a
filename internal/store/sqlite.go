// Package store provides storage backends for LearnBuddy.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/btrlrn/learnbuddy/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureColumns(); err != nil {
		return nil, err
	}
	slog.Debug("SQLite store initialized")
	return s, nil
}

// ensureColumns backfills columns added after the initial schema so databases
// created by older builds keep working.
func (s *SQLiteStore) ensureColumns() error {
	added := map[string]string{
		"phone":      "TEXT NOT NULL DEFAULT ''",
		"state":      "TEXT NOT NULL DEFAULT ''",
		"language":   "TEXT NOT NULL DEFAULT 'en'",
		"first_seen": "TIMESTAMP",
		"last_seen":  "TIMESTAMP",
	}

	rows, err := s.db.Query(`PRAGMA table_info(users)`)
	if err != nil {
		return fmt.Errorf("failed to inspect users table: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan users column info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate users column info: %w", err)
	}

	for col, def := range added {
		if existing[col] {
			continue
		}
		if _, err := s.db.Exec("ALTER TABLE users ADD COLUMN " + col + " " + def); err != nil {
			slog.Error("SQLiteStore column backfill failed", "error", err, "column", col)
			return fmt.Errorf("failed to add users.%s: %w", col, err)
		}
		slog.Info("SQLiteStore added missing users column", "column", col)
	}
	return nil
}

// GetUser retrieves a user by ID, returning (nil, nil) when not found.
func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	query := `SELECT id, first_name, last_name, dob, phone, city, state, board, grade,
		subject, level, streak, language, first_seen, last_seen, created_at
		FROM users WHERE id = ?`

	var u models.User
	var firstSeen, lastSeen sql.NullTime
	err := s.db.QueryRow(query, id).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.DOB, &u.Phone, &u.City, &u.State,
		&u.Board, &u.Grade, &u.Subject, &u.Level, &u.Streak, &u.Language,
		&firstSeen, &lastSeen, &u.CreatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetUser not found", "userID", id)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetUser failed", "error", err, "userID", id)
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	if firstSeen.Valid {
		u.FirstSeen = firstSeen.Time
	}
	if lastSeen.Valid {
		u.LastSeen = lastSeen.Time
	}
	return &u, nil
}

func (s *SQLiteStore) CreateUser(u models.User) error {
	if u.ID == "" {
		return models.ErrEmptyUserID
	}
	query := `INSERT INTO users (id, first_name, last_name, dob, phone, city, state, board,
		grade, subject, level, streak, language, first_seen, last_seen, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, u.ID, u.FirstName, u.LastName, u.DOB, u.Phone, u.City,
		u.State, u.Board, u.Grade, u.Subject, u.Level, u.Streak, u.Language,
		nullTime(u.FirstSeen), nullTime(u.LastSeen), u.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore CreateUser failed", "error", err, "userID", u.ID)
		return fmt.Errorf("failed to create user %s: %w", u.ID, err)
	}
	slog.Debug("SQLiteStore CreateUser succeeded", "userID", u.ID)
	return nil
}

// UpdateUser applies only the non-nil fields of patch, building the SET clause
// dynamically so untouched columns keep their values.
func (s *SQLiteStore) UpdateUser(id string, patch models.UserPatch) error {
	var sets []string
	var args []interface{}

	add := func(col string, val interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.DOB != nil {
		add("dob", *patch.DOB)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.City != nil {
		add("city", *patch.City)
	}
	if patch.State != nil {
		add("state", *patch.State)
	}
	if patch.Board != nil {
		add("board", *patch.Board)
	}
	if patch.Grade != nil {
		add("grade", *patch.Grade)
	}
	if patch.Subject != nil {
		add("subject", *patch.Subject)
	}
	if patch.Level != nil {
		add("level", *patch.Level)
	}
	if patch.Streak != nil {
		add("streak", *patch.Streak)
	}
	if patch.Language != nil {
		add("language", *patch.Language)
	}
	if patch.FirstSeen != nil {
		add("first_seen", *patch.FirstSeen)
	}
	if patch.LastSeen != nil {
		add("last_seen", *patch.LastSeen)
	}
	if len(sets) == 0 {
		slog.Debug("SQLiteStore UpdateUser no-op", "userID", id)
		return nil
	}

	args = append(args, id)
	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := s.db.Exec(query, args...)
	if err != nil {
		slog.Error("SQLiteStore UpdateUser failed", "error", err, "userID", id)
		return fmt.Errorf("failed to update user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("SQLiteStore UpdateUser matched no rows", "userID", id)
	}
	slog.Debug("SQLiteStore UpdateUser succeeded", "userID", id, "fields", len(sets))
	return nil
}

// GetSession retrieves the session for a user, returning (nil, nil) when absent.
func (s *SQLiteStore) GetSession(userID string) (*models.Session, error) {
	query := `SELECT user_id, stage, q_index, score, lesson_id, created_at
		FROM sessions WHERE user_id = ?`

	var sess models.Session
	var tag string
	err := s.db.QueryRow(query, userID).Scan(
		&sess.UserID, &tag, &sess.QIndex, &sess.Score, &sess.LessonID, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "userID", userID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get session for %s: %w", userID, err)
	}
	sess.Stage = models.ParseStageTag(tag)
	return &sess, nil
}

// SetSession replaces the session row wholesale: delete then insert inside a
// transaction, so at most one row per user ever exists.
func (s *SQLiteStore) SetSession(sess models.Session) error {
	if sess.UserID == "" {
		return models.ErrEmptyUserID
	}
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore SetSession begin failed", "error", err, "userID", sess.UserID)
		return fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE user_id = ?`, sess.UserID); err != nil {
		slog.Error("SQLiteStore SetSession delete failed", "error", err, "userID", sess.UserID)
		return fmt.Errorf("failed to clear session for %s: %w", sess.UserID, err)
	}
	created := sess.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.Exec(`INSERT INTO sessions (user_id, stage, q_index, score, lesson_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.UserID, sess.Stage.Tag(), sess.QIndex, sess.Score, sess.LessonID, created)
	if err != nil {
		slog.Error("SQLiteStore SetSession insert failed", "error", err, "userID", sess.UserID)
		return fmt.Errorf("failed to insert session for %s: %w", sess.UserID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session for %s: %w", sess.UserID, err)
	}
	slog.Debug("SQLiteStore SetSession succeeded", "userID", sess.UserID, "stage", sess.Stage.Tag())
	return nil
}

// UpdateSessionProgress advances the quiz cursor without touching the stage.
func (s *SQLiteStore) UpdateSessionProgress(userID string, qIndex, score int) error {
	res, err := s.db.Exec(`UPDATE sessions SET q_index = ?, score = ? WHERE user_id = ?`,
		qIndex, score, userID)
	if err != nil {
		slog.Error("SQLiteStore UpdateSessionProgress failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update session progress for %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNoActiveLesson
	}
	slog.Debug("SQLiteStore UpdateSessionProgress succeeded", "userID", userID, "qIndex", qIndex, "score", score)
	return nil
}

func (s *SQLiteStore) DeleteSession(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "userID", userID)
	return nil
}

// SaveLesson inserts a lesson, serializing intro and questions as JSON, and
// fills in the assigned row ID.
func (s *SQLiteStore) SaveLesson(l *models.Lesson) error {
	introJSON, err := json.Marshal(l.Intro)
	if err != nil {
		return fmt.Errorf("failed to marshal lesson intro: %w", err)
	}
	questionsJSON, err := json.Marshal(l.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal lesson questions: %w", err)
	}
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
		l.CreatedAt = created
	}

	res, err := s.db.Exec(`INSERT INTO lessons (user_id, board, grade, subject, level, title,
		intro_json, questions_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.UserID, l.Board, l.Grade, l.Subject, l.Level, l.Title,
		string(introJSON), string(questionsJSON), created)
	if err != nil {
		slog.Error("SQLiteStore SaveLesson failed", "error", err, "userID", l.UserID, "title", l.Title)
		return fmt.Errorf("failed to save lesson for %s: %w", l.UserID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lesson id: %w", err)
	}
	l.ID = id
	slog.Debug("SQLiteStore SaveLesson succeeded", "userID", l.UserID, "lessonID", id, "title", l.Title)
	return nil
}

func (s *SQLiteStore) GetLesson(id int64) (*models.Lesson, error) {
	query := `SELECT id, user_id, board, grade, subject, level, title,
		intro_json, questions_json, created_at FROM lessons WHERE id = ?`

	var l models.Lesson
	var introJSON, questionsJSON string
	err := s.db.QueryRow(query, id).Scan(
		&l.ID, &l.UserID, &l.Board, &l.Grade, &l.Subject, &l.Level, &l.Title,
		&introJSON, &questionsJSON, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrLessonNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetLesson failed", "error", err, "lessonID", id)
		return nil, fmt.Errorf("failed to get lesson %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(introJSON), &l.Intro); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lesson %d intro: %w", id, err)
	}
	if err := json.Unmarshal([]byte(questionsJSON), &l.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lesson %d questions: %w", id, err)
	}
	return &l, nil
}

// MasteredTitles returns titles the user has fully mastered in a subject:
// lessons completed with a perfect score across all questions.
func (s *SQLiteStore) MasteredTitles(userID, subject string) ([]string, error) {
	query := `SELECT DISTINCT l.title FROM history h
		JOIN lessons l ON l.id = h.lesson_id
		WHERE h.user_id = ? AND l.subject = ? AND h.total > 0 AND h.score = h.total
		ORDER BY l.title`

	rows, err := s.db.Query(query, userID, subject)
	if err != nil {
		slog.Error("SQLiteStore MasteredTitles query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query mastered titles for %s: %w", userID, err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan mastered title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mastered titles: %w", err)
	}
	slog.Debug("SQLiteStore MasteredTitles succeeded", "userID", userID, "subject", subject, "count", len(titles))
	return titles, nil
}

func (s *SQLiteStore) AppendHistory(h models.HistoryRecord) error {
	taken := h.TakenAt
	if taken.IsZero() {
		taken = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO history (user_id, lesson_id, subject, level, score, total, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.UserID, h.LessonID, h.Subject, h.Level, h.Score, h.Total, taken)
	if err != nil {
		slog.Error("SQLiteStore AppendHistory failed", "error", err, "userID", h.UserID)
		return fmt.Errorf("failed to append history for %s: %w", h.UserID, err)
	}
	slog.Debug("SQLiteStore AppendHistory succeeded", "userID", h.UserID, "score", h.Score, "total", h.Total)
	return nil
}

func (s *SQLiteStore) RecentHistory(userID string, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `SELECT user_id, lesson_id, subject, level, score, total, taken_at
		FROM history WHERE user_id = ? ORDER BY taken_at DESC, id DESC LIMIT ?`

	rows, err := s.db.Query(query, userID, limit)
	if err != nil {
		slog.Error("SQLiteStore RecentHistory query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query history for %s: %w", userID, err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var h models.HistoryRecord
		if err := rows.Scan(&h.UserID, &h.LessonID, &h.Subject, &h.Level, &h.Score, &h.Total, &h.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	slog.Debug("SQLiteStore RecentHistory succeeded", "userID", userID, "count", len(records))
	return records, nil
}

// AdminStats counts users by activity windows derived from last_seen.
func (s *SQLiteStore) AdminStats(now time.Time) (models.AdminStats, error) {
	var stats models.AdminStats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		slog.Error("SQLiteStore AdminStats total count failed", "error", err)
		return stats, fmt.Errorf("failed to count users: %w", err)
	}

	windows := []struct {
		dst   *int
		since time.Time
	}{
		{&stats.Online10Min, now.Add(-10 * time.Minute)},
		{&stats.DailyActive, now.Add(-24 * time.Hour)},
		{&stats.WeekActive, now.Add(-7 * 24 * time.Hour)},
	}
	for _, w := range windows {
		err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE last_seen IS NOT NULL AND last_seen >= ?`, w.since).Scan(w.dst)
		if err != nil {
			slog.Error("SQLiteStore AdminStats window count failed", "error", err, "since", w.since)
			return stats, fmt.Errorf("failed to count active users: %w", err)
		}
	}
	slog.Debug("SQLiteStore AdminStats succeeded", "total", stats.TotalUsers)
	return stats, nil
}

// InactiveUsers returns onboarded users whose last_seen falls inside the
// (newerThan, olderThan] window, oldest cutoff first by ID for stable runs.
func (s *SQLiteStore) InactiveUsers(olderThan, newerThan time.Time) ([]models.User, error) {
	query := `SELECT id, first_name, last_name, dob, phone, city, state, board, grade,
		subject, level, streak, language, first_seen, last_seen, created_at
		FROM users
		WHERE grade != '' AND last_seen IS NOT NULL AND last_seen <= ? AND last_seen > ?
		ORDER BY id`

	rows, err := s.db.Query(query, olderThan, newerThan)
	if err != nil {
		slog.Error("SQLiteStore InactiveUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query inactive users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var firstSeen, lastSeen sql.NullTime
		err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.DOB, &u.Phone, &u.City,
			&u.State, &u.Board, &u.Grade, &u.Subject, &u.Level, &u.Streak, &u.Language,
			&firstSeen, &lastSeen, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inactive user: %w", err)
		}
		if firstSeen.Valid {
			u.FirstSeen = firstSeen.Time
		}
		if lastSeen.Valid {
			u.LastSeen = lastSeen.Time
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inactive users: %w", err)
	}
	slog.Debug("SQLiteStore InactiveUsers succeeded", "count", len(users))
	return users, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

// nullTime maps a zero time to NULL for nullable timestamp columns.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
