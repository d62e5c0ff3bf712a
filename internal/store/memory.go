package store

import (
	"sort"
	"sync"
	"time"

	"github.com/btrlrn/learnbuddy/internal/models"
)

// InMemoryStore is a map-backed Store used by tests and local development.
// Safe for concurrent use.
type InMemoryStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	sessions map[string]models.Session
	lessons  map[int64]models.Lesson
	history  []models.HistoryRecord
	nextID   int64
}

var _ Store = (*InMemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]models.User),
		sessions: make(map[string]models.Session),
		lessons:  make(map[int64]models.Lesson),
		nextID:   1,
	}
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) CreateUser(u models.User) error {
	if u.ID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) UpdateUser(id string, patch models.UserPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.DOB != nil {
		u.DOB = *patch.DOB
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.City != nil {
		u.City = *patch.City
	}
	if patch.State != nil {
		u.State = *patch.State
	}
	if patch.Board != nil {
		u.Board = *patch.Board
	}
	if patch.Grade != nil {
		u.Grade = *patch.Grade
	}
	if patch.Subject != nil {
		u.Subject = *patch.Subject
	}
	if patch.Level != nil {
		u.Level = *patch.Level
	}
	if patch.Streak != nil {
		u.Streak = *patch.Streak
	}
	if patch.Language != nil {
		u.Language = *patch.Language
	}
	if patch.FirstSeen != nil {
		u.FirstSeen = *patch.FirstSeen
	}
	if patch.LastSeen != nil {
		u.LastSeen = *patch.LastSeen
	}
	s.users[id] = u
	return nil
}

func (s *InMemoryStore) GetSession(userID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *InMemoryStore) SetSession(sess models.Session) error {
	if sess.UserID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	s.sessions[sess.UserID] = sess
	return nil
}

func (s *InMemoryStore) UpdateSessionProgress(userID string, qIndex, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return models.ErrNoActiveLesson
	}
	sess.QIndex = qIndex
	sess.Score = score
	s.sessions[userID] = sess
	return nil
}

func (s *InMemoryStore) DeleteSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func (s *InMemoryStore) SaveLesson(l *models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	l.ID = s.nextID
	s.nextID++
	s.lessons[l.ID] = *l
	return nil
}

func (s *InMemoryStore) GetLesson(id int64) (*models.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, models.ErrLessonNotFound
	}
	return &l, nil
}

func (s *InMemoryStore) MasteredTitles(userID, subject string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var titles []string
	for _, h := range s.history {
		if h.UserID != userID || h.Total == 0 || h.Score != h.Total {
			continue
		}
		l, ok := s.lessons[h.LessonID]
		if !ok || l.Subject != subject || seen[l.Title] {
			continue
		}
		seen[l.Title] = true
		titles = append(titles, l.Title)
	}
	sort.Strings(titles)
	return titles, nil
}

func (s *InMemoryStore) AppendHistory(h models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.TakenAt.IsZero() {
		h.TakenAt = time.Now().UTC()
	}
	s.history = append(s.history, h)
	return nil
}

func (s *InMemoryStore) RecentHistory(userID string, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.HistoryRecord
	// History is append-ordered; walk backwards for newest first.
	for i := len(s.history) - 1; i >= 0 && len(records) < limit; i-- {
		if s.history[i].UserID == userID {
			records = append(records, s.history[i])
		}
	}
	return records, nil
}

func (s *InMemoryStore) AdminStats(now time.Time) (models.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.AdminStats
	stats.TotalUsers = len(s.users)
	for _, u := range s.users {
		if u.LastSeen.IsZero() {
			continue
		}
		if !u.LastSeen.Before(now.Add(-10 * time.Minute)) {
			stats.Online10Min++
		}
		if !u.LastSeen.Before(now.Add(-24 * time.Hour)) {
			stats.DailyActive++
		}
		if !u.LastSeen.Before(now.Add(-7 * 24 * time.Hour)) {
			stats.WeekActive++
		}
	}
	return stats, nil
}

func (s *InMemoryStore) InactiveUsers(olderThan, newerThan time.Time) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for _, u := range s.users {
		if u.Grade == "" || u.LastSeen.IsZero() {
			continue
		}
		if u.LastSeen.After(olderThan) || !u.LastSeen.After(newerThan) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *InMemoryStore) Close() error { return nil }
