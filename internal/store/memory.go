package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/irrelevantclub/toolkit-backend/internal/models"
)

// MemoryStore keeps records in process. Used for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	logs    []models.SystemLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) Insert(_ context.Context, u *models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[u.Email]; exists {
		return "", ErrDuplicate
	}

	rec := clone(u)
	rec.ID = uuid.NewString()
	s.byID[rec.ID] = rec
	s.byEmail[rec.Email] = rec.ID
	return rec.ID, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

// Count returns the number of stored users.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func (s *MemoryStore) WriteLogs(_ context.Context, entries []models.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entries...)
	return nil
}

func (s *MemoryStore) PruneLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.logs[:0]
	var removed int64
	for _, l := range s.logs {
		if l.Timestamp.Before(before) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return removed, nil
}

// Logs returns a copy of the stored system logs.
func (s *MemoryStore) Logs() []models.SystemLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SystemLog(nil), s.logs...)
}

func clone(u *models.User) *models.User {
	c := *u
	c.Extra = copyExtra(u.Extra)
	return &c
}
