// Package session keeps the per-user dashboard state in memory.
//
// A session owns at most one IssueTable. Tables are never modified after
// ingestion, so the pointer handed out by Get can be read without locking.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"issuepulse/pkg/contracts/domain"
)

// ErrNotFound is returned for unknown or expired session ids
var ErrNotFound = errors.New("session not found")

// Session is a snapshot of one dashboard session
type Session struct {
	ID         string
	Table      *domain.IssueTable
	Filename   string
	LastError  string
	CreatedAt  time.Time
	UploadedAt *time.Time
	LastAccess time.Time
}

// Info converts the session into its client-facing summary.
func (s *Session) Info() domain.SessionInfo {
	info := domain.SessionInfo{
		ID:         s.ID,
		State:      domain.DashboardIdle,
		Filename:   s.Filename,
		LastError:  s.LastError,
		CreatedAt:  s.CreatedAt,
		UploadedAt: s.UploadedAt,
	}
	if s.Table != nil {
		info.State = domain.DashboardReady
		info.Rows = s.Table.Len()
		info.DuplicatesDropped = s.Table.DuplicatesDropped
		info.Columns = s.Table.Columns
	}
	return info
}

// MemoryStore is an in-memory, mutex-guarded session store
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store expiring sessions idle for longer than ttl.
// A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create registers a new idle session.
func (s *MemoryStore) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[sess.ID] = sess

	snapshot := *sess
	return &snapshot
}

// Get returns a copy of the session and marks it as accessed.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.LastAccess = s.now()

	snapshot := *sess
	return &snapshot, nil
}

// SetTable replaces the session's dataset and clears any previous error.
func (s *MemoryStore) SetTable(id, filename string, table *domain.IssueTable) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	sess.Table = table
	sess.Filename = filename
	sess.LastError = ""
	sess.UploadedAt = &now
	sess.LastAccess = now

	snapshot := *sess
	return &snapshot, nil
}

// SetError discards the session's dataset and records why the upload failed.
func (s *MemoryStore) SetError(id, filename string, cause error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	sess.Table = nil
	sess.Filename = filename
	sess.UploadedAt = nil
	sess.LastAccess = s.now()
	if cause != nil {
		sess.LastError = cause.Error()
	}

	snapshot := *sess
	return &snapshot, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Sweep removes sessions idle for longer than the TTL and returns their ids.
func (s *MemoryStore) Sweep(now time.Time) []string {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, sess := range s.sessions {
		if now.Sub(sess.LastAccess) > s.ttl {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
