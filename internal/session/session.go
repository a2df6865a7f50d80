// Package session holds per-user conversation state. The grouping key is
// always the user identity, never the chat: one conversation exists per user
// at a time, created on the first state-entering action and destroyed on
// completion or cancel.
package session

import (
	"sync"
	"time"

	"eventbot/internal/domain"
)

// State enumerates the conversation states of the event creation flow.
type State int

const (
	Idle State = iota
	CollectingTitle
	CollectingDescription
	CollectingAttachment
	CollectingRecurrence
	CollectingYear
	CollectingMonth
	CollectingDay
	CollectingTime
	CollectingScope
	CollectingReminders
)

// Draft accumulates event fields across conversation turns. Nothing in it is
// persisted until the scope step completes.
type Draft struct {
	Title       string
	Description string
	Attachment  *domain.Attachment
	Recurrence  domain.Recurrence
	Year        int
	Month       int
	Day         int
	Hour        int
	Minute      int

	// ClientID is the delegated client when the flow was entered through a
	// curator's assign action; zero otherwise.
	ClientID int64

	// EventID is set once the event row exists; the reminder loop updates it
	// in place.
	EventID string

	Reminders *domain.ReminderDraft
}

// Session is one user's in-flight conversation plus any remembered selection
// context (e.g. the client a curator is viewing).
type Session struct {
	UserID    int64
	State     State
	Draft     Draft
	PeerID    int64 // client/curator selected from a listing, outside the flow
	StartedAt time.Time
}

// Store is a mutex-guarded session registry keyed by user identity. The
// single-threaded update loop means a given user's session is never touched
// concurrently; the lock covers interleaving across different users.
type Store struct {
	mu sync.RWMutex
	m  map[int64]*Session
}

func NewStore() *Store {
	return &Store{m: make(map[int64]*Session)}
}

// Get returns the user's session, if any.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[userID]
	return sess, ok
}

// Begin creates a fresh session for the user, replacing any existing one.
func (s *Store) Begin(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{UserID: userID, State: Idle, StartedAt: time.Now().UTC()}
	s.m[userID] = sess
	return sess
}

// GetOrBegin returns the existing session or creates one.
func (s *Store) GetOrBegin(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[userID]; ok {
		return sess
	}
	sess := &Session{UserID: userID, State: Idle, StartedAt: time.Now().UTC()}
	s.m[userID] = sess
	return sess
}

// End destroys the user's session. Safe to call when none exists.
func (s *Store) End(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
