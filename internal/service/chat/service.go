package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
	"github.com/mindhaven-ai/mindhaven/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("message role must be user or assistant")
)

// Service owns all per-session conversation state: the append-only
// message log and the live analytics record, recomputed on every
// append. Finalized records are handed to the analytics store exactly
// once, when the session ends.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	records  map[string]analytics.SessionRecord
	store    analytics.Store
}

// NewService bootstraps the in-memory chat service.
func NewService(store analytics.Store) *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		records:  make(map[string]analytics.SessionRecord),
		store:    store,
	}
}

// CreateSession provisions an anonymous session with a zeroed record.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.records[session.ID] = analytics.Aggregate(session.ID, session.CreatedAt, nil)
	s.mu.Unlock()

	return session, nil
}

// SaveMessage appends a message to the session log and recomputes the
// live record. The stored message, with id and timestamp assigned, is
// returned.
func (s *Service) SaveMessage(_ context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	if message.Role != chat.RoleUser && message.Role != chat.RoleAssistant {
		return chat.Message{}, ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[message.SessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	entries := append(s.messages[message.SessionID], message)
	s.messages[message.SessionID] = entries
	s.records[message.SessionID] = analytics.Aggregate(session.ID, session.CreatedAt, entries)
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// BindUpstream records the remote backend's session handle so later
// turns can thread it through every forwarded call.
func (s *Service) BindUpstream(_ context.Context, sessionID, upstreamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.UpstreamID = upstreamID
	s.sessions[sessionID] = session
	return nil
}

// LoadTranscript returns a copy of the stored messages for the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Snapshot returns the live record for an active session.
func (s *Service) Snapshot(_ context.Context, sessionID string) (analytics.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[sessionID]
	if !ok {
		return analytics.SessionRecord{}, ErrSessionNotFound
	}
	return record, nil
}

// EndSession finalizes the session record, persists it, and drops the
// session. Removal under the same lock guarantees finalization happens
// at most once: a second call reports ErrSessionNotFound. Persistence
// is best-effort; a failing store is logged and does not fail the end.
func (s *Service) EndSession(_ context.Context, sessionID string) (analytics.SessionRecord, error) {
	s.mu.Lock()
	record, ok := s.records[sessionID]
	if !ok {
		s.mu.Unlock()
		return analytics.SessionRecord{}, ErrSessionNotFound
	}

	record = analytics.Finalize(record, time.Now())
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	delete(s.records, sessionID)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(record); err != nil {
			log.Printf("[chat] failed to persist session record %s: %v", sessionID, err)
		}
	}
	return record, nil
}
