package api

import (
	"github.com/google/uuid"
	"go-askbot/pkg/memory/buffer"
	"sync"
)

// sessions keeps each conversation's history in memory for the life of the
// process.
type sessions struct {
	mu      sync.RWMutex
	history map[uuid.UUID]buffer.History
}

func newSessions() *sessions {
	return &sessions{
		history: map[uuid.UUID]buffer.History{},
	}
}

func (s *sessions) get(id uuid.UUID) (buffer.History, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.history[id]
	return h, ok
}

func (s *sessions) put(id uuid.UUID, h buffer.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = h
}

func (s *sessions) remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.history[id]
	delete(s.history, id)
	return ok
}
