// Package history defines the conversation store consumed by the provider
// layer. The core only ever reads a bounded recent window; persistence
// beyond the in-memory store is a collaborator concern.
package history

import "sync"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation entry.
type Message struct {
	Role    Role
	Content string
}

// Store is the opaque conversation store interface.
type Store interface {
	// Recent returns up to limit messages, oldest first, most recent last.
	Recent(limit int) []Message
	// Append adds a message to the end of the conversation.
	Append(msg Message)
	// Update replaces the message at index. Used to fill in an assistant
	// message as its streamed text accumulates.
	Update(index int, msg Message) bool
	// Len returns the number of stored messages.
	Len() int
	// Clear resets the conversation.
	Clear()
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	msgs []Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Recent returns the last limit messages in order.
func (s *MemoryStore) Recent(limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.msgs) > limit {
		start = len(s.msgs) - limit
	}
	out := make([]Message, len(s.msgs)-start)
	copy(out, s.msgs[start:])
	return out
}

// Append adds a message.
func (s *MemoryStore) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

// Update replaces the message at index, reporting whether it existed.
func (s *MemoryStore) Update(index int, msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.msgs) {
		return false
	}
	s.msgs[index] = msg
	return true
}

// Len returns the number of messages.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Clear removes all messages.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}
