// Package memory provides in-process message and permission stores used by
// tests and the local development server.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat-conversations/internal/domain"
	"chat-conversations/internal/repository"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[string][]domain.Message // conversationID -> messages
	last     time.Time
	now      func() time.Time
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[string][]domain.Message),
		now:      time.Now,
	}
}

// Append stores a message. Timestamps within the store are strictly
// increasing so two appends never share a key.
func (s *MessageStore) Append(_ context.Context, conversationID, text string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Nanosecond)
	}
	s.last = ts

	msg := domain.Message{
		ConversationID: conversationID,
		Timestamp:      repository.Timestamp(ts),
		Text:           text,
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	return msg, nil
}

func (s *MessageStore) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.messages[conversationID]))
	copy(out, s.messages[conversationID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// Count returns the number of stored messages for a conversation.
func (s *MessageStore) Count(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[conversationID])
}

type permissionKey struct {
	userID         string
	conversationID string
}

type PermissionStore struct {
	mu    sync.RWMutex
	perms map[permissionKey]domain.Permission
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{perms: make(map[permissionKey]domain.Permission)}
}

// Grant creates or replaces a permission record.
func (s *PermissionStore) Grant(userID, conversationID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perms[permissionKey{userID, conversationID}] = domain.Permission{
		UserID:         userID,
		ConversationID: conversationID,
		Active:         active,
	}
}

func (s *PermissionStore) GetPermission(_ context.Context, userID, conversationID string) (domain.Permission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.perms[permissionKey{userID, conversationID}]
	return p, ok, nil
}
