package devserver

import (
	"sort"
	"sync"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/pkg"
)

// Store is the in-memory document store behind the dev endpoints. It
// stands in for the platform's remote history/profile collaborators
// during local runs and integration tests.
type Store struct {
	mu       sync.Mutex
	rooms    map[string][]domain.Message
	profiles map[string]domain.UserProfile
}

// NewStore create an empty store
func NewStore() *Store {
	return &Store{
		rooms:    make(map[string][]domain.Message),
		profiles: make(map[string]domain.UserProfile),
	}
}

// SeedProfile register a user profile
func (s *Store) SeedProfile(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// Profile read one profile
func (s *Store) Profile(userID string) (domain.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

// SetPresence update online state, lastSeen only set when going offline
func (s *Store) SetPresence(userID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[userID]
	p.ID = userID
	p.IsOnline = online
	if !online {
		p.LastSeen = time.Now().UnixMilli()
	}
	s.profiles[userID] = p
}

// Append store one message at the end of its room. An id already
// present is dropped, the write path keeps the client-chosen id so a
// duplicate means redelivery.
func (s *Store) Append(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.rooms[msg.RoomID] {
		if m.ID == msg.ID {
			return false
		}
	}
	s.rooms[msg.RoomID] = append(s.rooms[msg.RoomID], msg)
	return true
}

// Messages ordered history copy of one room
func (s *Store) Messages(roomID string) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.rooms[roomID]
	out := make([]domain.Message, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// MarkRead flip the read flag of the given ids
func (s *Store) MarkRead(roomID string, messageIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.rooms[roomID]
	for i := range msgs {
		if pkg.Contains(messageIDs, msgs[i].ID) {
			msgs[i].IsRead = true
		}
	}
}

// Edit replace the text of one message
func (s *Store) Edit(roomID, messageID, newText string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.rooms[roomID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Text = newText
			return true
		}
	}
	return false
}

// Delete hard-remove messages by id
func (s *Store) Delete(roomID string, messageIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.rooms[roomID]
	kept := msgs[:0]
	for _, m := range msgs {
		if pkg.Contains(messageIDs, m.ID) {
			continue
		}
		kept = append(kept, m)
	}
	s.rooms[roomID] = kept
}
