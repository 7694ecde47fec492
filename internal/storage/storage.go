package storage

import (
	"context"
	"sync"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/pkg/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultChatCacheSize   = 1000
	DefaultCleanupInterval = 5 * time.Minute
	DefaultChatTTL         = 24 * time.Hour
)

// ChatStorage keeps the short-lived conversation state of bot chats.
type ChatStorage interface {
	GetUserState(chatID int64) (string, bool)
	SetUserState(chatID int64, state string)
	GetUserData(chatID int64) (models.ChatData, bool)
	SetUserData(chatID int64, data models.ChatData)
	GetLastMessageID(chatID int64) (int, bool)
	SetLastMessageID(chatID int64, messageID int)
	ClearUserData(chatID int64)
	// Touch marks a chat as seen now.
	Touch(chatID int64)
	// ActiveChats lists chats seen within the TTL window.
	ActiveChats() []int64
	CleanupExpiredData()
}

// MemoryStorage is a size-bounded ChatStorage on top of LRU caches with a TTL
// sweep for chats that went quiet.
type MemoryStorage struct {
	mu sync.RWMutex

	userStates      *lru.Cache[int64, string]
	userData        *lru.Cache[int64, models.ChatData]
	lastBotMessages *lru.Cache[int64, int]

	ttl      time.Duration
	lastSeen map[int64]time.Time
}

// NewMemoryStorage creates a chat store holding at most size chats.
func NewMemoryStorage(size int, ttl time.Duration) (*MemoryStorage, error) {
	if size <= 0 {
		size = DefaultChatCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultChatTTL
	}

	userStates, err := lru.New[int64, string](size)
	if err != nil {
		return nil, err
	}

	userData, err := lru.New[int64, models.ChatData](size)
	if err != nil {
		return nil, err
	}

	lastBotMessages, err := lru.New[int64, int](size)
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{
		userStates:      userStates,
		userData:        userData,
		lastBotMessages: lastBotMessages,
		ttl:             ttl,
		lastSeen:        make(map[int64]time.Time),
	}, nil
}

// StartCleanupRoutine sweeps expired chats until ctx is done. It blocks, so
// callers run it in its own goroutine.
func (s *MemoryStorage) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpiredData()
		}
	}
}

// CleanupExpiredData drops chats not seen within the TTL.
func (s *MemoryStorage) CleanupExpiredData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for chatID, seen := range s.lastSeen {
		if now.Sub(seen) > s.ttl {
			s.removeLocked(chatID)
		}
	}
}

func (s *MemoryStorage) GetUserState(chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.userStates.Get(chatID)
	return state, exists && state != ""
}

func (s *MemoryStorage) SetUserState(chatID int64, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userStates.Add(chatID, state)
	s.touch(chatID)
}

func (s *MemoryStorage) GetUserData(chatID int64) (models.ChatData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userData.Get(chatID)
}

func (s *MemoryStorage) SetUserData(chatID int64, data models.ChatData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userData.Add(chatID, data)
	s.touch(chatID)
}

func (s *MemoryStorage) GetLastMessageID(chatID int64) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastBotMessages.Get(chatID)
}

func (s *MemoryStorage) SetLastMessageID(chatID int64, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastBotMessages.Add(chatID, messageID)
	s.touch(chatID)
}

// ClearUserData forgets the scratch data of a chat but keeps it active.
func (s *MemoryStorage) ClearUserData(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userData.Remove(chatID)
}

func (s *MemoryStorage) Touch(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(chatID)
}

func (s *MemoryStorage) ActiveChats() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]int64, 0, len(s.lastSeen))
	for chatID := range s.lastSeen {
		chats = append(chats, chatID)
	}
	return chats
}

func (s *MemoryStorage) removeLocked(chatID int64) {
	delete(s.lastSeen, chatID)
	s.userStates.Remove(chatID)
	s.userData.Remove(chatID)
	s.lastBotMessages.Remove(chatID)
}

func (s *MemoryStorage) touch(chatID int64) {
	s.lastSeen[chatID] = time.Now()
}

// GetStats returns statistics for monitoring.
func (s *MemoryStorage) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"user_states_size":   s.userStates.Len(),
		"user_data_size":     s.userData.Len(),
		"last_messages_size": s.lastBotMessages.Len(),
		"active_chats":       len(s.lastSeen),
	}
}
