package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultHistoryLimit caps the attempts kept per user.
const DefaultHistoryLimit = 100

// Attempt is one stored practice attempt.
type Attempt struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	ReferenceText   string    `json:"reference_text"`
	Pronunciation   float64   `json:"pronunciation"`
	Fluency         float64   `json:"fluency"`
	Completeness    float64   `json:"completeness"`
	StrictnessLevel int       `json:"strictness_level,omitempty"`
	MockMode        bool      `json:"mock_mode"`
	Coaching        string    `json:"coaching"`
	AudioURL        string    `json:"audio_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryStore keeps the most recent attempts per user, newest first.
type HistoryStore interface {
	Save(ctx context.Context, userID string, attempt Attempt) error
	List(ctx context.Context, userID string, limit int) ([]Attempt, error)
	Get(ctx context.Context, userID, id string) (*Attempt, error)
	Delete(ctx context.Context, userID, id string) error
	Clear(ctx context.Context, userID string) error
}

// normalizeLimit bounds a requested page size by the store capacity.
func normalizeLimit(limit, capacity int) int {
	if limit <= 0 || limit > capacity {
		return capacity
	}
	return limit
}

// InMemoryHistoryStore is a HistoryStore for single-instance deployments.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	capacity int
	byUser   map[string][]Attempt
}

// NewInMemoryHistoryStore creates an InMemoryHistoryStore keeping at most
// capacity attempts per user.
func NewInMemoryHistoryStore(capacity int) *InMemoryHistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &InMemoryHistoryStore{
		capacity: capacity,
		byUser:   make(map[string][]Attempt),
	}
}

// Save implements HistoryStore.
func (s *InMemoryHistoryStore) Save(_ context.Context, userID string, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := append([]Attempt{attempt}, s.byUser[userID]...)
	if len(list) > s.capacity {
		list = list[:s.capacity]
	}
	s.byUser[userID] = list
	return nil
}

// List implements HistoryStore.
func (s *InMemoryHistoryStore) List(_ context.Context, userID string, limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.byUser[userID]
	n := min(normalizeLimit(limit, s.capacity), len(list))
	out := make([]Attempt, n)
	copy(out, list[:n])
	return out, nil
}

// Get implements HistoryStore.
func (s *InMemoryHistoryStore) Get(_ context.Context, userID, id string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byUser[userID] {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// Delete implements HistoryStore.
func (s *InMemoryHistoryStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUser[userID]
	for i, a := range list {
		if a.ID == id {
			s.byUser[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Clear implements HistoryStore.
func (s *InMemoryHistoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byUser, userID)
	return nil
}

// ListBackend is the subset of list commands the Redis store needs.
// *client.RedisClient implements it.
type ListBackend interface {
	PushCapped(ctx context.Context, key string, value []byte, maxLen int, ttl time.Duration) error
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
	RemoveValue(ctx context.Context, key, value string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// RedisHistoryStore keeps each user's attempts in a capped Redis list.
type RedisHistoryStore struct {
	backend  ListBackend
	capacity int
	ttl      time.Duration
}

// NewRedisHistoryStore creates a RedisHistoryStore. A zero ttl keeps lists
// forever.
func NewRedisHistoryStore(backend ListBackend, capacity int, ttl time.Duration) *RedisHistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &RedisHistoryStore{
		backend:  backend,
		capacity: capacity,
		ttl:      ttl,
	}
}

func historyKey(userID string) string {
	return "accent_coach:history:" + userID
}

// Save implements HistoryStore.
func (s *RedisHistoryStore) Save(ctx context.Context, userID string, attempt Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}
	return s.backend.PushCapped(ctx, historyKey(userID), data, s.capacity, s.ttl)
}

// List implements HistoryStore.
func (s *RedisHistoryStore) List(ctx context.Context, userID string, limit int) ([]Attempt, error) {
	limit = normalizeLimit(limit, s.capacity)
	raw, err := s.backend.Range(ctx, historyKey(userID), 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	attempts := make([]Attempt, 0, len(raw))
	for _, item := range raw {
		var a Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			continue
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

// find returns the raw list entry and decoded attempt for id.
func (s *RedisHistoryStore) find(ctx context.Context, userID, id string) (string, *Attempt, error) {
	raw, err := s.backend.Range(ctx, historyKey(userID), 0, -1)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read history: %w", err)
	}
	for _, item := range raw {
		var a Attempt
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			continue
		}
		if a.ID == id {
			return item, &a, nil
		}
	}
	return "", nil, ErrNotFound
}

// Get implements HistoryStore.
func (s *RedisHistoryStore) Get(ctx context.Context, userID, id string) (*Attempt, error) {
	_, a, err := s.find(ctx, userID, id)
	return a, err
}

// Delete implements HistoryStore.
func (s *RedisHistoryStore) Delete(ctx context.Context, userID, id string) error {
	raw, _, err := s.find(ctx, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.backend.RemoveValue(ctx, historyKey(userID), raw); err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}
	return nil
}

// Clear implements HistoryStore.
func (s *RedisHistoryStore) Clear(ctx context.Context, userID string) error {
	return s.backend.Delete(ctx, historyKey(userID))
}
