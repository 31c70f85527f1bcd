package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"nahio/models"
)

// State is the observable session of one user.
type State struct {
	User          *models.User    `json:"user,omitempty"`
	Profile       *models.Profile `json:"profile,omitempty"`
	Authenticated bool            `json:"authenticated"`
	Loading       bool            `json:"loading"`
}

// Actor derives the service caller from an authenticated state.
func (s *State) Actor() models.Actor {
	if s == nil || s.User == nil {
		return models.Actor{}
	}
	return models.ActorOf(&models.UserData{User: *s.User, Profile: s.Profile})
}

// Store keeps session states by uid. Get returns nil, nil when none is stored.
type Store interface {
	Get(ctx context.Context, uid string) (*State, error)
	Put(ctx context.Context, uid string, st State, ttl time.Duration) error
	Delete(ctx context.Context, uid string) error
}

const redisKeyPrefix = "session:"

// RedisStore keeps states as JSON values with a TTL.
type RedisStore struct {
	Client *redis.Client
}

func (s RedisStore) Get(ctx context.Context, uid string) (*State, error) {
	raw, err := s.Client.Get(ctx, redisKeyPrefix+uid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s RedisStore) Put(ctx context.Context, uid string, st State, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisKeyPrefix+uid, raw, ttl).Err()
}

func (s RedisStore) Delete(ctx context.Context, uid string) error {
	return s.Client.Del(ctx, redisKeyPrefix+uid).Err()
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, uid string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[uid]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, uid)
		return nil, nil
	}
	st := e.state
	return &st, nil
}

func (s *MemoryStore) Put(_ context.Context, uid string, st State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{state: st}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[uid] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uid)
	return nil
}
