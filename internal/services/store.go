package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/noteswriter/noteswriter-backend/internal/logger"
)

var ErrKeyNotFound = errors.New("key not found")

// NoExpiry is what TTL reports for a key that exists but never expires.
const NoExpiry = time.Duration(-1)

// TTLStore is the key-value store with per-key expiry shared by the auth flows.
// Single-key operations are atomic; nothing is scanned or iterated.
type TTLStore interface {
	// Get returns ErrKeyNotFound for missing or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// SetNX writes value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// TTL returns the remaining lifetime, NoExpiry, or ErrKeyNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
	// Incr treats a missing key as zero and creates it without expiry.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// OpenStore connects to Redis when redisURL is set and otherwise falls back to
// an in-process store, which loses every code on restart.
func OpenStore(ctx context.Context, redisURL string) (TTLStore, error) {
	if redisURL == "" {
		logger.Log.Warn("REDIS_URL not configured, using in-memory OTP store (not recommended for production)")
		return NewMemoryStore(), nil
	}
	store, err := NewRedisStore(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("redis store initialized")
	return store, nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process TTLStore. Expired keys are dropped lazily on access.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]memoryEntry
	nowF func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]memoryEntry),
		nowF: time.Now,
	}
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.nowF()) {
		delete(s.m, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.nowF().Add(ttl)
	}
	s.m[key] = e
	return true, nil
}

func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return 0, ErrKeyNotFound
	}
	if e.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expiresAt.Sub(s.nowF()), nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.m, key)
	}
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	var n int64
	if ok {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, errors.New("value is not an integer or out of range")
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	s.m[key] = e
	return n, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(s.m, key)
		return nil
	}
	e.expiresAt = s.nowF().Add(ttl)
	s.m[key] = e
	return nil
}

// Set writes unconditionally. It is not part of TTLStore; the auth flows only create keys with SetNX.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.nowF().Add(ttl)
	}
	s.m[key] = e
}
