package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when a state nonce is unknown, expired, or already used.
var ErrStateNotFound = errors.New("oauth state not found")

// StateStore keeps OAuth state nonces between the permission redirect and the callback.
type StateStore interface {
	Save(ctx context.Context, state, shopDomain string, ttl time.Duration) error
	// Consume returns the shop the state was issued for and forgets it.
	Consume(ctx context.Context, state string) (string, error)
}

// RedisStateStore shares nonces across API instances.
type RedisStateStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStateStore connects to the given redis:// URL and checks the connection.
func NewRedisStateStore(redisURL string) (*RedisStateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStateStoreWithClient(client, ""), nil
}

func NewRedisStateStoreWithClient(client *redis.Client, keyPrefix string) *RedisStateStore {
	if keyPrefix == "" {
		keyPrefix = "oauth:state:"
	}
	return &RedisStateStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStateStore) Save(ctx context.Context, state, shopDomain string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+state, shopDomain, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.client.GetDel(ctx, s.keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read oauth state: %w", err)
	}
	return shop, nil
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

type memoryEntry struct {
	shopDomain string
	expiresAt  time.Time
}

// MemoryStateStore is used when no Redis is configured. Nonces live only in this process.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStateStore) Save(ctx context.Context, state, shopDomain string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// drop expired nonces so abandoned installs do not pile up
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = memoryEntry{shopDomain: shopDomain, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStateStore) Consume(ctx context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return "", ErrStateNotFound
	}
	delete(s.entries, state)
	if s.now().After(e.expiresAt) {
		return "", ErrStateNotFound
	}
	return e.shopDomain, nil
}
