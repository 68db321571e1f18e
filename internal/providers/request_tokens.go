package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRequestTokenTTL = 10 * time.Minute
	keyRequestToken        = "federate:oauth1:%s"
)

// holds oauth1 request-token secrets between the two handshake phases
type RequestTokenStore interface {
	Save(ctx context.Context, token, secret string, ttl time.Duration) error
	// returns the secret and forgets it; ErrRequestTokenNotFound when missing or expired
	Take(ctx context.Context, token string) (string, error)
}

// implements RequestTokenStore using Redis
type RedisRequestTokenStore struct {
	client *redis.Client
}

// creates a new Redis-backed request-token store
func NewRedisRequestTokenStore(client *redis.Client) *RedisRequestTokenStore {
	return &RedisRequestTokenStore{client: client}
}

func (s *RedisRequestTokenStore) Save(ctx context.Context, token, secret string, ttl time.Duration) error {
	return s.client.Set(ctx, fmt.Sprintf(keyRequestToken, token), secret, ttl).Err()
}

func (s *RedisRequestTokenStore) Take(ctx context.Context, token string) (string, error) {
	secret, err := s.client.GetDel(ctx, fmt.Sprintf(keyRequestToken, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRequestTokenNotFound
	}

	if err != nil {
		return "", fmt.Errorf("failed to take request token: %w", err)
	}

	return secret, nil
}

// implements RequestTokenStore using an in-process cache
type MemoryRequestTokenStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// creates a new in-memory request-token store
func NewMemoryRequestTokenStore() *MemoryRequestTokenStore {
	return &MemoryRequestTokenStore{
		cache: cache.New(DefaultRequestTokenTTL, time.Minute),
	}
}

func (s *MemoryRequestTokenStore) Save(_ context.Context, token, secret string, ttl time.Duration) error {
	s.cache.Set(token, secret, ttl)
	return nil
}

func (s *MemoryRequestTokenStore) Take(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := s.cache.Get(token)
	if !found {
		return "", ErrRequestTokenNotFound
	}

	s.cache.Delete(token)

	secret, _ := value.(string)
	return secret, nil
}
