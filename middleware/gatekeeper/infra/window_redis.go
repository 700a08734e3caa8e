package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// RedisWindowStore guarda o estado da janela em um cache externo com TTL.
//
// O valor é a lista de timestamps serializada em JSON (nanos Unix). A
// serialização get/modify/set é garantida por processo pelos locks do
// contador; entre processos vale a mesma semântica do cache compartilhado.
type RedisWindowStore struct {
	rdb    *redis.Client
	prefix string
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func NewRedisWindowStore(rdb *redis.Client, opts ...RedisWindowOption) *RedisWindowStore {
	s := &RedisWindowStore{
		rdb:    rdb,
		prefix: "gatekeeper:window",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) key(key domain.Key) string {
	return s.prefix + ":" + string(key)
}

// Get implementa domain.WindowStore.
func (s *RedisWindowStore) Get(ctx context.Context, key domain.Key) ([]time.Time, error) {
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("window get %q: %w", key, err)
	}

	var nanos []int64
	if err := json.Unmarshal(raw, &nanos); err != nil {
		return nil, fmt.Errorf("window decode %q: %w", key, err)
	}

	events := make([]time.Time, len(nanos))
	for i, n := range nanos {
		events[i] = time.Unix(0, n)
	}
	return events, nil
}

// Set implementa domain.WindowStore. Sequência vazia remove a chave.
func (s *RedisWindowStore) Set(ctx context.Context, key domain.Key, events []time.Time, ttl time.Duration) error {
	if len(events) == 0 {
		if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
			return fmt.Errorf("window del %q: %w", key, err)
		}
		return nil
	}

	nanos := make([]int64, len(events))
	for i, ev := range events {
		nanos[i] = ev.UnixNano()
	}
	raw, err := json.Marshal(nanos)
	if err != nil {
		return fmt.Errorf("window encode %q: %w", key, err)
	}

	if err := s.rdb.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("window set %q: %w", key, err)
	}
	return nil
}
