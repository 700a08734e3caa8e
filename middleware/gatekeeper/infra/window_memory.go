package infra

import (
	"context"
	"sync"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// MemoryWindowStore guarda o estado da janela em um mapa em processo.
//
// É o backing padrão. O TTL recebido em Set vira um prazo de expiração
// simples, honrado pelo Cleanup periódico; a poda fina fica com o contador.
type MemoryWindowStore struct {
	mu      sync.Mutex
	entries map[domain.Key]*memoryWindowEntry

	cleanupEvery time.Duration
}

type memoryWindowEntry struct {
	events    []time.Time
	expiresAt time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

func WithMemoryCleanupEvery(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

func NewMemoryWindowStore(opts ...MemoryWindowOption) *MemoryWindowStore {
	s := &MemoryWindowStore{
		entries:      make(map[domain.Key]*memoryWindowEntry),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implementa domain.WindowStore. Devolve uma cópia: o chamador pode
// podar e reescrever a sequência sem aliasing com o estado interno.
func (s *MemoryWindowStore) Get(_ context.Context, key domain.Key) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]time.Time, len(ent.events))
	copy(out, ent.events)
	return out, nil
}

// Set implementa domain.WindowStore. Sequência vazia remove a chave.
func (s *MemoryWindowStore) Set(_ context.Context, key domain.Key, events []time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(events) == 0 {
		delete(s.entries, key)
		return nil
	}

	stored := make([]time.Time, len(events))
	copy(stored, events)
	s.entries[key] = &memoryWindowEntry{
		events:    stored,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Len informa quantas chaves estão vivas (útil em testes e diagnóstico).
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup descarta entradas cujo TTL venceu.
func (s *MemoryWindowStore) Cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.expiresAt.Before(now) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor limpa entradas expiradas periodicamente até o contexto encerrar.
func (s *MemoryWindowStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
