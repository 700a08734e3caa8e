package infra

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// SlidingWindowCounter implementa domain.Counter sobre um WindowStore.
//
// A cada Observe: remove da sequência da chave os eventos fora da janela,
// rejeita sem registrar quando a contagem já alcançou o limite, senão
// registra "now" e permite. Evento rejeitado não conta contra janelas
// futuras.
//
// Concorrência: cada chave tem seu próprio lock; o mutex externo protege
// apenas o get-or-create do mapa de locks. Chamadas de Observe para chaves
// diferentes não se bloqueiam, e para a mesma chave a sequência
// prune/append/count nunca se intercala.
type SlidingWindowCounter struct {
	clock  domain.Clock
	store  domain.WindowStore
	window time.Duration
	limit  int

	// exclusive troca a comparação de >= para > (variante de compatibilidade)
	exclusive bool

	idleTTL      time.Duration
	cleanupEvery time.Duration

	mu    sync.Mutex
	locks map[domain.Key]*keyLock
}

type keyLock struct {
	mu       sync.Mutex
	lastSeen time.Time
}

type CounterOption func(*SlidingWindowCounter)

// WithExclusiveBoundary rejeita apenas acima do limite (limit+1 eventos na
// janela) em vez de ao alcançá-lo. Mantido para compatibilidade; o padrão
// é rejeitar ao alcançar o limite.
func WithExclusiveBoundary() CounterOption {
	return func(c *SlidingWindowCounter) { c.exclusive = true }
}

func WithCounterIdleTTL(d time.Duration) CounterOption {
	return func(c *SlidingWindowCounter) { c.idleTTL = d }
}

func WithCounterCleanupEvery(d time.Duration) CounterOption {
	return func(c *SlidingWindowCounter) { c.cleanupEvery = d }
}

// NewSlidingWindowCounter valida a configuração na construção: janela ou
// limite não positivos são erro fatal de configuração, nunca um limiter que
// silenciosamente admite ou bloqueia tudo.
func NewSlidingWindowCounter(clk domain.Clock, store domain.WindowStore, window time.Duration, limit int, opts ...CounterOption) (*SlidingWindowCounter, error) {
	if clk == nil {
		return nil, fmt.Errorf("sliding window: clock is required")
	}
	if store == nil {
		return nil, fmt.Errorf("sliding window: store is required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("sliding window: window must be > 0, got %s", window)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("sliding window: limit must be > 0, got %d", limit)
	}

	c := &SlidingWindowCounter{
		clock:        clk,
		store:        store,
		window:       window,
		limit:        limit,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		locks:        make(map[domain.Key]*keyLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Observe implementa domain.Counter.
func (c *SlidingWindowCounter) Observe(ctx context.Context, key domain.Key, now time.Time) (int, bool, error) {
	// defesa em profundidade: configuração inválida nunca admite
	if c.limit <= 0 || c.window <= 0 {
		return 0, false, nil
	}

	lk := c.lock(key, now)
	lk.mu.Lock()
	defer lk.mu.Unlock()

	events, err := c.store.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}

	kept := c.prune(events, now)

	reject := len(kept) >= c.limit
	if c.exclusive {
		reject = len(kept) > c.limit
	}
	if reject {
		// persiste a poda mesmo na rejeição: entradas velhas nunca ficam
		// para trás entre leituras
		if len(kept) != len(events) {
			if err := c.store.Set(ctx, key, kept, c.window); err != nil {
				return len(kept), false, err
			}
		}
		return len(kept), false, nil
	}

	kept = append(kept, now)
	if err := c.store.Set(ctx, key, kept, c.window); err != nil {
		return len(kept) - 1, false, err
	}
	return len(kept), true, nil
}

// prune mantém apenas eventos dentro da janela. A comparação usa diferença
// absoluta: se "now" regrediu (skew de relógio), eventos "no futuro" além da
// janela também caem, em vez de ficarem retidos indefinidamente.
func (c *SlidingWindowCounter) prune(events []time.Time, now time.Time) []time.Time {
	kept := events[:0]
	for _, ev := range events {
		d := now.Sub(ev)
		if d < 0 {
			d = -d
		}
		if d <= c.window {
			kept = append(kept, ev)
		}
	}
	return kept
}

func (c *SlidingWindowCounter) lock(key domain.Key, now time.Time) *keyLock {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lk, ok := c.locks[key]; ok {
		lk.lastSeen = now
		return lk
	}
	lk := &keyLock{lastSeen: now}
	c.locks[key] = lk
	return lk
}

// Cleanup remove locks de chaves ociosas. O estado da janela em si expira
// pelo TTL do WindowStore; aqui só evitamos crescer o mapa de locks.
func (c *SlidingWindowCounter) Cleanup() {
	cutoff := c.clock.Now().Add(-c.idleTTL)

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, lk := range c.locks {
		if lk.lastSeen.Before(cutoff) {
			delete(c.locks, k)
		}
	}
}

// StartJanitor limpa chaves ociosas periodicamente até o contexto encerrar.
func (c *SlidingWindowCounter) StartJanitor(ctx context.Context) {
	if c.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(c.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				c.Cleanup()
			}
		}
	}()
}
