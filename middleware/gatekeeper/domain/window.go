package domain

import (
	"context"
	"time"
)

// WindowStore é a estratégia de persistência da janela deslizante por chave.
//
// O valor é a sequência ordenada de timestamps (mais antigo primeiro) dos
// eventos observados. Set com sequência vazia equivale a remover a chave;
// ausência e sequência vazia são equivalentes para o contador.
//
// Implementações podem manter o estado em memória ou em um cache externo
// com TTL (ex: Redis). O ttl é uma dica de expiração: após esse período sem
// escrita a chave pode ser descartada.
type WindowStore interface {
	Get(ctx context.Context, key Key) ([]time.Time, error)
	Set(ctx context.Context, key Key, events []time.Time, ttl time.Duration) error
}

// Counter decide a admissão de um evento dentro da janela deslizante.
//
// Observe retorna o total de eventos válidos na janela após a decisão e se o
// evento foi admitido. Um evento rejeitado NÃO é registrado: cliente abusivo
// não mantém a própria janela cheia espamando chamadas rejeitadas.
type Counter interface {
	Observe(ctx context.Context, key Key, now time.Time) (count int, allowed bool, err error)
}
