package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão do gatekeeper para fins operacionais.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
// Stage fica vazio quando a requisição foi encaminhada.
//
// Observação: cuidado com cardinalidade (salvar Key/Path sem controle pode
// explodir o número de campos em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Allowed bool
	Stage   Stage

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para contadores de decisão.
//
// Implementações podem armazenar em Redis, memória, etc.
// O adapter HTTP deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
