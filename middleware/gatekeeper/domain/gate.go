package domain

import (
	"context"
	"strings"
	"time"
)

// Clock fornece o tempo corrente para os gates.
//
// Abstraído para permitir testes determinísticos (ver infra.ManualClock).
type Clock interface {
	Now() time.Time
}

// Gate é um estágio do pipeline que pode rejeitar uma requisição com base em
// um predicado sobre horário, identidade ou taxa.
//
// Regras: nunca entra em pânico nem propaga erro para o orquestrador; todo
// estágio devolve uma Decision. Um gate fora de escopo devolve Forward.
type Gate interface {
	Name() string
	Evaluate(ctx context.Context, req Request, now time.Time) Decision
}

// PathRule define o escopo de um gate por prefixos de path.
//
// Uma requisição está em escopo sse o path começa com algum dos prefixos.
// Uma regra sem prefixos não alcança requisição nenhuma (gate inerte).
type PathRule struct {
	Prefixes []string
}

// InScope informa se o path está sujeito à política do gate.
func (r PathRule) InScope(path string) bool {
	for _, p := range r.Prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
