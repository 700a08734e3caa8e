package domain

import (
	"context"
	"time"
)

// AccessEvent representa uma linha do log de acesso.
//
// User já vem formatado (nome do usuário autenticado ou "Anonymous").
type AccessEvent struct {
	At   time.Time
	User string
	Path string
}

// AccessSink recebe eventos de acesso, um por requisição.
//
// O pipeline trata erro como best-effort: falha de escrita nunca bloqueia
// nem rejeita a requisição.
type AccessSink interface {
	Record(ctx context.Context, ev AccessEvent) error
}
