package application

import (
	"context"
	"errors"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// Pipeline executa os gates em ordem fixa com curto-circuito.
//
// O log de acesso roda sempre, antes de qualquer gate, e nunca rejeita.
// O primeiro gate a rejeitar encerra o processamento; caso contrário a
// requisição é encaminhada ao downstream (fora deste pacote).
type Pipeline struct {
	clock domain.Clock
	sink  domain.AccessSink
	gates []domain.Gate
}

// NewPipeline monta o pipeline com a ordem recebida.
//
// O clock é obrigatório: todos os gates avaliam o mesmo "now" por requisição.
// O sink é opcional (nil desabilita o log de acesso).
func NewPipeline(clock domain.Clock, sink domain.AccessSink, gates ...domain.Gate) (*Pipeline, error) {
	if clock == nil {
		return nil, errors.New("pipeline: clock is required")
	}
	return &Pipeline{clock: clock, sink: sink, gates: gates}, nil
}

// Handle avalia a requisição e devolve a decisão terminal.
//
// Nenhum erro atravessa a fronteira dos estágios: gates devolvem Decision,
// e falha do sink de log é engolida (best-effort).
func (p *Pipeline) Handle(ctx context.Context, req domain.Request) domain.Decision {
	now := p.clock.Now()

	if p.sink != nil {
		_ = p.sink.Record(ctx, domain.AccessEvent{
			At:   now,
			User: req.Identity.Display(),
			Path: req.Path,
		})
	}

	for _, g := range p.gates {
		if dec := g.Evaluate(ctx, req, now); !dec.Allowed {
			return dec
		}
	}
	return domain.Forward()
}
