package application

import (
	"context"
	"net/http"
	"strings"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

const rateLimitedMessage = "Rate limit exceeded. Please try again later."

// RateGate aplica o controle de admissão por janela deslizante.
//
// Fora de escopo (PathRule) a requisição passa sem tocar o contador.
// Falha interna do contador (ex: cache externo fora do ar) nega a
// requisição: gates de política falham fechado.
type RateGate struct {
	scope   domain.PathRule
	counter domain.Counter
	methods []string
}

type RateGateOption func(*RateGate)

// WithMethods restringe o gate aos métodos informados (vazio = todos).
func WithMethods(methods ...string) RateGateOption {
	return func(g *RateGate) { g.methods = methods }
}

func NewRateGate(scope domain.PathRule, counter domain.Counter, opts ...RateGateOption) *RateGate {
	g := &RateGate{scope: scope, counter: counter}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *RateGate) Name() string { return "rate" }

func (g *RateGate) Evaluate(ctx context.Context, req domain.Request, now time.Time) domain.Decision {
	if !g.scope.InScope(req.Path) || !g.methodInScope(req.Method) {
		return domain.Forward()
	}

	_, allowed, err := g.counter.Observe(ctx, req.ClientKey, now)
	if err != nil || !allowed {
		return domain.RejectWith(domain.StageRate, http.StatusTooManyRequests, rateLimitedMessage)
	}
	return domain.Forward()
}

func (g *RateGate) methodInScope(method string) bool {
	if len(g.methods) == 0 {
		return true
	}
	for _, m := range g.methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
