package infra

import (
	"golang.org/x/time/rate"
)

// Throttle é um token bucket global (processo inteiro), usado pelo adapter
// HTTP como backpressure de ingresso antes do pipeline por cliente.
//
// Diferente do SlidingWindowCounter, não distingue clientes: é uma proteção
// grosseira de capacidade, não uma política por chave.
type Throttle struct {
	lim *rate.Limiter
}

func NewThrottle(rps float64, burst int) *Throttle {
	return &Throttle{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttle) Allow() bool {
	if t == nil || t.lim == nil {
		return true
	}
	return t.lim.Allow()
}

func (t *Throttle) RPS() float64 { return float64(t.lim.Limit()) }
func (t *Throttle) Burst() int   { return t.lim.Burst() }
