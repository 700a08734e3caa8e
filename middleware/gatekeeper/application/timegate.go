package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

// ClockTime é um horário do dia (hora:minuto) em tempo local.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime aceita "HH:MM" (ex: "21:00").
func ParseClockTime(s string) (ClockTime, error) {
	var ct ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &ct.Hour, &ct.Minute); err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ClockTime{}, fmt.Errorf("clock time %q out of range", s)
	}
	return ct, nil
}

func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// minuteOfDay facilita a comparação com semântica meio-aberta.
func (ct ClockTime) minuteOfDay() int {
	return ct.Hour*60 + ct.Minute
}

// TimeGate bloqueia requisições em escopo fora do horário permitido.
//
// Duas formas de configuração, uma ativa por deployment:
//
//   - janela permitida por horas inteiras (NewAllowedHoursGate): bloqueia
//     quando NÃO vale startHour <= hora < endHour;
//   - janela bloqueada com virada de meia-noite (NewClosedWindowGate):
//     bloqueia quando now >= closedFrom OU now < closedUntil se from > until,
//     senão quando from <= now < until.
//
// Limites meio-abertos: inclusivo embaixo, exclusivo em cima. Fora de escopo
// (PathRule) a requisição sempre passa.
type TimeGate struct {
	scope domain.PathRule

	// exatamente um dos dois modos fica ativo
	allowedStart int
	allowedEnd   int
	closed       bool
	closedFrom   ClockTime
	closedUntil  ClockTime

	message string
}

// NewAllowedHoursGate configura a forma "janela permitida" em horas cheias.
func NewAllowedHoursGate(scope domain.PathRule, startHour, endHour int) (*TimeGate, error) {
	if startHour < 0 || startHour > 23 || endHour < 1 || endHour > 24 {
		return nil, fmt.Errorf("allowed hours out of range: %d..%d", startHour, endHour)
	}
	if startHour >= endHour {
		return nil, fmt.Errorf("allowed window must not wrap: %d..%d", startHour, endHour)
	}
	return &TimeGate{
		scope:        scope,
		allowedStart: startHour,
		allowedEnd:   endHour,
		message:      fmt.Sprintf("Chat is only available between %02d:00 and %02d:00.", startHour, endHour),
	}, nil
}

// NewClosedWindowGate configura a forma "janela bloqueada", com suporte a
// virada de meia-noite (ex: 21:00–06:00).
func NewClosedWindowGate(scope domain.PathRule, from, until ClockTime) (*TimeGate, error) {
	if from == until {
		return nil, fmt.Errorf("closed window is empty: %s..%s", from, until)
	}
	return &TimeGate{
		scope:       scope,
		closed:      true,
		closedFrom:  from,
		closedUntil: until,
		message:     fmt.Sprintf("Chat is not available between %s and %s.", from, until),
	}, nil
}

func (g *TimeGate) Name() string { return "time" }

// Evaluate aplica o predicado de horário sobre "now".
func (g *TimeGate) Evaluate(_ context.Context, req domain.Request, now time.Time) domain.Decision {
	if !g.scope.InScope(req.Path) {
		return domain.Forward()
	}
	if g.blocked(now) {
		return domain.RejectWith(domain.StageTime, http.StatusForbidden, g.message)
	}
	return domain.Forward()
}

func (g *TimeGate) blocked(now time.Time) bool {
	if g.closed {
		cur := now.Hour()*60 + now.Minute()
		from := g.closedFrom.minuteOfDay()
		until := g.closedUntil.minuteOfDay()
		if from > until {
			// janela atravessa a meia-noite
			return cur >= from || cur < until
		}
		return cur >= from && cur < until
	}
	h := now.Hour()
	return h < g.allowedStart || h >= g.allowedEnd
}
