package application

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type recordingSink struct {
	events []domain.AccessEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev domain.AccessEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

type stubGate struct {
	name     string
	decision domain.Decision
	calls    int
}

func (g *stubGate) Name() string { return g.name }

func (g *stubGate) Evaluate(context.Context, domain.Request, time.Time) domain.Decision {
	g.calls++
	return g.decision
}

func TestPipeline_RunsGatesInOrderAndForwards(t *testing.T) {
	g1 := &stubGate{name: "time", decision: domain.Forward()}
	g2 := &stubGate{name: "rate", decision: domain.Forward()}
	sink := &recordingSink{}

	p, err := NewPipeline(fixedClock{now: at(10, 0)}, sink, g1, g2)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	dec := p.Handle(context.Background(), chatRequest())
	if !dec.Allowed {
		t.Fatalf("expected forward")
	}
	if g1.calls != 1 || g2.calls != 1 {
		t.Fatalf("expected every gate to run once, got %d/%d", g1.calls, g2.calls)
	}
}

func TestPipeline_FirstRejectionShortCircuits(t *testing.T) {
	reject := domain.RejectWith(domain.StageTime, http.StatusForbidden, "blocked")
	g1 := &stubGate{name: "time", decision: reject}
	g2 := &stubGate{name: "rate", decision: domain.Forward()}

	p, _ := NewPipeline(fixedClock{now: at(10, 0)}, nil, g1, g2)

	dec := p.Handle(context.Background(), chatRequest())
	if dec.Allowed || dec.Stage != domain.StageTime {
		t.Fatalf("expected time-stage rejection, got %+v", dec)
	}
	if g2.calls != 0 {
		t.Fatalf("expected later gates to be skipped, got %d calls", g2.calls)
	}
}

func TestPipeline_LogsBeforeGatesEvenWhenRejected(t *testing.T) {
	reject := domain.RejectWith(domain.StageRole, http.StatusForbidden, "no")
	sink := &recordingSink{}

	p, _ := NewPipeline(fixedClock{now: at(10, 0)}, sink, &stubGate{name: "role", decision: reject})

	req := chatRequest()
	req.Identity = &domain.Identity{Username: "alice", Authenticated: true}
	p.Handle(context.Background(), req)

	if len(sink.events) != 1 {
		t.Fatalf("expected access event for rejected request, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.User != "alice" || ev.Path != "/chats/send" {
		t.Fatalf("unexpected access event %+v", ev)
	}
	if !ev.At.Equal(at(10, 0)) {
		t.Fatalf("expected event stamped with pipeline clock, got %v", ev.At)
	}
}

func TestPipeline_AnonymousUserLabel(t *testing.T) {
	sink := &recordingSink{}
	p, _ := NewPipeline(fixedClock{now: at(10, 0)}, sink)

	p.Handle(context.Background(), chatRequest())

	if sink.events[0].User != "Anonymous" {
		t.Fatalf("expected Anonymous label, got %q", sink.events[0].User)
	}
}

func TestPipeline_SinkFailureNeverRejects(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	gate := &stubGate{name: "rate", decision: domain.Forward()}

	p, _ := NewPipeline(fixedClock{now: at(10, 0)}, sink, gate)

	dec := p.Handle(context.Background(), chatRequest())
	if !dec.Allowed {
		t.Fatalf("expected forward despite sink failure")
	}
	if gate.calls != 1 {
		t.Fatalf("expected gates to still run")
	}
}

func TestPipeline_RequiresClock(t *testing.T) {
	if _, err := NewPipeline(nil, nil); err == nil {
		t.Fatalf("expected error for nil clock")
	}
}
