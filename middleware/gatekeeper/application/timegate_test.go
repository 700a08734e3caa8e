package application

import (
	"context"
	"net/http"
	"testing"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

var chatScope = domain.PathRule{Prefixes: []string{"/chats/"}}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 10, hour, minute, 0, 0, time.UTC)
}

func chatRequest() domain.Request {
	return domain.Request{Method: http.MethodPost, Path: "/chats/send", ClientKey: "10.0.0.5"}
}

func TestClosedWindowGate_WrapsPastMidnight(t *testing.T) {
	from, _ := ParseClockTime("21:00")
	until, _ := ParseClockTime("06:00")
	g, err := NewClosedWindowGate(chatScope, from, until)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	ctx := context.Background()

	if dec := g.Evaluate(ctx, chatRequest(), at(22, 0)); dec.Allowed {
		t.Fatalf("expected blocked at 22:00")
	}
	if dec := g.Evaluate(ctx, chatRequest(), at(2, 0)); dec.Allowed {
		t.Fatalf("expected blocked at 02:00")
	}
	if dec := g.Evaluate(ctx, chatRequest(), at(10, 0)); !dec.Allowed {
		t.Fatalf("expected allowed at 10:00")
	}
	// limite meio-aberto: exatamente 06:00 já está liberado
	if dec := g.Evaluate(ctx, chatRequest(), at(6, 0)); !dec.Allowed {
		t.Fatalf("expected allowed exactly at 06:00")
	}
	// e exatamente 21:00 já está bloqueado
	if dec := g.Evaluate(ctx, chatRequest(), at(21, 0)); dec.Allowed {
		t.Fatalf("expected blocked exactly at 21:00")
	}
}

func TestClosedWindowGate_RejectionContract(t *testing.T) {
	from, _ := ParseClockTime("21:00")
	until, _ := ParseClockTime("06:00")
	g, _ := NewClosedWindowGate(chatScope, from, until)

	dec := g.Evaluate(context.Background(), chatRequest(), at(23, 30))
	if dec.Allowed {
		t.Fatalf("expected rejection")
	}
	if dec.Status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", dec.Status)
	}
	if dec.Message != "Chat is not available between 21:00 and 06:00." {
		t.Fatalf("unexpected message %q", dec.Message)
	}
	if dec.Stage != domain.StageTime {
		t.Fatalf("expected time stage, got %q", dec.Stage)
	}
}

func TestAllowedHoursGate_HalfOpenBounds(t *testing.T) {
	g, err := NewAllowedHoursGate(chatScope, 6, 21)
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	ctx := context.Background()

	if dec := g.Evaluate(ctx, chatRequest(), at(5, 59)); dec.Allowed {
		t.Fatalf("expected blocked before start hour")
	}
	if dec := g.Evaluate(ctx, chatRequest(), at(6, 0)); !dec.Allowed {
		t.Fatalf("expected allowed at start hour")
	}
	if dec := g.Evaluate(ctx, chatRequest(), at(20, 59)); !dec.Allowed {
		t.Fatalf("expected allowed just before end hour")
	}
	if dec := g.Evaluate(ctx, chatRequest(), at(21, 0)); dec.Allowed {
		t.Fatalf("expected blocked at end hour (exclusive)")
	}

	dec := g.Evaluate(ctx, chatRequest(), at(23, 0))
	if dec.Message != "Chat is only available between 06:00 and 21:00." {
		t.Fatalf("unexpected message %q", dec.Message)
	}
}

func TestTimeGate_OutOfScopeAlwaysPasses(t *testing.T) {
	g, _ := NewAllowedHoursGate(chatScope, 6, 21)

	req := domain.Request{Method: http.MethodGet, Path: "/health"}
	if dec := g.Evaluate(context.Background(), req, at(3, 0)); !dec.Allowed {
		t.Fatalf("expected out-of-scope request to pass at any hour")
	}
}

func TestParseClockTime(t *testing.T) {
	ct, err := ParseClockTime("21:05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.Hour != 21 || ct.Minute != 5 {
		t.Fatalf("unexpected parse result: %+v", ct)
	}
	if ct.String() != "21:05" {
		t.Fatalf("unexpected String: %q", ct.String())
	}

	if _, err := ParseClockTime("25:00"); err == nil {
		t.Fatalf("expected error for hour out of range")
	}
	if _, err := ParseClockTime("abc"); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestTimeGate_ConstructorValidation(t *testing.T) {
	if _, err := NewAllowedHoursGate(chatScope, 21, 6); err == nil {
		t.Fatalf("expected error for wrapped allowed window")
	}
	if _, err := NewAllowedHoursGate(chatScope, -1, 6); err == nil {
		t.Fatalf("expected error for negative start hour")
	}
	ct, _ := ParseClockTime("10:00")
	if _, err := NewClosedWindowGate(chatScope, ct, ct); err == nil {
		t.Fatalf("expected error for empty closed window")
	}
}
