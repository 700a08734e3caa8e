package gatekeeper

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"chat-gatekeeper/middleware/gatekeeper/application"
	"chat-gatekeeper/middleware/gatekeeper/domain"
	"chat-gatekeeper/middleware/gatekeeper/infra"
)

// KeyFunc deriva a chave do cliente a partir da requisição.
type KeyFunc func(r *http.Request) domain.Key

// IdentityFunc resolve a identidade já autenticada pela camada de transporte.
// Retorno nil significa requisição anônima.
type IdentityFunc func(r *http.Request) *domain.Identity

type Options struct {
	Pipeline *application.Pipeline

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	Identity IdentityFunc

	// Stats é opcional; erro de gravação é best-effort.
	Stats domain.StatsStore

	// Throttle e MaxInFlight são guardas de transporte, fora do contrato do
	// pipeline: excesso responde 503 sem consultar os gates.
	Throttle       *infra.Throttle
	MaxInFlight    int
	AcquireTimeout time.Duration
}

// DefaultKeyFunc extrai a chave na ordem: header dedicado, primeiro IP do
// X-Forwarded-For (cliente original), host do RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) domain.Key {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.Key(v)
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return domain.Key(ip)
					}
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return domain.Key(host)
		}
		if r.RemoteAddr != "" {
			return domain.Key(r.RemoteAddr)
		}
		return "unknown"
	}
}

// Middleware monta o handler que roda o pipeline antes do next.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	var slots chan struct{}
	if opts.MaxInFlight > 0 {
		slots = make(chan struct{}, opts.MaxInFlight)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Throttle != nil && !opts.Throttle.Allow() {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			if slots != nil {
				release, ok := acquireSlot(r, slots, opts.AcquireTimeout)
				if !ok {
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				defer release()
			}

			req := domain.Request{
				Method:    r.Method,
				Path:      r.URL.Path,
				ClientKey: opts.KeyFn(r),
			}
			if opts.Identity != nil {
				req.Identity = opts.Identity(r)
			}

			dec := opts.Pipeline.Handle(r.Context(), req)

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     req.ClientKey,
					Allowed: dec.Allowed,
					Stage:   dec.Stage,
					Method:  req.Method,
					Path:    req.Path,
					At:      time.Now(),
				})
			}

			if !dec.Allowed {
				writeRejection(w, dec)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// acquireSlot tenta ocupar uma vaga do semáforo de requisições em voo.
func acquireSlot(r *http.Request, slots chan struct{}, timeout time.Duration) (func(), bool) {
	ctx := r.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case slots <- struct{}{}:
		return func() { <-slots }, true
	case <-ctx.Done():
		return nil, false
	}
}

func writeRejection(w http.ResponseWriter, dec domain.Decision) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if dec.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", formatInt(1))
	}
	w.WriteHeader(dec.Status)
	_, _ = w.Write([]byte(dec.Message))
}
