package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"chat-gatekeeper/middleware/gatekeeper"
	"chat-gatekeeper/middleware/gatekeeper/application"
	"chat-gatekeeper/middleware/gatekeeper/domain"
	"chat-gatekeeper/middleware/gatekeeper/infra"
)

func main() {
	// Exemplo: injetando o gatekeeper diretamente no seu webserver (sem proxy)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clock := infra.NewSystemClock()

	store := infra.NewMemoryWindowStore()
	store.StartJanitor(ctx)

	counter, err := infra.NewSlidingWindowCounter(clock, store, 60*time.Second, 5)
	if err != nil {
		log.Fatalf("rate limiter config error: %v", err)
	}
	counter.StartJanitor(ctx)

	logger := infra.NewAccessLogger(os.Stdout)
	defer logger.Close()

	chatScope := domain.PathRule{Prefixes: []string{"/chats/"}}
	adminScope := domain.PathRule{Prefixes: []string{"/admin/", "/moderation/"}}

	timeGate, err := application.NewAllowedHoursGate(chatScope, 6, 21)
	if err != nil {
		log.Fatalf("time gate config error: %v", err)
	}

	pipeline, err := application.NewPipeline(clock, logger,
		timeGate,
		application.NewRateGate(chatScope, counter),
		application.NewRoleGate(adminScope),
	)
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}

	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	// sem JWT_SECRET toda requisição é anônima e /admin/* responde 403
	var identity gatekeeper.IdentityFunc
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		identity = gatekeeper.BearerIdentity([]byte(secret))
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(gatekeeper.Middleware(gatekeeper.Options{
		Pipeline:           pipeline,
		TrustXForwardedFor: true,
		Identity:           identity,
		Stats:              stats,
	}))

	r.Post("/chats/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("message accepted\n"))
	})
	r.Get("/chats/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("[]\n"))
	})
	r.Get("/admin/reports", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("reports\n"))
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}

	total := stats.Total()
	log.Printf("stats: allowed=%d denied=%d byStage=%v", total.Allowed, total.Denied, stats.ByStage())
}
