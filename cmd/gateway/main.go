package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"chat-gatekeeper/middleware/gatekeeper"
	"chat-gatekeeper/middleware/gatekeeper/application"
	"chat-gatekeeper/middleware/gatekeeper/domain"
	"chat-gatekeeper/middleware/gatekeeper/infra"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		if r.Header.Get("X-Request-ID") == "" {
			r.Header.Set("X-Request-ID", uuid.NewString())
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clock := infra.NewSystemClock()

	var rdb *redis.Client
	if cfg.redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}
	}

	var winStore domain.WindowStore
	switch cfg.windowBackend {
	case "redis":
		if rdb == nil {
			log.Fatalf("WINDOW_BACKEND=redis requires REDIS_ADDR")
		}
		winStore = infra.NewRedisWindowStore(rdb)
	case "memory":
		mem := infra.NewMemoryWindowStore()
		mem.StartJanitor(ctx)
		winStore = mem
	default:
		log.Fatalf("invalid WINDOW_BACKEND %q (memory|redis)", cfg.windowBackend)
	}

	counter, err := infra.NewSlidingWindowCounter(clock, winStore, cfg.rateWindow, cfg.rateLimit)
	if err != nil {
		log.Fatalf("rate limiter config error: %v", err)
	}
	counter.StartJanitor(ctx)

	logger, err := infra.OpenAccessLog(cfg.accessLogPath)
	if err != nil {
		log.Fatalf("access log error: %v", err)
	}
	defer logger.Close()

	timeGate, err := buildTimeGate(cfg)
	if err != nil {
		log.Fatalf("time gate config error: %v", err)
	}

	gates := []domain.Gate{}
	if timeGate != nil {
		gates = append(gates, timeGate)
	}
	gates = append(gates,
		application.NewRateGate(domain.PathRule{Prefixes: cfg.chatPrefixes}, counter),
		application.NewRoleGate(domain.PathRule{Prefixes: cfg.protectedPrefixes}),
	)

	pipeline, err := application.NewPipeline(clock, logger, gates...)
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}

	var stats domain.StatsStore
	if cfg.statsEnabled {
		if rdb == nil {
			log.Fatalf("STATS_ENABLED=true requires REDIS_ADDR")
		}
		stats = infra.NewRedisStatsStore(rdb, infra.WithStatsTrackKeys(cfg.statsTrackKeys))
	}

	var throttle *infra.Throttle
	if cfg.globalRPS > 0 {
		throttle = infra.NewThrottle(cfg.globalRPS, cfg.globalBurst)
	}

	var identity gatekeeper.IdentityFunc
	if cfg.jwtSecret != "" {
		identity = gatekeeper.BearerIdentity([]byte(cfg.jwtSecret))
	}

	h := http.Handler(proxy)
	h = gatekeeper.Middleware(gatekeeper.Options{
		Pipeline:           pipeline,
		KeyHeader:          cfg.keyHeader,
		TrustXForwardedFor: cfg.trustXFF,
		Identity:           identity,
		Stats:              stats,
		Throttle:           throttle,
		MaxInFlight:        cfg.maxInFlight,
		AcquireTimeout:     cfg.acquireTimeout,
	})(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("gatekeeper listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("rate: limit=%d window=%s backend=%s chatPrefixes=%v", cfg.rateLimit, cfg.rateWindow, cfg.windowBackend, cfg.chatPrefixes)
	log.Printf("role: protectedPrefixes=%v jwt=%v", cfg.protectedPrefixes, cfg.jwtSecret != "")
	log.Printf("access-log: %s", cfg.accessLogPath)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("access-log: dropped=%d writeErrors=%d", logger.Dropped(), logger.WriteErrors())
}

func buildTimeGate(cfg config) (domain.Gate, error) {
	scope := domain.PathRule{Prefixes: cfg.chatPrefixes}

	if cfg.closedFrom != "" || cfg.closedUntil != "" {
		if cfg.closedFrom == "" || cfg.closedUntil == "" {
			return nil, errors.New("CLOSED_FROM and CLOSED_UNTIL must be set together")
		}
		from, err := application.ParseClockTime(cfg.closedFrom)
		if err != nil {
			return nil, err
		}
		until, err := application.ParseClockTime(cfg.closedUntil)
		if err != nil {
			return nil, err
		}
		return application.NewClosedWindowGate(scope, from, until)
	}

	if cfg.allowedStartHour >= 0 {
		return application.NewAllowedHoursGate(scope, cfg.allowedStartHour, cfg.allowedEndHour)
	}

	// sem configuração de horário: gate desligado
	return nil, nil
}

type config struct {
	listenAddr  string
	upstreamURL string

	rateLimit     int
	rateWindow    time.Duration
	windowBackend string
	chatPrefixes  []string

	allowedStartHour int
	allowedEndHour   int
	closedFrom       string
	closedUntil      string

	protectedPrefixes []string

	keyHeader string
	trustXFF  bool

	jwtSecret     string
	accessLogPath string

	redisAddr     string
	redisPassword string
	redisDB       int

	statsEnabled   bool
	statsTrackKeys bool

	globalRPS      float64
	globalBurst    int
	maxInFlight    int
	acquireTimeout time.Duration
}

func readConfig() (config, error) {
	_ = godotenv.Load()

	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.rateLimit = getenvIntDefault("RATE_LIMIT", 5)
	cfg.rateWindow = getenvDurationDefault("RATE_WINDOW", 60*time.Second)
	cfg.windowBackend = getenvDefault("WINDOW_BACKEND", "memory")
	cfg.chatPrefixes = getenvListDefault("CHAT_PREFIXES", []string{"/chats/", "/api/chats/"})

	cfg.allowedStartHour = getenvIntDefault("ALLOWED_START_HOUR", -1)
	cfg.allowedEndHour = getenvIntDefault("ALLOWED_END_HOUR", -1)
	cfg.closedFrom = os.Getenv("CLOSED_FROM")
	cfg.closedUntil = os.Getenv("CLOSED_UNTIL")

	cfg.protectedPrefixes = getenvListDefault("PROTECTED_PREFIXES", []string{"/admin/", "/moderation/"})

	cfg.keyHeader = os.Getenv("KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", true)

	cfg.jwtSecret = os.Getenv("JWT_SECRET")
	cfg.accessLogPath = getenvDefault("ACCESS_LOG", "requests.log")

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)

	cfg.statsEnabled = getenvBoolDefault("STATS_ENABLED", false)
	cfg.statsTrackKeys = getenvBoolDefault("STATS_TRACK_KEYS", false)

	cfg.globalRPS = getenvFloatDefault("GLOBAL_RPS", 0)
	cfg.globalBurst = getenvIntDefault("GLOBAL_BURST", 50)
	cfg.maxInFlight = getenvIntDefault("MAX_INFLIGHT", 0)
	cfg.acquireTimeout = getenvDurationDefault("ACQUIRE_TIMEOUT", 0)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.rateLimit <= 0 {
		return config{}, errors.New("RATE_LIMIT must be > 0")
	}
	if cfg.rateWindow <= 0 {
		return config{}, errors.New("RATE_WINDOW must be > 0")
	}
	if (cfg.allowedStartHour >= 0) != (cfg.allowedEndHour >= 0) {
		return config{}, errors.New("ALLOWED_START_HOUR and ALLOWED_END_HOUR must be set together")
	}
	if cfg.closedFrom != "" && cfg.allowedStartHour >= 0 {
		return config{}, errors.New("use ALLOWED_*_HOUR or CLOSED_FROM/CLOSED_UNTIL, not both")
	}
	if cfg.maxInFlight < 0 {
		return config{}, errors.New("MAX_INFLIGHT must be >= 0")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvListDefault(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
