package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"

	"channelcast/internal/auth"
	"channelcast/internal/config"
	"channelcast/internal/db"
	"channelcast/internal/dispatch"
	"channelcast/internal/handlers"
	"channelcast/internal/health"
	"channelcast/internal/identity"
	"channelcast/internal/logger"
	"channelcast/internal/media"
	"channelcast/internal/metrics"
	"channelcast/internal/middleware"
	"channelcast/internal/storage"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const telegramInitDataMaxAge = 24 * time.Hour

func main() {
	cfg, loaded := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !loaded {
		log.Info("no .env file loaded, using process environment")
	}

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatal("database init failed", "error", err)
	}

	m := metrics.New()

	authn, err := buildAuthenticator(cfg.Auth)
	if err != nil {
		log.Fatal("auth init failed", "error", err)
	}
	resolver := identity.NewResolver(authn, log, m, identity.WithSecureCookies(cfg.CookieSecure))

	dispatcher, closeDispatcher := buildDispatcher(cfg, log, m)
	defer closeDispatcher()

	var objects storage.ObjectStore
	store, storeErr := storage.NewMinioStore(cfg.Storage)
	if storeErr != nil {
		log.Warn("object storage disabled, playback links will fail", "error", storeErr)
	} else {
		objects = store
	}
	broker := media.NewBroker(objects, storeErr, cfg.Storage.SignedURLTTL, log, m)
	prober := health.NewProber(cfg.WorkerBaseURL, cfg.HealthProbeTimeout, m)

	h := handlers.New(
		resolver,
		dispatcher,
		broker,
		prober,
		middleware.PerMinute(cfg.GenerateRatePerMin),
		cfg.BaseURL,
		log,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(h, m, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "port", cfg.Port, "commit", CommitSHA, "dispatch_mode", cfg.DispatchMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
	log.Info("server stopped")
}

func newRouter(h *handlers.Handlers, m *metrics.Metrics, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	h.Register(r)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	return r
}

// buildAuthenticator chains every configured provider. With none configured all
// requests are anonymous.
func buildAuthenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	var chain auth.Chain
	if cfg.JWTSecret != "" || cfg.JWKSURL != "" {
		jwtAuth, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   cfg.JWTSecret,
			JWKSURL:  cfg.JWKSURL,
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, jwtAuth)
	}
	if cfg.TelegramBotToken != "" {
		chain = append(chain, auth.NewTelegramAuthenticator(cfg.TelegramBotToken, telegramInitDataMaxAge))
	}
	return chain, nil
}

// buildDispatcher picks the job transport. The returned func releases its resources.
func buildDispatcher(cfg config.Config, log *logger.Logger, m *metrics.Metrics) (dispatch.Dispatcher, func()) {
	if cfg.DispatchMode != config.DispatchModeQueue {
		return dispatch.NewHTTPDispatcher(cfg.WorkerBaseURL, cfg.WorkerClientTimeout, log, m), func() {}
	}
	if cfg.RedisAddr == "" {
		return dispatch.NewQueueDispatcher(nil, log, m), func() {}
	}
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	return dispatch.NewQueueDispatcher(client, log, m), func() {
		if err := client.Close(); err != nil {
			log.Warn("closing queue client failed", "error", err)
		}
	}
}
