package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/core/reconcile"
	httpx "payhub/internal/http"
	"payhub/internal/logging"
	"payhub/internal/provider"
	"payhub/internal/provider/base"
	"payhub/internal/provider/catalog"
	"payhub/internal/services/data"
	paymentsvc "payhub/internal/services/payment"
	webhooksvc "payhub/internal/services/webhook"
	"payhub/internal/store/memory"
	"payhub/internal/store/postgres"
	redisstore "payhub/internal/store/redis"
	"payhub/internal/store/repositories"
)

// stores is the storage surface shared by the postgres and memory backends.
type stores interface {
	Attempts() repositories.AttemptRepository
	ConnectorEvents() repositories.ConnectorEventRepository
	WebhookEvents() repositories.WebhookEventRepository
	Accounts() repositories.AccountRepository
	UnitOfWork() repositories.UnitOfWork
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.App.Env, cfg.Log.Level, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: postgres when configured, memory for a bare sandbox
	var st stores
	var tokens repositories.TokenCache
	if cfg.DB.DSN != "" {
		pool := postgres.MustOpen(ctx, cfg.DB.DSN)
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("schema")
		}
		st = postgres.NewRepo(pool, cfg.Sec.AESKey)
	} else {
		log.Warn().Msg("DB_DSN empty; using in-memory store")
		mem := memory.New()
		st = mem
		tokens = mem.Tokens()
	}
	if cfg.Redis.Addr != "" {
		rdb := redisstore.MustConnect(ctx, cfg.Redis.Addr)
		defer rdb.Close()
		tokens = redisstore.NewTokenCache(rdb, cfg.Sec.AESKey)
	}

	// Connectors
	reg := provider.NewProviderRegistry(cfg)
	if err := catalog.Register(reg); err != nil {
		log.Fatal().Err(err).Msg("connector catalog")
	}
	exec := base.NewHTTPClient("connectors", 30, 2)

	payments := paymentsvc.NewService(paymentsvc.Deps{
		Registry:   reg,
		Connectors: cfg.Connectors,
		Executor:   exec,
		Sink:       connector.MultiSink{connector.LogSink{}, repositories.NewEventSink(st.ConnectorEvents())},
		Attempts:   st.Attempts(),
		Accounts:   st.Accounts(),
		Tokens:     tokens,
		SyncDelay:  cfg.Reconcile.SyncDelay,
	})
	webhooks := webhooksvc.NewService(reg, st.Accounts(), st.WebhookEvents(), st.UnitOfWork())

	// Start reconciliation worker
	worker := reconcile.NewWorker(st.Attempts(), payments, cfg.Reconcile)
	go worker.Run(ctx)

	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:         cfg,
		Registry:       reg,
		PaymentService: payments,
		WebhookService: webhooks,
		DataService:    data.NewService(st.Attempts(), st.ConnectorEvents(), st.WebhookEvents()),
		Accounts:       st.Accounts(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("connectors", len(reg.List())).Msgf("payhub API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
