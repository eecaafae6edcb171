package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kedaipos/backend/internal/cache"
	"kedaipos/backend/internal/config"
	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/httpapi"
	"kedaipos/backend/internal/logging"
	"kedaipos/backend/internal/notify"
	"kedaipos/backend/internal/service"
	"kedaipos/backend/internal/store"
	"kedaipos/backend/internal/store/memory"
	"kedaipos/backend/internal/store/mirror"
	"kedaipos/backend/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info")
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logging.New(cfg.LogLevel)

	loc, err := time.LoadLocation(cfg.OutletTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.OutletTimezone).Msg("unknown outlet timezone")
	}

	ctx := context.Background()
	var closers []io.Closer

	// The in-memory store is always the authoritative runtime state. Postgres,
	// when configured, mirrors it for durability and hydrates it on boot.
	mem := memory.New(domain.ShopSettings{
		ShopName:           cfg.ShopName,
		TaxRatePercent:     cfg.TaxRatePercent,
		ServiceRatePercent: cfg.ServiceRatePercent,
	})

	var repo store.Repository = mem
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable, running memory-only")
		} else {
			closers = append(closers, pg)
			mirrored := mirror.New(mem, pg, log)
			if err := mirrored.Hydrate(ctx); err != nil {
				log.Warn().Err(err).Msg("hydration from postgres failed")
			}
			repo = mirrored
			log.Info().Msg("postgres mirror enabled")
		}
	}

	var summaries cache.SummaryCache = cache.NoopSummaryCache{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisCache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, summary cache disabled")
			_ = redisCache.Close()
		} else {
			summaries = redisCache
			closers = append(closers, redisCache)
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis summary cache enabled")
		}
	}

	notifier := notify.NewWebhook(cfg.WebhookURL, cfg.OutletID, cfg.WebhookTimeout(), log)

	svc := service.New(service.Options{
		Repo:       repo,
		Notifier:   notifier,
		Summaries:  summaries,
		SummaryTTL: cfg.SummaryCacheTTL(),
		Outlet:     cfg.OutletID,
		Location:   loc,
		Log:        log,
	})

	api := httpapi.NewServer(svc, cfg.AllowedOrigin, log)
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("outlet", cfg.OutletID).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("closer failed")
		}
	}
}
