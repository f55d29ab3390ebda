package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kislikjeka/walletsync/internal/infra/gateway/horizon"
	"github.com/kislikjeka/walletsync/internal/infra/postgres"
	infraRedis "github.com/kislikjeka/walletsync/internal/infra/redis"
	"github.com/kislikjeka/walletsync/internal/infra/vault"
	"github.com/kislikjeka/walletsync/internal/platform/account"
	"github.com/kislikjeka/walletsync/internal/platform/cache"
	"github.com/kislikjeka/walletsync/internal/platform/dashboard"
	"github.com/kislikjeka/walletsync/internal/platform/telemetry"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/handler"
	"github.com/kislikjeka/walletsync/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/walletsync/pkg/config"
	"github.com/kislikjeka/walletsync/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithFormat(cfg.Env, cfg.LogFormat, os.Stdout)
	log.Info("Starting walletsync daemon",
		"env", cfg.Env,
		"port", cfg.Port,
		"network", cfg.Network,
		"store", cfg.StoreBackend,
	)

	network, err := cfg.ResolveNetwork()
	if err != nil {
		log.Error("Failed to resolve network", "error", err)
		os.Exit(1)
	}

	// Ledger gateway
	horizonClient := horizon.NewClient(network.HorizonURL, cfg.HorizonRPS, log)
	ledger := horizon.NewLedgerAdapter(horizonClient, network.NativeAsset)
	log.Info("Ledger gateway initialized", "horizon_url", network.HorizonURL)

	// Secure store backend
	blobs, health, closeStore, err := openBlobStore(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open secure store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewPrometheusCollector(registry)
	if err != nil {
		log.Error("Failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Dashboards
	clock := clockwork.NewRealClock()
	existence, err := account.NewExistenceCache(ledger, account.ExistenceConfig{
		TTL:  cfg.ExistenceTTL,
		Size: account.DefaultExistenceConfig().Size,
	}, clock, metrics, log)
	if err != nil {
		log.Error("Failed to create existence cache", "error", err)
		os.Exit(1)
	}
	dashboardCfg := &dashboard.Config{
		MinRefreshInterval: cfg.MinRefreshInterval,
		TTL: cache.TTLConfig{
			Existence: cfg.ExistenceTTL,
			Assets:    cfg.AssetsTTL,
			Payments:  cfg.PaymentsTTL,
			Contacts:  cfg.ContactsTTL,
			KYC:       cfg.KYCTTL,
		},
		Existence: existence,
	}
	kdf := vault.DefaultKDFParams()

	dashboards := dashboard.NewRegistry(func(address string) (*dashboard.Dashboard, error) {
		v := vault.New(address, blobs, cfg.VaultPassphrase, kdf, log)
		return dashboard.New(address, ledger, v, v, dashboardCfg, cache.Options{
			Clock:   clock,
			Metrics: metrics,
			Logger:  log,
		})
	}, cfg.DashboardIdleTTL, log)

	refresher := dashboard.NewRefresher(&dashboard.RefresherConfig{
		Interval:    cfg.AutoRefreshInterval,
		Concurrency: 4,
		Enabled:     cfg.AutoRefreshInterval > 0,
	}, dashboards, clock, log)

	// HTTP
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	r := httpapi.NewRouter(httpapi.Config{
		Logger:           log,
		AllowedOrigins:   cfg.AllowedOrigins,
		DashboardHandler: handler.NewDashboardHandler(dashboards, log),
		ContactHandler:   handler.NewContactHandler(dashboards, log),
		KycHandler:       handler.NewKycHandler(dashboards, log),
		HealthHandler:    handler.NewHealthHandler(health, dashboards, version),
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		JWTMiddleware:    middleware.JWTMiddleware(jwtSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go refresher.Run(ctx)
	log.Info("Auto refresher started", "interval", cfg.AutoRefreshInterval)

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	refresher.Stop()
	log.Info("Auto refresher stopped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}

// openBlobStore connects the configured secure store backend. The returned
// pinger is nil for the in-memory backend.
func openBlobStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (vault.BlobStore, handler.Pinger, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("Database connection established")
		return postgres.NewBlobRepository(db.Pool), db, db.Close, nil

	case config.StoreRedis:
		client, err := infraRedis.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("Redis connection established")
		store := infraRedis.NewBlobStore(client, log)
		return store, store, func() { client.Close() }, nil

	default:
		log.Warn("Secure store is in memory, contacts and KYC data are lost on restart")
		return vault.NewMemoryBlobStore(), nil, func() {}, nil
	}
}
