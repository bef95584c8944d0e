package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fruitloop24/metergate/adapters/clock"
	"github.com/Fruitloop24/metergate/adapters/idgen"
	"github.com/Fruitloop24/metergate/adapters/identity"
	"github.com/Fruitloop24/metergate/adapters/memory"
	"github.com/Fruitloop24/metergate/adapters/metrics"
	"github.com/Fruitloop24/metergate/adapters/payment"
	rediskv "github.com/Fruitloop24/metergate/adapters/redis"
	"github.com/Fruitloop24/metergate/adapters/sqlite"
	"github.com/Fruitloop24/metergate/app"
	"github.com/Fruitloop24/metergate/config"
	"github.com/Fruitloop24/metergate/domain/tier"
	"github.com/Fruitloop24/metergate/ports"
	"github.com/Fruitloop24/metergate/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the metering service",
	Long: `Start the MeterGate HTTP service.

The server will:
  - Load configuration from metergate.yaml (or --config)
  - Or load configuration from METERGATE_* environment variables
  - Connect to the configured key-value store
  - Serve the metered API with quota and rate limit enforcement

Environment variables (for Docker deployments):
  METERGATE_SERVER_PORT         - Server port (default: 8080)
  METERGATE_STORE_DRIVER        - Store driver: memory, sqlite, redis
  METERGATE_STORE_REDIS_ADDR    - Redis address
  METERGATE_RATELIMIT_PER_MINUTE - Per-minute limit (default: 100)
  METERGATE_LOG_LEVEL           - Log level: debug, info, warn, error

Examples:
  metergate serve
  metergate serve --config /etc/metergate/config.yaml
  metergate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var cfg *config.Config
	var holder *config.Holder
	var err error

	bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if hasConfigFile && hotReload {
		holder, err = config.NewHolder(cfgFile, bootLogger)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = holder.Get()
	} else {
		cfg, err = config.LoadWithFallback(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		if !hasConfigFile {
			fmt.Println("Running with environment variables (no config file)")
		}
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Msg("initializing metergate")

	store, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	registry := tierRegistry(cfg)

	var promRegistry *prometheus.Registry
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		promRegistry = prometheus.NewRegistry()
		collector = metrics.NewWithRegistry(promRegistry)
		logger.Info().Msg("prometheus metrics enabled")
	}

	identityWriter := identityWriter(cfg.Identity, logger)

	payments, err := payment.NewProvider(cfg.Billing.Mode, payment.StripeConfig{
		SecretKey:     cfg.Billing.StripeKey,
		WebhookSecret: cfg.Billing.WebhookSecret,
		SuccessURL:    cfg.Billing.SuccessURL,
		CancelURL:     cfg.Billing.CancelURL,
		ReturnURL:     cfg.Billing.ReturnURL,
	})
	if err != nil {
		return fmt.Errorf("init payment provider: %w", err)
	}

	meter := app.NewMeterService(app.MeterDeps{
		Store:   store,
		Tiers:   registry,
		Logger:  logger,
		Metrics: collector,
	})
	limiter := app.NewRateLimitService(app.RateLimitDeps{
		Store:     store,
		PerMinute: cfg.RateLimit.PerMinute,
		Logger:    logger,
		Metrics:   collector,
	})
	billing := app.NewBillingService(app.BillingDeps{
		Payments: payments,
		Tiers:    registry,
		Logger:   logger,
	})
	syncSvc := app.NewEntitlementSyncService(app.EntitlementSyncDeps{
		Identity:    identityWriter,
		Tiers:       registry,
		DefaultTier: cfg.DefaultTier,
		Logger:      logger,
		Metrics:     collector,
	})

	if holder != nil {
		holder.OnChange(func(newCfg *config.Config) {
			reg := tierRegistry(newCfg)
			meter.UpdateTiers(reg)
			billing.UpdateTiers(reg)
			syncSvc.UpdateTiers(reg)
		})
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("config file watch unavailable")
		}
		holder.WatchSignals()
		defer holder.Stop()
	}

	handler := web.NewHandler(web.Deps{
		Meter:    meter,
		Limiter:  limiter,
		Billing:  billing,
		Sync:     syncSvc,
		Payments: payments,
		Clock:    clock.Real{},
		IDGen:    idgen.UUID{},
		Auth: web.AuthConfig{
			Mode:            cfg.Auth.Mode,
			JWTSecret:       cfg.Auth.JWTSecret,
			PrincipalHeader: cfg.Auth.PrincipalHeader,
			TierHeader:      cfg.Auth.TierHeader,
			EmailHeader:     cfg.Auth.EmailHeader,
		},
		CORS:     cfg.CORS.AllowedOrigins,
		Logger:   logger,
		Metrics:  collector,
		Registry: promRegistry,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	return nil
}

func setupLogger(cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func openStore(cfg config.Store, logger zerolog.Logger) (ports.KVStore, func(), error) {
	switch cfg.Driver {
	case "redis":
		store, err := rediskv.NewKVStore(rediskv.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		return store, func() { store.Close() }, nil

	case "sqlite":
		store, err := sqlite.Open(cfg.SQLite.Path, clock.Real{})
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.SQLite.Path).Msg("opened sqlite store")
		return store, func() { store.Close() }, nil

	default:
		logger.Warn().Msg("using in-memory store, state is lost on restart")
		return memory.NewKVStore(clock.Real{}), func() {}, nil
	}
}

func tierRegistry(cfg *config.Config) *tier.Registry {
	defs := make([]tier.Definition, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		defs = append(defs, tier.Definition{
			ID:               t.ID,
			Name:             t.Name,
			PriceMonthly:     t.PriceMonthly,
			RequestsPerMonth: t.RequestsPerMonth,
			StripePriceID:    t.StripePriceID,
		})
	}
	return tier.NewRegistry(defs)
}

func identityWriter(cfg config.Identity, logger zerolog.Logger) ports.IdentityWriter {
	if cfg.Mode == "clerk" {
		logger.Info().Msg("clerk identity writer enabled")
		return identity.NewClerkWriter(identity.ClerkConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
		})
	}
	return identity.Noop{}
}
