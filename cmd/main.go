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

	"github.com/Oliunekits/price-tracker-bot/internal/cache"
	"github.com/Oliunekits/price-tracker-bot/internal/config"
	"github.com/Oliunekits/price-tracker-bot/internal/database"
	"github.com/Oliunekits/price-tracker-bot/internal/handlers"
	"github.com/Oliunekits/price-tracker-bot/internal/logger"
	"github.com/Oliunekits/price-tracker-bot/internal/routes"
	"github.com/Oliunekits/price-tracker-bot/internal/services"
	"github.com/Oliunekits/price-tracker-bot/internal/tracing"
	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/Oliunekits/price-tracker-bot/pricing/binance"
	"github.com/Oliunekits/price-tracker-bot/pricing/coingecko"
	"github.com/Oliunekits/price-tracker-bot/pricing/frankfurter"
	"github.com/Oliunekits/price-tracker-bot/pricing/nbu"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command line flags
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if flags.InitConfig {
		if err := config.SaveConfig(config.Default(), flags.ConfigPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("default configuration written to %s\n", flags.ConfigPath)
		return
	}

	configFile := flags.ConfigPath
	if _, statErr := os.Stat(configFile); configFile != "" && errors.Is(statErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "config file %s not found, using environment only\n", configFile)
		configFile = ""
	}

	// Load configuration
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("price tracker stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing.OTLPEndpoint, cfg.Tracing.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	var (
		lock    services.Locker
		limiter pricing.Limiter
	)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func(c *redis.Client) { _ = c.Close() }(rdb)

		lock = cache.NewRedisLock(rdb, cache.PassLockKey, cfg.Redis.LockTTL())
		if cfg.Providers.RateLimitPerMinute > 0 {
			limiter = cache.NewRateLimiter(rdb, cfg.Providers.RateLimitPerMinute, log)
		}
		log.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	// Set up price providers
	timeout := cfg.Providers.HTTPTimeout()
	crypto, err := pricing.NewCrypto(cfg.Providers.CryptoProvider, cryptoOptions(cfg.Providers, timeout))
	if err != nil {
		return err
	}
	if cfg.Providers.AnchorCurrency != nbu.Anchor {
		return fmt.Errorf("anchor currency %s is not served by %s", cfg.Providers.AnchorCurrency, nbu.Name)
	}
	fx := pricing.NewFallbackRates(
		pricing.LimitRates(frankfurter.NewClient(endpointOptions(cfg.Providers.Frankfurter, timeout)), limiter),
		pricing.LimitAnchor(nbu.NewClient(endpointOptions(cfg.Providers.NBU, timeout)), limiter),
	)
	coins := coingecko.NewClient(endpointOptions(cfg.Providers.CoinGecko, timeout))

	// Set up services
	trackers := services.NewTrackerService(db)
	aggregator := services.NewRateAggregator(
		pricing.LimitCrypto(crypto, limiter), fx, cfg.Providers.MaxConcurrentRequests, log)

	notifier, err := services.NewNotifier(cfg.Notifier, timeout, log)
	if err != nil {
		return err
	}
	dispatcher := services.NewDispatcher(notifier, loc, log)
	checker := services.NewChecker(trackers, aggregator, dispatcher, services.CheckerOptions{
		RedeliverOnFailure: cfg.Alerts.RedeliverOnFailure,
		Location:           loc,
	}, log)
	scheduler := services.NewScheduler(checker, services.SchedulerOptions{
		Interval:    cfg.Scheduler.Interval(),
		PassTimeout: cfg.Scheduler.PassTimeout(),
		RunOnStart:  cfg.Scheduler.RunOnStart,
		Lock:        lock,
	}, log)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, routes.Handlers{
		Trackers: handlers.NewTrackerHandler(trackers, aggregator, log),
		Rates:    handlers.NewRatesHandler(aggregator, coins, log),
		Checks:   handlers.NewChecksHandler(scheduler),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("crypto_provider", crypto.Name()),
			zap.String("notifier", cfg.Notifier.Type),
			zap.Duration("interval", cfg.Scheduler.Interval()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("server shutdown failed", zap.Error(err))
	}
	scheduler.Wait()
	return nil
}

func endpointOptions(e config.EndpointConfig, timeout time.Duration) pricing.Options {
	return pricing.Options{
		BaseURL: e.BaseURL,
		APIKey:  e.APIKey,
		Timeout: timeout,
	}
}

func cryptoOptions(p config.ProvidersConfig, timeout time.Duration) pricing.Options {
	if p.CryptoProvider == binance.Name {
		return pricing.Options{
			BaseURL:      p.Binance.BaseURL,
			Timeout:      timeout,
			QuoteAliases: p.Binance.QuoteAliases,
		}
	}
	return endpointOptions(p.CoinGecko, timeout)
}
