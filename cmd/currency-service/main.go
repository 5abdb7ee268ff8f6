package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/app/setup"
	"github.com/LavaJover/shvark-currency-service/internal/config"
	"github.com/LavaJover/shvark-currency-service/internal/delivery/consumer"
	"github.com/LavaJover/shvark-currency-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-currency-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/logger"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	shutdownTimeout     = 15 * time.Second
	healthProbeInterval = 15 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	cfg := config.MustLoad()

	appLogger, logCloser, err := logger.New(cfg.LogConfig)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(appLogger)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("currency service stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("currency service stopped")
}

func run(cfg *config.CurrencyConfig, appLogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("init dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			appLogger.Warn("failed to close dependencies", "error", err)
		}
	}()

	ucs := setup.InitializeUseCases(deps)
	workers, err := setup.InitializeWorkers(deps, ucs)
	if err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Rates:        handlers.NewExchangeRateHandler(ucs.ExchangeRateQuery, appLogger),
		Admin:        handlers.NewAdminHandler(ctx, workers.ImportJob, deps.Journal, ucs.CurrencySeriesUsecase, appLogger),
		Gatherer:     deps.Registry,
		Health:       deps.PingDB,
		AdminLimiter: deps.AdminLimiter,
		Logger:       appLogger,
	})
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	health := grpcapi.NewHealthHandler(deps.PingDB, healthProbeInterval, appLogger)
	health.Register(grpcServer)
	lis, err := net.Listen("tcp", net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return workers.DailyTrigger.Start(gctx)
	})

	if deps.Subscriber != nil {
		currencyConsumer := consumer.NewCurrencyCreatedConsumer(
			deps.Subscriber,
			workers.ImportJob,
			ucs.ImportUsecase,
			cfg.KafkaService.ConsumerGroup,
			appLogger,
		)
		g.Go(func() error {
			return currencyConsumer.Start(gctx)
		})
	}

	g.Go(func() error {
		appLogger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("grpc server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return health.Watch(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	stop()
	// Pending retries observe the cancelled context, record the abort and
	// release the lock before we close the database.
	workers.Scheduler.Wait()
	return err
}
