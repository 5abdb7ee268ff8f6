package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-currency-service/internal/config"
	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/cache"
	providers "github.com/LavaJover/shvark-currency-service/internal/infrastructure/exchange_providers"
	publisher "github.com/LavaJover/shvark-currency-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/lock"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/migrate"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config   *config.CurrencyConfig
	Logger   *slog.Logger
	DB       *gorm.DB
	Registry *prometheus.Registry
	Metrics  *metrics.ImportMetrics
	Cache    *cache.RistrettoCache
	Lock     domain.DistributedLock
	Provider domain.ExchangeRateProvider
	Journal  domain.ImportRunLogger
	// Nil when kafka is disabled.
	Publisher    domain.CurrencyEventPublisher
	Subscriber   domain.SubscriberPort
	Repositories *Repositories
	// Nil when admin rate limiting is disabled.
	AdminLimiter *limiter.Limiter

	closers []func() error
}

type Repositories struct {
	SeriesRepo domain.CurrencySeriesRepository
	RateRepo   domain.ExchangeRateRepository
}

func InitializeDependencies(cfg *config.CurrencyConfig, log *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db, err := postgres.InitDB(cfg.CurrencyDB, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	deps.DB = db
	deps.closers = append(deps.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if err := migrate.RunMigrations(db, cfg.CurrencyDB.MigrationsPath, log); err != nil {
		deps.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	deps.Repositories = &Repositories{
		SeriesRepo: repository.NewDefaultCurrencySeriesRepository(db),
		RateRepo:   repository.NewDefaultExchangeRateRepository(db),
	}
	deps.Journal = logger.NewPGImportRunLogger(db)
	deps.Metrics = metrics.NewImportMetrics(deps.Registry)
	deps.Provider = providers.NewFredProvider(cfg.Fred.BaseURL, cfg.Fred.APIKey, cfg.Fred.Timeout)

	deps.Cache = cache.NewRistrettoCache(cfg.Cache.MaxEntries)
	deps.closers = append(deps.closers, func() error {
		deps.Cache.Close()
		return nil
	})

	if cfg.HTTPServer.AdminRateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.HTTPServer.AdminRateLimit)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("admin rate limit: %w", err)
		}
		deps.AdminLimiter = limiter.New(memory.NewStore(), rate)
	}

	if err := deps.initLock(); err != nil {
		deps.Close()
		return nil, fmt.Errorf("lock: %w", err)
	}

	if cfg.KafkaService.Enabled {
		if err := deps.initKafka(); err != nil {
			deps.Close()
			return nil, fmt.Errorf("kafka: %w", err)
		}
	} else {
		log.Info("kafka disabled, currency events will not be published or consumed")
	}

	return deps, nil
}

func (d *Dependencies) initLock() error {
	identity := lock.HolderIdentity()
	switch d.Config.Lock.Backend {
	case "badger":
		badgerLock, err := lock.OpenBadgerLock(d.Config.Lock.BadgerDir, identity)
		if err != nil {
			return err
		}
		d.Lock = badgerLock
		d.closers = append(d.closers, badgerLock.Close)
	default:
		d.Lock = repository.NewDefaultLockRepository(d.DB, identity)
	}
	d.Logger.Info("import lock initialized", "backend", d.Config.Lock.Backend, "identity", identity)
	return nil
}

func (d *Dependencies) initKafka() error {
	kafkaCfg := publisher.KafkaConfig{
		Brokers:    d.Config.KafkaBrokers(),
		Username:   d.Config.KafkaService.Username,
		Password:   d.Config.KafkaService.Password,
		Mechanism:  d.Config.KafkaService.Mechanism,
		TLSEnabled: d.Config.KafkaService.TLSEnabled,
	}

	pub, err := publisher.NewDefaultKafkaPublisher(kafkaCfg)
	if err != nil {
		return fmt.Errorf("publisher: %w", err)
	}
	d.Publisher = pub
	d.closers = append(d.closers, pub.Close)
	d.Subscriber = publisher.NewDefaultKafkaSubscriber(kafkaCfg, d.Logger)
	return nil
}

// PingDB backs the HTTP and gRPC health checks.
func (d *Dependencies) PingDB(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases resources in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
