package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const ConfigPathEnv = "CURRENCY_CONFIG_PATH"

type CurrencyConfig struct {
	Env                string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer         `yaml:"http_server"`
	GRPCServer         `yaml:"grpc_server"`
	CurrencyDB         `yaml:"currency_db"`
	LogConfig          `yaml:"log_config"`
	KafkaService       `yaml:"kafka-service"`
	Fred               `yaml:"fred"`
	ExchangeRateImport `yaml:"exchange_rate_import"`
	Lock               `yaml:"lock"`
	Cache              `yaml:"cache"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`

	// Requests per client IP on the admin routes, limiter format ("30-M").
	// Empty disables limiting.
	AdminRateLimit string `yaml:"admin_rate_limit" env:"HTTP_ADMIN_RATE_LIMIT" env-default:"30-M"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

type CurrencyDB struct {
	Dsn            string `yaml:"dsn" env:"CURRENCY_DB_DSN"`
	MigrationsPath string `yaml:"migrations_path" env:"CURRENCY_DB_MIGRATIONS_PATH" env-default:"migrations"`
	MaxOpenConns   int    `yaml:"max_open_conns" env-default:"10"`
	MaxIdleConns   int    `yaml:"max_idle_conns" env-default:"5"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type KafkaService struct {
	Host          string `yaml:"host" env:"KAFKA_HOST" env-default:"localhost"`
	Port          string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	Username      string `yaml:"username" env:"KAFKA_USERNAME"`
	Password      string `yaml:"password" env:"KAFKA_PASSWORD"`
	Mechanism     string `yaml:"mechanism" env:"KAFKA_MECHANISM"`
	TLSEnabled    bool   `yaml:"tls_enabled" env:"KAFKA_TLS_ENABLED"`
	Enabled       bool   `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"true"`
	ConsumerGroup string `yaml:"consumer_group" env-default:"currency-service-import"`
}

type Fred struct {
	BaseURL string        `yaml:"base_url" env:"FRED_BASE_URL" env-default:"https://api.stlouisfed.org"`
	APIKey  string        `yaml:"api_key" env:"FRED_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"FRED_TIMEOUT" env-default:"30s"`
}

type ExchangeRateImport struct {
	// UTC wall clock time, HH:MM.
	Schedule     string        `yaml:"schedule" env:"IMPORT_SCHEDULE" env-default:"17:00"`
	RunOnStartup bool          `yaml:"run_on_startup" env:"IMPORT_RUN_ON_STARTUP" env-default:"true"`
	LockName     string        `yaml:"lock_name" env-default:"exchangeRateImport"`
	MinHold      time.Duration `yaml:"min_hold" env-default:"1m"`
	MaxHold      time.Duration `yaml:"max_hold" env-default:"30m"`
	Retry        ImportRetry   `yaml:"retry"`
}

type ImportRetry struct {
	MaxAttempts        int           `yaml:"max_attempts" env:"IMPORT_RETRY_MAX_ATTEMPTS" env-default:"3"`
	BaseDelay          time.Duration `yaml:"base_delay" env:"IMPORT_RETRY_BASE_DELAY" env-default:"5m"`
	FailFastOnRejected bool          `yaml:"fail_fast_on_rejected" env:"IMPORT_RETRY_FAIL_FAST_ON_REJECTED" env-default:"true"`
}

type Lock struct {
	// postgres or badger
	Backend   string `yaml:"backend" env:"LOCK_BACKEND" env-default:"postgres"`
	BadgerDir string `yaml:"badger_dir" env:"LOCK_BADGER_DIR"`
}

type Cache struct {
	TTL        time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"1h"`
	MaxEntries int64         `yaml:"max_entries" env-default:"10000"`
}

// Retry delays double per attempt; more attempts than this overflow.
const maxRetryAttempts = 16

func (c *CurrencyConfig) Validate() error {
	if c.CurrencyDB.Dsn == "" {
		return fmt.Errorf("currency_db.dsn is required")
	}
	if _, err := time.Parse("15:04", c.ExchangeRateImport.Schedule); err != nil {
		return fmt.Errorf("exchange_rate_import.schedule must be HH:MM: %w", err)
	}
	if n := c.ExchangeRateImport.Retry.MaxAttempts; n < 1 || n > maxRetryAttempts {
		return fmt.Errorf("exchange_rate_import.retry.max_attempts must be between 1 and %d, got %d", maxRetryAttempts, n)
	}
	if c.ExchangeRateImport.Retry.BaseDelay < 0 {
		return fmt.Errorf("exchange_rate_import.retry.base_delay must not be negative")
	}
	if c.ExchangeRateImport.MaxHold <= 0 {
		return fmt.Errorf("exchange_rate_import.max_hold must be positive")
	}
	if c.ExchangeRateImport.MinHold > c.ExchangeRateImport.MaxHold {
		return fmt.Errorf("exchange_rate_import.min_hold must not exceed max_hold")
	}
	switch c.Lock.Backend {
	case "postgres":
	case "badger":
	default:
		return fmt.Errorf("lock.backend must be postgres or badger, got %q", c.Lock.Backend)
	}
	return nil
}

func (c *CurrencyConfig) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%s", c.KafkaService.Host, c.KafkaService.Port)}
}

// Load reads the YAML file at path and overlays environment variables.
func Load(path string) (*CurrencyConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg CurrencyConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *CurrencyConfig {
	configPath := os.Getenv(ConfigPathEnv)
	if configPath == "" {
		log.Fatalf("%s was not found\n", ConfigPathEnv)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	return cfg
}
