package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewSyncConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	SchedulerEnabled bool
	SchedulerJobs    []string // empty runs every job
	SeedRegistrars   bool

	OTLPEndpoint string

	Metrics MetricsConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig
	Queue QueueConfig

	// CredentialSecret derives the key that seals registrar credential bags.
	CredentialSecret string
	// ScrapingantAPIKey enables the rendering fallback when set.
	ScrapingantAPIKey string
	FetchTimeout      time.Duration
	RenderTimeout     time.Duration

	ManualSyncRate  int
	ManualSyncBurst int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	// Driver is "redis" or "memory".
	Driver      string
	Name        string
	Concurrency int
	ItemTimeout time.Duration
}

type MetricsConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

const (
	QueueDriverRedis  = "redis"
	QueueDriverMemory = "memory"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "domainledger"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      getenv("ENVIRONMENT", "development"),
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		SchedulerEnabled: getenvBool("SCHEDULER_ENABLED", true),
		SchedulerJobs:    getenvList("SCHEDULER_JOBS"),
		SeedRegistrars:   getenvBool("SEED_REGISTRARS", true),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		Metrics: MetricsConfig{
			Exporter:  strings.ToLower(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "domainledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			Driver:      normalizeQueueDriver(getenv("QUEUE_DRIVER", QueueDriverRedis)),
			Name:        getenv("QUEUE_NAME", "domainledger:sync"),
			Concurrency: getenvInt("QUEUE_CONCURRENCY", 4),
			ItemTimeout: getenvDuration("QUEUE_ITEM_TIMEOUT", 5*time.Minute),
		},
		CredentialSecret:  strings.TrimSpace(getenv("CREDENTIAL_SECRET", "")),
		ScrapingantAPIKey: strings.TrimSpace(getenv("SCRAPINGANT_API_KEY", "")),
		FetchTimeout:      getenvDuration("FETCH_TIMEOUT", 30*time.Second),
		RenderTimeout:     getenvDuration("RENDER_TIMEOUT", 90*time.Second),
		ManualSyncRate:    getenvInt("MANUAL_SYNC_RATE", 1),
		ManualSyncBurst:   getenvInt("MANUAL_SYNC_BURST", 5),
	}

	return cfg
}

func normalizeQueueDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case QueueDriverMemory:
		return QueueDriverMemory
	default:
		return QueueDriverRedis
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
