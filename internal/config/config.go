package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	// BusinessTimezone decides which calendar day "today" is for dashboards and the
	// daily price-update sweep.
	BusinessTimezone string

	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ProjectionRatePerSecond and ProjectionBurst throttle production-sheet
	// requests per team. They only apply when Redis is configured.
	ProjectionRatePerSecond float64
	ProjectionBurst         int

	SchedulerInterval    time.Duration
	SchedulerEnabledJobs []string
	SchedulerDisabled    bool

	// MetricsPush* configure shipping metrics from processes without a
	// /metrics listener. An empty exporter disables pushing.
	MetricsPushExporter string
	MetricsPushEndpoint string
	MetricsPushToken    string
	MetricsPushInterval time.Duration

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
	DBRunMigrations   bool

	SnowflakeNode int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:                 getenv("APP_SERVICE", "recurra"),
		AppVersion:              getenv("APP_VERSION", "0.1.0"),
		Environment:             getenv("ENVIRONMENT", "development"),
		OTLPEndpoint:            getenv("OTLP_ENDPOINT", "localhost:4317"),
		BusinessTimezone:        strings.TrimSpace(getenv("BUSINESS_TIMEZONE", "America/Sao_Paulo")),
		HTTPAddr:                getenv("HTTP_ADDR", ":8080"),
		RedisAddr:               strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:           getenv("REDIS_PASSWORD", ""),
		RedisDB:                 int(getenvInt64("REDIS_DB", 0)),
		ProjectionRatePerSecond: getenvFloat("PROJECTION_RATE_PER_SECOND", 1),
		ProjectionBurst:         int(getenvInt64("PROJECTION_BURST", 10)),
		SchedulerInterval:       getenvDuration("SCHEDULER_INTERVAL", time.Hour),
		SchedulerEnabledJobs:    parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
		SchedulerDisabled:       getenvBool("SCHEDULER_DISABLED", false),
		MetricsPushExporter:     strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", "")),
		MetricsPushEndpoint:     strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
		MetricsPushToken:        getenv("METRICS_PUSH_TOKEN", ""),
		MetricsPushInterval:     getenvDuration("METRICS_PUSH_INTERVAL", time.Minute),
		DBType:                  getenv("DATABASE_TYPE", "postgres"),
		DBHost:                  getenv("DATABASE_HOST", "localhost"),
		DBPort:                  getenv("DATABASE_PORT", "5432"),
		DBName:                  getenv("DATABASE_NAME", "recurra"),
		DBUser:                  getenv("DATABASE_USER", "postgres"),
		DBPassword:              getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:               getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:           int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:           int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime:       int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime:       int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),
		DBRunMigrations:         getenvBool("DATABASE_RUN_MIGRATIONS", true),
		SnowflakeNode:           getenvInt64("SNOWFLAKE_NODE", 1),
	}

	return cfg
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
