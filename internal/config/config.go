package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Detection DetectionConfig
	Lifecycle LifecycleConfig
	Metrics   MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// MemorySeedFile fills the in-memory stores when DSN is empty.
	MemorySeedFile string
}

// RedisConfig holds Redis connection values and the keys this service owns.
type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	LockTTLSeconds int
	LockKeyPrefix  string
	EventStream    string
	StreamMaxLen   int64
	ScanSummaryKey string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// DetectionConfig drives the violation scan.
type DetectionConfig struct {
	WindowMinutes       int
	Workers             int
	ScanIntervalSeconds int
	SchedulerEnabled    bool
}

// LifecycleConfig drives the ticket workflow.
type LifecycleConfig struct {
	DequeueDelaySeconds int
	TriageDelaySeconds  int
	CloseDelaySeconds   int
	JitterPercent       int
	PollIntervalSeconds int
	BatchSize           int
	Workers             int
	Technicians         []string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

var defaultTechnicians = []string{
	"Alex Rivera - Facilities",
	"Jordan Lee - Facilities",
	"Sam Patel - Building Operations",
	"Morgan Chen - HVAC",
	"Taylor Brooks - Safety Officer",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "room-ticket-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
			MemorySeedFile: os.Getenv("MEMORY_SEED_FILE"),
		},
		Redis: RedisConfig{
			Enabled:        getEnvAsBool("REDIS_ENABLED", true),
			Addr:           getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			LockTTLSeconds: getEnvAsInt("REDIS_LOCK_TTL_SECONDS", 10),
			LockKeyPrefix:  getEnv("REDIS_LOCK_KEY_PREFIX", "room-tickets:lock:room:"),
			EventStream:    getEnv("REDIS_EVENT_STREAM", "room-tickets:events"),
			StreamMaxLen:   int64(getEnvAsInt("REDIS_EVENT_STREAM_MAXLEN", 10000)),
			ScanSummaryKey: getEnv("REDIS_SCAN_SUMMARY_KEY", "room-tickets:scan:latest"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Detection: DetectionConfig{
			WindowMinutes:       getEnvAsInt("DETECTION_WINDOW_MINUTES", 5),
			Workers:             getEnvAsInt("DETECTION_WORKERS", 8),
			ScanIntervalSeconds: getEnvAsInt("DETECTION_SCAN_INTERVAL_SECONDS", 60),
			SchedulerEnabled:    getEnvAsBool("DETECTION_SCHEDULER_ENABLED", true),
		},
		Lifecycle: LifecycleConfig{
			DequeueDelaySeconds: getEnvAsInt("LIFECYCLE_DEQUEUE_DELAY_SECONDS", 30),
			TriageDelaySeconds:  getEnvAsInt("LIFECYCLE_TRIAGE_DELAY_SECONDS", 120),
			CloseDelaySeconds:   getEnvAsInt("LIFECYCLE_CLOSE_DELAY_SECONDS", 600),
			JitterPercent:       getEnvAsInt("LIFECYCLE_JITTER_PERCENT", 20),
			PollIntervalSeconds: getEnvAsInt("LIFECYCLE_POLL_INTERVAL_SECONDS", 5),
			BatchSize:           getEnvAsInt("LIFECYCLE_BATCH_SIZE", 100),
			Workers:             getEnvAsInt("LIFECYCLE_WORKERS", 4),
			Technicians:         getEnvAsList("LIFECYCLE_TECHNICIANS", defaultTechnicians),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Detection.WindowMinutes <= 0 {
		return fmt.Errorf("DETECTION_WINDOW_MINUTES must be positive")
	}
	if c.Lifecycle.JitterPercent < 0 || c.Lifecycle.JitterPercent > 100 {
		return fmt.Errorf("LIFECYCLE_JITTER_PERCENT must be between 0 and 100")
	}
	if len(c.Lifecycle.Technicians) == 0 {
		return fmt.Errorf("LIFECYCLE_TECHNICIANS must name at least one technician")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LockTTL returns how long a room lock may be held.
func (r RedisConfig) LockTTL() time.Duration {
	return secondsOr(r.LockTTLSeconds, 10*time.Second)
}

// Window returns the trailing window of readings a scan looks at.
func (d DetectionConfig) Window() time.Duration {
	return time.Duration(d.WindowMinutes) * time.Minute
}

// ScanInterval returns the period of the background scan.
func (d DetectionConfig) ScanInterval() time.Duration {
	return secondsOr(d.ScanIntervalSeconds, time.Minute)
}

// PollInterval returns how often due transitions are polled.
func (l LifecycleConfig) PollInterval() time.Duration {
	return secondsOr(l.PollIntervalSeconds, 5*time.Second)
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
