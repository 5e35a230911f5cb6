package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/complaint-hub/complaint-hub/internal/domain/attachment"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds service configuration.
type Config struct {
	StoreDriver     string
	DatabaseURL     string
	DatabaseMaxConn int32
	MigrationsDir   string
	ServerAddr      string
	ShutdownTimeout time.Duration
	LogLevel        zerolog.Level

	AttachmentRoot     string
	AttachmentMaxBytes int64
	ChecksumAlgorithm  attachment.Algorithm

	HistorySigningKey []byte

	NotifyWorkers   int
	NotifyQueueSize int
	NotifySSERule   string
	NotifyRedisRule string
	RedisURL        string
	RedisChannel    string
}

// Load reads configuration from the environment. Variables from ENV_FILE,
// or ./.env when present, are loaded first without overriding the process
// environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "complaints")
		pass := getenv("POSTGRES_PASSWORD", "complaints_pass")
		db := getenv("POSTGRES_DB", "complaints")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	driver := strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres))
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, driver)
	}

	alg, err := attachment.ParseAlgorithm(os.Getenv("ATTACHMENT_CHECKSUM"))
	if err != nil {
		return nil, fmt.Errorf("ATTACHMENT_CHECKSUM: %w", err)
	}

	var key []byte
	if raw := os.Getenv("HISTORY_SIGNING_KEY"); raw != "" {
		key, err = hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("HISTORY_SIGNING_KEY must be hex: %w", err)
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getenv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		StoreDriver:        driver,
		DatabaseURL:        dsn,
		DatabaseMaxConn:    int32(parseInt(getenv("DATABASE_MAX_CONNS", "10"), 10)),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "internal/migrations"),
		ServerAddr:         getenv("SERVER_ADDR", "0.0.0.0:8080"),
		ShutdownTimeout:    parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		LogLevel:           level,
		AttachmentRoot:     getenv("ATTACHMENT_ROOT", "data/attachments"),
		AttachmentMaxBytes: int64(parseInt(getenv("ATTACHMENT_MAX_BYTES", "10485760"), 10<<20)),
		ChecksumAlgorithm:  alg,
		HistorySigningKey:  key,
		NotifyWorkers:      parseInt(getenv("NOTIFY_WORKERS", "4"), 4),
		NotifyQueueSize:    parseInt(getenv("NOTIFY_QUEUE_SIZE", "1024"), 1024),
		NotifySSERule:      os.Getenv("NOTIFY_SSE_RULE"),
		NotifyRedisRule:    os.Getenv("NOTIFY_REDIS_RULE"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisChannel:       getenv("REDIS_CHANNEL", "complaints"),
	}
	if cfg.AttachmentMaxBytes <= 0 {
		return nil, errors.New("ATTACHMENT_MAX_BYTES must be positive")
	}
	return cfg, nil
}

func loadEnvFile() error {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
