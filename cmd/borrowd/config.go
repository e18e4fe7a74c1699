package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/borrowd/pkg/store"
)

const (
	defaultAddr       = "127.0.0.1:8090"
	defaultCacheTTL   = 5 * time.Minute
	defaultMaxVisited = 100000
	defaultLogLevel   = "info"
	defaultLogFormat  = "json"
)

type Config struct {
	Addr       string
	DBPath     string
	SeedPath   string
	RedisAddr  string
	CacheTTL   time.Duration
	MaxVisited int
	LogLevel   string
	LogFormat  string
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	addr := addrFromEnv(defaultAddr)
	dbPath := envOrDefault("BORROWD_DB_PATH", store.MemoryPath)
	seedPath := os.Getenv("BORROWD_SEED_PATH")
	redisAddr := os.Getenv("BORROWD_REDIS_ADDR")
	logLevel := envOrDefault("BORROWD_LOG_LEVEL", defaultLogLevel)
	logFormat := envOrDefault("BORROWD_LOG_FORMAT", defaultLogFormat)

	cacheTTL := defaultCacheTTL
	if v := os.Getenv("BORROWD_CACHE_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BORROWD_CACHE_TTL: %w", err)
		}
		if parsed <= 0 {
			return Config{}, errors.New("BORROWD_CACHE_TTL must be positive")
		}
		cacheTTL = parsed
	}

	maxVisited := defaultMaxVisited
	if v := os.Getenv("BORROWD_MAX_VISITED"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BORROWD_MAX_VISITED: %w", err)
		}
		maxVisited = parsed
	}

	flagSet := flag.NewFlagSet("borrowd", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagAddr := flagSet.String("addr", addr, "HTTP listen address")
	flagDB := flagSet.String("db", dbPath, "path to the SQLite audit journal (:memory: keeps it in memory)")
	flagSeed := flagSet.String("seed", seedPath, "YAML fixture loaded at startup")
	flagRedis := flagSet.String("redis", redisAddr, "Redis address for the path cache (empty disables caching)")
	flagCacheTTL := flagSet.String("cache-ttl", cacheTTL.String(), "path cache entry lifetime")
	flagMaxVisited := flagSet.Int("max-visited", maxVisited, "people a single search may visit (0 = unlimited)")
	flagLogLevel := flagSet.String("log-level", logLevel, "debug|info|warn|error")
	flagLogFormat := flagSet.String("log-format", logFormat, "json|console")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	ttl, err := time.ParseDuration(*flagCacheTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	if ttl <= 0 {
		return Config{}, errors.New("cache ttl must be positive")
	}

	config := Config{
		Addr:       strings.TrimSpace(*flagAddr),
		DBPath:     strings.TrimSpace(*flagDB),
		SeedPath:   resolvePath(*flagSeed, cwd),
		RedisAddr:  strings.TrimSpace(*flagRedis),
		CacheTTL:   ttl,
		MaxVisited: *flagMaxVisited,
		LogLevel:   strings.ToLower(strings.TrimSpace(*flagLogLevel)),
		LogFormat:  strings.ToLower(strings.TrimSpace(*flagLogFormat)),
	}

	if config.Addr == "" {
		return Config{}, errors.New("addr cannot be empty")
	}
	if config.DBPath == "" {
		return Config{}, errors.New("db cannot be empty")
	}
	if config.DBPath != store.MemoryPath {
		config.DBPath = resolvePath(config.DBPath, cwd)
	}
	if config.MaxVisited < 0 {
		return Config{}, errors.New("max-visited cannot be negative")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func addrFromEnv(fallback string) string {
	if value := os.Getenv("BORROWD_ADDR"); value != "" {
		return value
	}
	if port := os.Getenv("BORROWD_PORT"); port != "" {
		return fmt.Sprintf("127.0.0.1:%s", port)
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
