// Package config reads the daemon configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultListenAddr     = ":8080"
	DefaultWindow         = 300 * time.Second
	DefaultResolveTimeout = 5 * time.Second
	DefaultCacheSize      = 1024
	DefaultSQLMethod      = "example"
	DefaultLogLevel       = "info"
)

const (
	EnvListenAddr     = "DIDAUTH_LISTEN_ADDR"
	EnvWindow         = "DIDAUTH_WINDOW"
	EnvResolveTimeout = "DIDAUTH_RESOLVE_TIMEOUT"
	EnvCacheSize      = "DIDAUTH_CACHE_SIZE"
	EnvCacheTTL       = "DIDAUTH_CACHE_TTL"
	EnvRedisAddr      = "DIDAUTH_REDIS_ADDR"
	EnvRedisPassword  = "DIDAUTH_REDIS_PASSWORD"
	EnvRedisDB        = "DIDAUTH_REDIS_DB"
	EnvPostgresDSN    = "DIDAUTH_POSTGRES_DSN"
	EnvSQLMethod      = "DIDAUTH_SQL_METHOD"
	EnvWebInsecure    = "DIDAUTH_WEB_INSECURE"
	EnvLogLevel       = "DIDAUTH_LOG_LEVEL"
)

type Config struct {
	ListenAddr     string
	LogLevel       string
	Window         time.Duration
	ResolveTimeout time.Duration

	CacheSize int
	// CacheTTL of zero keeps resolved documents until evicted.
	CacheTTL time.Duration

	// RedisAddr enables the shared nonce store and document cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgresDSN enables the document store backend for SQLMethod.
	PostgresDSN string
	SQLMethod   string

	WebInsecure bool
}

// Load reads the configuration, falling back to defaults for unset
// variables. Malformed values are errors.
func Load() (Config, error) {
	var err error
	cfg := Config{
		ListenAddr:    envDefault(EnvListenAddr, DefaultListenAddr),
		LogLevel:      envDefault(EnvLogLevel, DefaultLogLevel),
		RedisAddr:     os.Getenv(EnvRedisAddr),
		RedisPassword: os.Getenv(EnvRedisPassword),
		PostgresDSN:   os.Getenv(EnvPostgresDSN),
		SQLMethod:     envDefault(EnvSQLMethod, DefaultSQLMethod),
	}
	if cfg.Window, err = envDuration(EnvWindow, DefaultWindow); err != nil {
		return Config{}, err
	}
	if cfg.ResolveTimeout, err = envDuration(EnvResolveTimeout, DefaultResolveTimeout); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDuration(EnvCacheTTL, 0); err != nil {
		return Config{}, err
	}
	if cfg.CacheSize, err = envInt(EnvCacheSize, DefaultCacheSize); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = envInt(EnvRedisDB, 0); err != nil {
		return Config{}, err
	}
	if cfg.WebInsecure, err = envBool(EnvWebInsecure, false); err != nil {
		return Config{}, err
	}
	if cfg.Window <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", EnvWindow)
	}
	if cfg.CacheSize <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", EnvCacheSize)
	}
	return cfg, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}
