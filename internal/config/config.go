package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Default feed locations.
const (
	DefaultCasesURL        = "https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-states.csv"
	DefaultVaccinationsURL = "https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/vaccinations/us_state_vaccinations.csv"
	DefaultLookupURL       = "https://raw.githubusercontent.com/jasonong/List-of-US-States/master/states.csv"
)

// Source cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	RefreshInterval time.Duration
	SourceTimeout   time.Duration

	CasesURL        string
	VaccinationsURL string
	LookupURL       string

	// Source body cache.
	SourceCache     string
	SourceCacheTTL  time.Duration
	SourceCacheSize int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	VaccinationAggregation string
	TopN                   int

	// Snapshot summary publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "100s")
	if err != nil {
		return nil, err
	}
	sourceTimeout, err := parsePositiveDuration("SOURCE_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("SOURCE_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("SOURCE_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	topN, err := parsePositiveInt("TOP_N", 5)
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RefreshInterval: refreshInterval,
		SourceTimeout:   sourceTimeout,

		CasesURL:        sharedcfg.EnvOrDefault("CASES_URL", DefaultCasesURL),
		VaccinationsURL: sharedcfg.EnvOrDefault("VACCINATIONS_URL", DefaultVaccinationsURL),
		LookupURL:       sharedcfg.EnvOrDefault("LOOKUP_URL", DefaultLookupURL),

		SourceCache:     strings.ToLower(sharedcfg.EnvOrDefault("SOURCE_CACHE", CacheMemory)),
		SourceCacheTTL:  cacheTTL,
		SourceCacheSize: cacheSize,
		RedisAddr:       sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,

		VaccinationAggregation: strings.ToLower(sharedcfg.EnvOrDefault("VACCINATION_AGGREGATION", "sum")),
		TopN:                   topN,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "covid-snapshots"),
	}

	switch cfg.SourceCache {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return nil, fmt.Errorf("invalid SOURCE_CACHE %q", cfg.SourceCache)
	}
	switch cfg.VaccinationAggregation {
	case "sum", "latest":
	default:
		return nil, fmt.Errorf("invalid VACCINATION_AGGREGATION %q", cfg.VaccinationAggregation)
	}
	if cfg.CasesURL == "" || cfg.VaccinationsURL == "" || cfg.LookupURL == "" {
		return nil, errors.New("CASES_URL, VACCINATIONS_URL and LOOKUP_URL are required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
