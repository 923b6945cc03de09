package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmspool/last-man-standing/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	AdminKey           string
	LogLevel           logging.Level

	FixtureFeedByLeague map[string]string
	DeadlineFeedURL     string
	FeedTimeout         time.Duration
	GameStart           time.Time
	DeadlineLead        time.Duration

	RefreshInterval   time.Duration
	ReportConcurrency int

	CacheEnabled bool
	CacheTTL     time.Duration

	LMSAPIEnabled               bool
	LMSAPIURL                   string
	LMSAPIKey                   string
	LMSAPITimeout               time.Duration
	LMSAPIMaxRetries            int
	LMSAPICircuitEnabled        bool
	LMSAPICircuitFailureCount   int
	LMSAPICircuitOpenTimeout    time.Duration
	LMSAPICircuitHalfOpenMaxReq int
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	fixtureFeedByLeague, err := parseURLMap(getEnv("FIXTURE_FEED_MAP", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse FIXTURE_FEED_MAP: %w", err)
	}

	feedTimeout, err := time.ParseDuration(getEnv("FEED_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FEED_TIMEOUT: %w", err)
	}
	if feedTimeout <= 0 {
		return Config{}, fmt.Errorf("FEED_TIMEOUT must be > 0")
	}

	gameStart, err := parseDayOrInstant(getEnv("GAME_START", "2025-08-01"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GAME_START: %w", err)
	}

	deadlineLead, err := time.ParseDuration(getEnv("DEADLINE_LEAD", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DEADLINE_LEAD: %w", err)
	}
	if deadlineLead <= 0 {
		return Config{}, fmt.Errorf("DEADLINE_LEAD must be > 0")
	}

	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be > 0")
	}

	reportConcurrency, err := getEnvAsInt("REPORT_CONCURRENCY", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse REPORT_CONCURRENCY: %w", err)
	}
	if reportConcurrency < 1 {
		return Config{}, fmt.Errorf("REPORT_CONCURRENCY must be >= 1")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	lmsAPIEnabled, err := strconv.ParseBool(getEnv("LMS_API_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_ENABLED: %w", err)
	}
	lmsAPIURL := strings.TrimSpace(getEnv("LMS_API_URL", ""))
	if lmsAPIEnabled && lmsAPIURL == "" {
		return Config{}, fmt.Errorf("LMS_API_URL is required when LMS_API_ENABLED=true")
	}
	lmsAPITimeout, err := time.ParseDuration(getEnv("LMS_API_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_TIMEOUT: %w", err)
	}
	if lmsAPITimeout <= 0 {
		return Config{}, fmt.Errorf("LMS_API_TIMEOUT must be > 0")
	}
	lmsAPIMaxRetries, err := getEnvAsInt("LMS_API_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_MAX_RETRIES: %w", err)
	}
	if lmsAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("LMS_API_MAX_RETRIES must be >= 0")
	}
	lmsAPICircuitEnabled, err := strconv.ParseBool(getEnv("LMS_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_CIRCUIT_ENABLED: %w", err)
	}
	lmsAPICircuitFailureCount, err := getEnvAsInt("LMS_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if lmsAPICircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("LMS_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	lmsAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("LMS_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if lmsAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("LMS_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	lmsAPICircuitHalfOpenMaxReq, err := getEnvAsInt("LMS_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse LMS_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if lmsAPICircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("LMS_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "last-man-standing-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminKey:           strings.TrimSpace(getEnv("ADMIN_KEY", "")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		FixtureFeedByLeague: fixtureFeedByLeague,
		DeadlineFeedURL:     strings.TrimSpace(getEnv("DEADLINE_FEED_URL", "")),
		FeedTimeout:         feedTimeout,
		GameStart:           gameStart,
		DeadlineLead:        deadlineLead,

		RefreshInterval:   refreshInterval,
		ReportConcurrency: reportConcurrency,

		CacheEnabled: cacheEnabled,
		CacheTTL:     cacheTTL,

		LMSAPIEnabled:               lmsAPIEnabled,
		LMSAPIURL:                   lmsAPIURL,
		LMSAPIKey:                   strings.TrimSpace(getEnv("LMS_API_KEY", "")),
		LMSAPITimeout:               lmsAPITimeout,
		LMSAPIMaxRetries:            lmsAPIMaxRetries,
		LMSAPICircuitEnabled:        lmsAPICircuitEnabled,
		LMSAPICircuitFailureCount:   lmsAPICircuitFailureCount,
		LMSAPICircuitOpenTimeout:    lmsAPICircuitOpenTimeout,
		LMSAPICircuitHalfOpenMaxReq: lmsAPICircuitHalfOpenMaxReq,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

// parseURLMap parses "league=url,league=url". The separator is "=" because
// feed URLs contain colons.
func parseURLMap(raw string) (map[string]string, error) {
	out := make(map[string]string)
	parts := strings.Split(raw, ",")
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		segments := strings.SplitN(item, "=", 2)
		if len(segments) != 2 {
			return nil, fmt.Errorf("invalid map item %q, expected league=url", item)
		}

		key := strings.TrimSpace(segments[0])
		if key == "" {
			return nil, fmt.Errorf("empty league name in item %q", item)
		}
		value := strings.TrimSpace(segments[1])
		if value == "" {
			return nil, fmt.Errorf("empty url in item %q", item)
		}

		out[key] = value
	}
	return out, nil
}

// parseDayOrInstant accepts either a calendar day or a full RFC3339 instant.
func parseDayOrInstant(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
