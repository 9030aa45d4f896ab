package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Bandi86/2025-sub012/internal/platform/logging"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Default leaked-token list. These substrings come from the observed
// scraper bug history (UI captions spliced into name fields) and are a
// heuristic, not a name-validity proof; override via ANOMALY_LEAKED_TOKENS.
var defaultLeakedTokens = []string{
	"kapura",
	"kapus",
	"mezszám",
	"kezdő",
	"gólszerző",
	"versus",
}

// Config stores runtime configuration for the reconciliation engine.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	DBURL          string
	LogLevel       logging.Level

	IngestMaxWorkers int

	LeakedNameTokens      []string
	MaxNameLength         int
	FarFutureHorizonDays  int
	MinMarketCount        int
	PrimaryMarketName     string
	PrimaryMarketOddCount int

	ReconcileInterval time.Duration

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	logLevel, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	ingestWorkers, err := getEnvAsInt("INGEST_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, err
	}
	if ingestWorkers <= 0 {
		return Config{}, fmt.Errorf("INGEST_MAX_WORKERS must be > 0")
	}

	maxNameLength, err := getEnvAsInt("ANOMALY_MAX_NAME_LENGTH", 60)
	if err != nil {
		return Config{}, err
	}

	horizonDays, err := getEnvAsInt("ANOMALY_FAR_FUTURE_DAYS", 548)
	if err != nil {
		return Config{}, err
	}

	minMarkets, err := getEnvAsInt("MIN_MARKET_COUNT", 2)
	if err != nil {
		return Config{}, err
	}

	primaryOddCount, err := getEnvAsInt("PRIMARY_MARKET_ODD_COUNT", 3)
	if err != nil {
		return Config{}, err
	}

	reconcileInterval, err := getEnvAsDuration("RECONCILE_INTERVAL", 6*time.Hour)
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pyroscopeUploadRate, err := getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second)
	if err != nil {
		return Config{}, err
	}

	serviceName := getEnv("SERVICE_NAME", "match-reconciler")

	return Config{
		AppEnv:         appEnv,
		ServiceName:    serviceName,
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		DBURL:          strings.TrimSpace(getEnv("DB_URL", "")),
		LogLevel:       logLevel,

		IngestMaxWorkers: ingestWorkers,

		LeakedNameTokens:      parseList(getEnv("ANOMALY_LEAKED_TOKENS", "")),
		MaxNameLength:         maxNameLength,
		FarFutureHorizonDays:  horizonDays,
		MinMarketCount:        minMarkets,
		PrimaryMarketName:     getEnv("PRIMARY_MARKET_NAME", "Main Market"),
		PrimaryMarketOddCount: primaryOddCount,

		ReconcileInterval: reconcileInterval,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: getEnv("PYROSCOPE_SERVER_ADDRESS", ""),
		PyroscopeAppName:       getEnv("PYROSCOPE_APP_NAME", serviceName),
		PyroscopeAuthToken:     getEnv("PYROSCOPE_AUTH_TOKEN", ""),
		PyroscopeUploadRate:    pyroscopeUploadRate,
	}, nil
}

// LeakedTokens returns the configured token list or the built-in default.
func (c Config) LeakedTokens() []string {
	if len(c.LeakedNameTokens) > 0 {
		return c.LeakedNameTokens
	}
	return defaultLeakedTokens
}

func (c Config) FarFutureHorizon() time.Duration {
	return time.Duration(c.FarFutureHorizonDays) * 24 * time.Hour
}

func parseAppEnv(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case EnvDev, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q (expected %s or %s)", value, EnvDev, EnvProd)
	}
}

func parseLogLevel(value string) (logging.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logging.LevelDebug, nil
	case "info", "":
		return logging.LevelInfo, nil
	case "warn", "warning":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	default:
		return logging.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", value)
	}
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
