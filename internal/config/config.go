package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paceline/raceresults/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	DBURL                         string
	DBMaxOpenConns                int
	DBMaxIdleConns                int
	DBConnMaxLifetime             time.Duration
	DBDisablePreparedBinaryResult bool

	CORSAllowedOrigins []string

	// InternalJobToken guards the import endpoints; imports mutate storage
	// and crawl third parties, so they are never publicly callable.
	InternalJobToken string

	SporthiveBaseURL    string
	SporthiveTimeout    time.Duration
	SporthiveMaxRetries int
	SporthivePageDelay  time.Duration

	RaceResultBaseURL    string
	RaceResultTimeout    time.Duration
	RaceResultMaxRetries int
	RaceResultPageDelay  time.Duration

	UptraceEnabled bool
	UptraceDSN     string

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string

	LogLevel logging.Level
}

func Load() (Config, error) {
	cfg := Config{}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = getEnv("SERVICE_NAME", "raceresults")
	cfg.ServiceVersion = getEnv("SERVICE_VERSION", "dev")
	cfg.HTTPAddr = getEnv("APP_HTTP_ADDR", ":8080")

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	// Imports crawl the source inside the request, so writes get a long leash.
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout

	cfg.DBURL = strings.TrimSpace(getEnv("DATABASE_URL", ""))
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	dbMaxOpenConns, err := getEnvAsInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	cfg.DBMaxOpenConns = dbMaxOpenConns
	dbMaxIdleConns, err := getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_IDLE_CONNS: %w", err)
	}
	cfg.DBMaxIdleConns = dbMaxIdleConns
	dbConnMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_CONN_MAX_LIFETIME: %w", err)
	}
	cfg.DBConnMaxLifetime = dbConnMaxLifetime
	dbDisablePreparedBinaryResult, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}
	cfg.DBDisablePreparedBinaryResult = dbDisablePreparedBinaryResult

	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	cfg.InternalJobToken = strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))
	if appEnv == EnvProd && cfg.InternalJobToken == "" {
		return Config{}, fmt.Errorf("INTERNAL_JOB_TOKEN is required in prod")
	}

	cfg.SporthiveBaseURL = strings.TrimSpace(getEnv("SPORTHIVE_BASE_URL", ""))
	sporthiveTimeout, err := time.ParseDuration(getEnv("SPORTHIVE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTHIVE_TIMEOUT: %w", err)
	}
	cfg.SporthiveTimeout = sporthiveTimeout
	sporthiveMaxRetries, err := getEnvAsInt("SPORTHIVE_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTHIVE_MAX_RETRIES: %w", err)
	}
	if sporthiveMaxRetries < 0 {
		return Config{}, fmt.Errorf("SPORTHIVE_MAX_RETRIES must be >= 0")
	}
	cfg.SporthiveMaxRetries = sporthiveMaxRetries
	sporthivePageDelay, err := time.ParseDuration(getEnv("SPORTHIVE_PAGE_DELAY", "300ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTHIVE_PAGE_DELAY: %w", err)
	}
	if sporthivePageDelay <= 0 {
		return Config{}, fmt.Errorf("SPORTHIVE_PAGE_DELAY must be > 0")
	}
	cfg.SporthivePageDelay = sporthivePageDelay

	cfg.RaceResultBaseURL = strings.TrimSpace(getEnv("RACERESULT_BASE_URL", ""))
	raceResultTimeout, err := time.ParseDuration(getEnv("RACERESULT_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RACERESULT_TIMEOUT: %w", err)
	}
	cfg.RaceResultTimeout = raceResultTimeout
	raceResultMaxRetries, err := getEnvAsInt("RACERESULT_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse RACERESULT_MAX_RETRIES: %w", err)
	}
	if raceResultMaxRetries < 0 {
		return Config{}, fmt.Errorf("RACERESULT_MAX_RETRIES must be >= 0")
	}
	cfg.RaceResultMaxRetries = raceResultMaxRetries
	raceResultPageDelay, err := time.ParseDuration(getEnv("RACERESULT_PAGE_DELAY", "300ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RACERESULT_PAGE_DELAY: %w", err)
	}
	if raceResultPageDelay <= 0 {
		return Config{}, fmt.Errorf("RACERESULT_PAGE_DELAY must be > 0")
	}
	cfg.RaceResultPageDelay = raceResultPageDelay

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	cfg.UptraceEnabled = uptraceEnabled
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && cfg.UptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	cfg.PprofEnabled = pprofEnabled
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && cfg.PprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	cfg.PyroscopeEnabled = pyroscopeEnabled
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName)
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))

	cfg.LogLevel = parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
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
	return strconv.Atoi(value)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
