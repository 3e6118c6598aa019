package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultAppName         = "CustodyVault"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultLoginLimit      = 5
	defaultLoginWindow     = time.Minute
	defaultEventStream     = "vault:events"
	defaultStreamMaxLen    = 100000
	defaultOperator        = "0x000000000000000000000000000000000000c0de"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	accessTTLSecondsEnvVar = "ACCESS_TOKEN_TTL_SECONDS"
	accessTTLDurEnvVar     = "ACCESS_TOKEN_TTL"
	refreshTTLSecondsVar   = "REFRESH_TOKEN_TTL_SECONDS"
	refreshTTLDurEnvVar    = "REFRESH_TOKEN_TTL"
)

// TokenSpec describes a token deployed by the operator at boot, as
// SYMBOL:decimals:Name in the TOKENS variable.
type TokenSpec struct {
	Symbol   string
	Decimals uint8
	Name     string
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	LoginRateLimit  int
	LoginWindow     time.Duration

	Operator        common.Address
	ReentrancyGuard bool
	Tokens          []TokenSpec
	NativeDecimals  uint8
	EventStream     string
	StreamMaxLen    int64
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,
		LoginRateLimit:  defaultLoginLimit,
		LoginWindow:     defaultLoginWindow,
		ReentrancyGuard: true,
		NativeDecimals:  18,
		EventStream:     getEnv("EVENT_STREAM", defaultEventStream),
		StreamMaxLen:    defaultStreamMaxLen,
	}

	var err error
	if cfg.ShutdownPeriod, err = duration(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = duration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = duration(accessTTLSecondsEnvVar, accessTTLDurEnvVar, cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = duration(refreshTTLSecondsVar, refreshTTLDurEnvVar, cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginWindow, err = duration("LOGIN_WINDOW_SECONDS", "LOGIN_WINDOW", cfg.LoginWindow); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("LOGIN_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
		}
		cfg.LoginRateLimit = n
	}
	if v := os.Getenv("STREAM_MAXLEN"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STREAM_MAXLEN: %w", err)
		}
		cfg.StreamMaxLen = n
	}
	if v := os.Getenv("REENTRANCY_GUARD"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REENTRANCY_GUARD: %w", err)
		}
		cfg.ReentrancyGuard = on
	}
	if v := os.Getenv("NATIVE_DECIMALS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NATIVE_DECIMALS: %w", err)
		}
		cfg.NativeDecimals = uint8(n)
	}

	operator := getEnv("OPERATOR_ADDRESS", defaultOperator)
	if !common.IsHexAddress(operator) {
		return Config{}, fmt.Errorf("invalid OPERATOR_ADDRESS %q", operator)
	}
	cfg.Operator = common.HexToAddress(operator)

	if cfg.Tokens, err = parseTokens(os.Getenv("TOKENS")); err != nil {
		return Config{}, err
	}

	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "dev-refresh-secret"
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production requirements.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func parseTokens(raw string) ([]TokenSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []TokenSpec
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), ":", 3)
		if len(parts) < 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid TOKENS entry %q", item)
		}
		dec, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKENS decimals in %q: %w", item, err)
		}
		spec := TokenSpec{Symbol: parts[0], Decimals: uint8(dec), Name: parts[0]}
		if len(parts) == 3 && parts[2] != "" {
			spec.Name = parts[2]
		}
		out = append(out, spec)
	}
	return out, nil
}

func duration(secondsVar, durationVar string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationVar, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
