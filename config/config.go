package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/joy095/academy/logger"
)

var loadOnce sync.Once

// LoadEnv reads .env into the process environment once. A missing file is not an error.
func LoadEnv() {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			logger.InfoLogger.Info("No .env file found, using process environment")
		}
	})
}

type Config struct {
	Port    string
	GinMode string

	BackendBaseURL   string
	APIPath          string
	PublicAPIPath    string
	PublicAPITimeout time.Duration
	APITimeout       time.Duration

	RedisURL          string
	SessionTTL        time.Duration
	SessionCookieName string
	CookieSecure      bool

	RazorpayKeyID     string
	RazorpayKeySecret string
	AcademyName       string
	Currency          string

	PollInterval    time.Duration
	PollMaxAttempts int

	CorsAllowedOrigins []string
	BadWordsFile       string
}

// Load builds the runtime configuration from the environment, applying defaults.
func Load() (*Config, error) {
	LoadEnv()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		BackendBaseURL:    strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://localhost:5000"), "/"),
		APIPath:           "/" + strings.Trim(getEnv("API_PATH", "/api"), "/"),
		PublicAPIPath:     "/" + strings.Trim(getEnv("PUBLIC_API_PATH", "/api/public"), "/"),
		RedisURL:          os.Getenv("REDIS_URL"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "academy_sid"),
		CookieSecure:      parseBool(getEnv("COOKIE_SECURE", "false")),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		AcademyName:       getEnv("ACADEMY_NAME", "Cricket Academy"),
		Currency:          getEnv("PAYMENT_CURRENCY", "INR"),
		BadWordsFile:      getEnv("BAD_WORDS_FILE", "badwords/en.txt"),
	}

	var err error
	if cfg.PublicAPITimeout, err = parseDuration("PUBLIC_API_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.APITimeout, err = parseDuration("API_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDuration("SESSION_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = parseDuration("BOOKING_POLL_INTERVAL", "3s"); err != nil {
		return nil, err
	}

	attempts := getEnv("BOOKING_POLL_MAX_ATTEMPTS", "10")
	cfg.PollMaxAttempts, err = strconv.Atoi(attempts)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_POLL_MAX_ATTEMPTS value %q: %w", attempts, err)
	}

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CorsAllowedOrigins = append(cfg.CorsAllowedOrigins, o)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must be an http(s) URL, got %q", c.BackendBaseURL)
	}
	if c.PublicAPITimeout <= 0 || c.APITimeout <= 0 {
		return fmt.Errorf("API timeouts must be > 0")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("BOOKING_POLL_INTERVAL must be > 0")
	}
	if c.PollMaxAttempts <= 0 {
		return fmt.Errorf("BOOKING_POLL_MAX_ATTEMPTS must be > 0")
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.GinMode == "release" && !c.CookieSecure {
		logger.WarnLogger.Warn("COOKIE_SECURE is false in release mode")
	}
	return nil
}

func getEnv(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func parseDuration(name, fallback string) (time.Duration, error) {
	value := getEnv(name, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
