package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default allowed origins for development
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

func (c TwilioConfig) Enabled() bool { return c.AccountSID != "" && c.AuthToken != "" }

// AgencyConfig points at a government permit API for one permit type.
type AgencyConfig struct {
	BaseURL string
	APIKey  string
}

type SchedulerConfig struct {
	PermitSyncInterval      time.Duration
	InspectionCheckInterval time.Duration
	ExpiryCheckInterval     time.Duration
	SyncConcurrency         int
	RunInitialChecks        bool
}

type Config struct {
	Port           string
	DatabaseURL    string
	JWTSecret      string
	JWTTTL         time.Duration
	ClientURL      string
	AllowedOrigins []string
	LogLevel       string

	SMTP   SMTPConfig
	Twilio TwilioConfig

	// Agencies is keyed by permit type (health, fire, building, zoning).
	Agencies map[string]AgencyConfig
	// CityTokens is keyed by the token_env names referenced in the jurisdiction table.
	CityTokens            map[string]string
	ExternalRatePerSecond float64

	Scheduler SchedulerConfig
}

var agencyEnvPrefixes = map[string]string{
	"health":   "HEALTH_DEPT",
	"fire":     "FIRE_DEPT",
	"building": "BUILDING_DEPT",
	"zoning":   "ZONING_DEPT",
}

var cityTokenKeys = []string{
	"SF_GOV_API_KEY",
	"CHICAGO_API_KEY",
	"LA_HEALTH_API_URL",
	"LA_HEALTH_API_KEY",
	"HOUSTON_API_KEY",
	"NYC_API_KEY",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		ClientURL:   getEnv("CLIENT_URL", "http://localhost:3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Agencies:    make(map[string]AgencyConfig),
		CityTokens:  make(map[string]string),
	}

	cfg.JWTTTL = getDuration("JWT_TTL", 168*time.Hour, &errs)
	cfg.AllowedOrigins = allowedOrigins(cfg.ClientURL)

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     getInt("SMTP_PORT", 587, &errs),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("SMTP_FROM", "noreply@offolaunch.com"),
		TLS:      getBool("SMTP_SECURE", false, &errs),
	}

	cfg.Twilio = TwilioConfig{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		From:       os.Getenv("TWILIO_PHONE_NUMBER"),
	}

	for permitType, prefix := range agencyEnvPrefixes {
		cfg.Agencies[permitType] = AgencyConfig{
			BaseURL: os.Getenv(prefix + "_API_URL"),
			APIKey:  os.Getenv(prefix + "_API_KEY"),
		}
	}

	for _, key := range cityTokenKeys {
		if v := os.Getenv(key); v != "" {
			cfg.CityTokens[key] = v
		}
	}

	cfg.ExternalRatePerSecond = getFloat("EXTERNAL_RATE_PER_SECOND", 5, &errs)

	cfg.Scheduler = SchedulerConfig{
		PermitSyncInterval:      getDuration("PERMIT_SYNC_INTERVAL", 6*time.Hour, &errs),
		InspectionCheckInterval: getDuration("INSPECTION_CHECK_INTERVAL", time.Hour, &errs),
		ExpiryCheckInterval:     getDuration("EXPIRY_CHECK_INTERVAL", 24*time.Hour, &errs),
		SyncConcurrency:         getInt("SYNC_CONCURRENCY", 0, &errs),
		RunInitialChecks:        getBool("RUN_INITIAL_CHECKS", true, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return cfg, nil
}

// RequireServer checks the settings every long-running command needs.
func (c *Config) RequireServer() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable is not set"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}
	return errors.Join(errs...)
}

func allowedOrigins(clientURL string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL != "" && !contains(origins, clientURL) {
		origins = append(origins, clientURL)
	}

	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" && !contains(origins, trimmed) {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}
