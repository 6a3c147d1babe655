package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the insights service.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	OpenAIAPIKey        string
	OpenAIBaseURL       string
	AssistantID         string
	VectorStoreIDs      []string
	InstructionTemplate string
	PollMaxRetries      int
	PollInterval        time.Duration

	RecencyWindow  time.Duration
	ExtractionMode string
	BatchSeparator string
	RecordsBaseURL string
	RecordsTimeout time.Duration

	AuthEnabled        bool
	Username           string
	Password           string
	SecretKey          string
	Algorithm          string
	AccessTokenExpires time.Duration

	DatabaseURL   string
	NotifyChannel string

	MetricsNamespace string
	LogLevel         string
	LogFormat        string
}

// Load reads a .env file when present, then the environment, and applies
// defaults.  Validation failures are returned rather than fatal.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:                addrFromPort(envOrDefault("PORT", "8000")),
		OpenAIAPIKey:        stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:       stringsTrimSpace("OPENAI_BASE_URL"),
		AssistantID:         stringsTrimSpace("ASSISTANT_ID"),
		VectorStoreIDs:      splitList(os.Getenv("VECTOR_STORE_IDS")),
		InstructionTemplate: envOrDefault("INSTRUCTION_TEMPLATE", "json-insights"),
		ExtractionMode:      strings.ToLower(envOrDefault("EXTRACTION_MODE", "regex")),
		BatchSeparator:      envOrDefault("BATCH_SEPARATOR", "---"),
		RecordsBaseURL:      stringsTrimSpace("RECORDS_BASE_URL"),
		Username:            stringsTrimSpace("USERNAME"),
		Password:            os.Getenv("PASSWORD"),
		SecretKey:           os.Getenv("SECRET_KEY"),
		Algorithm:           strings.ToUpper(envOrDefault("ALGORITHM", "HS256")),
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		NotifyChannel:       envOrDefault("POSTGRES_NOTIFY_CHANNEL", "insights"),
		MetricsNamespace:    envOrDefault("METRICS_NAMESPACE", "symptom_insights"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
		LogFormat:           envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:     15 * time.Second,
		PollInterval:        2 * time.Second,
		RecordsTimeout:      30 * time.Second,
	}

	var err error
	if cfg.PollMaxRetries, err = intFromEnv("POLL_MAX_RETRIES", 10); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = durationFromEnv("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	days, err := intFromEnv("RECENCY_WINDOW_DAYS", 15)
	if err != nil {
		return Config{}, err
	}
	cfg.RecencyWindow = time.Duration(days) * 24 * time.Hour
	if cfg.RecordsTimeout, err = durationFromEnv("RECORDS_TIMEOUT", cfg.RecordsTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AuthEnabled, err = boolFromEnv("AUTH_ENABLED", true); err != nil {
		return Config{}, err
	}
	minutes, err := intFromEnv("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessTokenExpires = time.Duration(minutes) * time.Minute

	if err := cfg.validate(days, minutes); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate(days, minutes int) error {
	if strings.Contains(c.Addr, " ") {
		return fmt.Errorf("invalid PORT value: %q", c.Addr)
	}
	if c.PollMaxRetries <= 0 {
		return fmt.Errorf("POLL_MAX_RETRIES must be positive")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must be >= 0")
	}
	if days <= 0 {
		return fmt.Errorf("RECENCY_WINDOW_DAYS must be positive")
	}
	if minutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	switch c.ExtractionMode {
	case "regex", "json":
	default:
		return fmt.Errorf("EXTRACTION_MODE must be regex or json, got %q", c.ExtractionMode)
	}
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("ALGORITHM must be one of HS256, HS384, HS512, got %q", c.Algorithm)
	}
	if c.RecordsBaseURL != "" {
		u, err := url.Parse(c.RecordsBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("RECORDS_BASE_URL must be an absolute http(s) url, got %q", c.RecordsBaseURL)
		}
	}
	if c.AuthEnabled && (c.Username == "" || c.Password == "") {
		return fmt.Errorf("USERNAME and PASSWORD are required when AUTH_ENABLED is true")
	}
	return nil
}

// addrFromPort accepts "8000", ":8000" or "127.0.0.1:8000".
func addrFromPort(port string) string {
	port = strings.TrimSpace(port)
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
