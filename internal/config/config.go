package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	JWTSecret            string
	DefaultMaxDiff       float64
	ConflictRetries      int
	GradingEventChannel  string
	ReportCacheTTL       time.Duration
	SuggestionRateLimit  int
	SuggestionRateWindow time.Duration
	AIProvider           string
	OpenAIAPIKey         string
	OpenAIModel          string
	OpenAIBaseURL        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AIEnabled reports whether essay suggestions can be served.
func (c Config) AIEnabled() bool {
	return c.AIProvider == "openai" && c.OpenAIAPIKey != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "GEMA Grading API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("grading.max_diff", 3)
	v.SetDefault("grading.conflict_retries", 3)
	v.SetDefault("grading.event_channel", "gema:grading")
	v.SetDefault("report.cache_ttl", "2m")
	v.SetDefault("suggestion.rate_limit", 10)
	v.SetDefault("suggestion.rate_window", "1m")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("openai_model", "gpt-4o-mini")

	ttl, err := parseDuration(v.GetString("report.cache_ttl"), 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid report cache ttl: %w", err)
	}

	window, err := parseDuration(v.GetString("suggestion.rate_window"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid suggestion rate window: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		DefaultMaxDiff:       v.GetFloat64("grading.max_diff"),
		ConflictRetries:      v.GetInt("grading.conflict_retries"),
		GradingEventChannel:  strings.TrimSpace(v.GetString("grading.event_channel")),
		ReportCacheTTL:       ttl,
		SuggestionRateLimit:  v.GetInt("suggestion.rate_limit"),
		SuggestionRateWindow: window,
		AIProvider:           strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIModel:          v.GetString("openai_model"),
		OpenAIBaseURL:        v.GetString("openai_base_url"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DefaultMaxDiff < 0 {
		return Config{}, fmt.Errorf("grading max diff must not be negative")
	}

	if cfg.ConflictRetries <= 0 {
		cfg.ConflictRetries = 1
	}

	return cfg, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
