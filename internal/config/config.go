// Package config provides configuration for the chat relay and its clients.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Credentials are the bearer keys sent to the upstream provider.
type Credentials struct {
	// GatewayKey authenticates against the observability gateway in front of the provider.
	GatewayKey string
	// ProviderKey authenticates against the completion provider itself.
	ProviderKey string
}

// Config holds the relay configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Upstream provider
	ProviderURL string
	Credentials Credentials
	Model       string
	MaxTokens   int
	Temperature float64
	Mode        string

	// Timeouts
	RelayTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Admission policy
	PolicyMaxMessages     int
	PolicyMaxContentBytes int

	// Client settings
	ServerURL string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() *Config {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	return &Config{
		HTTPPort:    getEnvInt("HTTP_PORT", 8080),
		DatabaseURL: getEnv("DATABASE_URL", "file:planoeducation.db?cache=shared&mode=rwc"),
		ProviderURL: getEnv("PROVIDER_URL", "https://together.helicone.ai"),
		Credentials: Credentials{
			GatewayKey:  os.Getenv("HELICONE_API_KEY"),
			ProviderKey: os.Getenv("TOGETHER_API_KEY"),
		},
		Model:                 getEnv("CHAT_MODEL", "meta-llama/Llama-Vision-Free"),
		MaxTokens:             getEnvInt("CHAT_MAX_TOKENS", 2000),
		Temperature:           getEnvFloat("CHAT_TEMPERATURE", 0.7),
		Mode:                  getEnv("PLANO_MODE", ""),
		RelayTimeout:          getEnvDuration("RELAY_TIMEOUT_MS", 60*time.Second),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT_MS", 10*time.Second),
		RateLimitRPS:          getEnvFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:        getEnvInt("RATE_LIMIT_BURST", 5),
		PolicyMaxMessages:     getEnvInt("POLICY_MAX_MESSAGES", 100),
		PolicyMaxContentBytes: getEnvInt("POLICY_MAX_CONTENT_BYTES", 200000),
		ServerURL:             getEnv("PLANO_SERVER_URL", "http://localhost:8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
}

// ConfigureLogging applies LogLevel to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// MaxTokensParam returns the max_tokens request parameter, nil when disabled.
func (c *Config) MaxTokensParam() *int {
	if c.MaxTokens <= 0 {
		return nil
	}
	v := c.MaxTokens
	return &v
}

// TemperatureParam returns the temperature request parameter, nil when disabled.
func (c *Config) TemperatureParam() *float64 {
	if c.Temperature < 0 {
		return nil
	}
	v := c.Temperature
	return &v
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
