package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Backend   BackendConfig
	Gotenberg GotenbergConfig
	Gemini    GeminiConfig
	Templates TemplateConfig
	Timeouts  TimeoutConfig
	Worker    WorkerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port              string
	Env               string
	InternalAPISecret string
	BodyLimit         int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// BackendConfig points at the referral backend, which owns storage and
// receives completion webhooks.
type BackendConfig struct {
	URL          string
	AccessURLTTL time.Duration
}

type GotenbergConfig struct {
	URL string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	MaxRetries int
}

type TemplateConfig struct {
	ReferralPath       string
	RecommendationPath string
}

type TimeoutConfig struct {
	Resolve  time.Duration
	Download time.Duration
	Upload   time.Duration
	Convert  time.Duration
	Notify   time.Duration
}

type WorkerConfig struct {
	Concurrency int
	QueueSize   int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("invalid configuration %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Load reads .env (when present) and the process environment. The returned
// bool reports whether a .env file was found.
func Load() (*Config, bool) {
	dotenv := godotenv.Load() == nil
	env := getEnv("ENV", "development")

	return &Config{
		Server: ServerConfig{
			Port:              getEnv("PORT", "8001"),
			Env:               env,
			InternalAPISecret: getEnv("INTERNAL_API_SECRET", ""),
			BodyLimit:         getEnvAsInt("BODY_LIMIT", 4*1024*1024),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "counsel_report"),
		},
		Backend: BackendConfig{
			URL:          getEnv("YEIRIN_BACKEND_URL", "http://localhost:3000"),
			AccessURLTTL: getEnvAsDuration("ACCESS_URL_TTL", "1h"),
		},
		Gotenberg: GotenbergConfig{
			URL: getEnv("GOTENBERG_URL", "http://localhost:3001"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			MaxRetries: getEnvAsInt("GEMINI_MAX_RETRIES", 3),
		},
		Templates: TemplateConfig{
			ReferralPath:       getEnv("TEMPLATE_REFERRAL_PATH", "./templates/counsel_request.docx"),
			RecommendationPath: getEnv("TEMPLATE_RECOMMENDATION_PATH", "./templates/service_recommendation.docx"),
		},
		Timeouts: TimeoutConfig{
			Resolve:  getEnvAsDuration("TIMEOUT_RESOLVE", "10s"),
			Download: getEnvAsDuration("TIMEOUT_DOWNLOAD", "60s"),
			Upload:   getEnvAsDuration("TIMEOUT_UPLOAD", "30s"),
			Convert:  getEnvAsDuration("TIMEOUT_CONVERT", "60s"),
			Notify:   getEnvAsDuration("TIMEOUT_NOTIFY", "10s"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", env == "development"),
		},
	}, dotenv
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.InternalAPISecret == "" {
		return &ConfigurationError{Key: "INTERNAL_API_SECRET", Err: fmt.Errorf("must be set")}
	}
	if c.Worker.Concurrency < 1 {
		return &ConfigurationError{
			Key:   "WORKER_CONCURRENCY",
			Value: strconv.Itoa(c.Worker.Concurrency),
			Err:   fmt.Errorf("must be at least 1"),
		}
	}
	if c.Worker.QueueSize < 1 {
		return &ConfigurationError{
			Key:   "WORKER_QUEUE_SIZE",
			Value: strconv.Itoa(c.Worker.QueueSize),
			Err:   fmt.Errorf("must be at least 1"),
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
