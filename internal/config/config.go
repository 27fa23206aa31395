package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultLocalAPIURL    = "http://localhost:5000/api"
	defaultDeployedAPIURL = "https://disease-prediction-3z87.onrender.com/api"
)

// Config holds portal configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Remote clinic API
	APIBaseURLOverride string
	APILocalURL        string
	APIDeployedURL     string
	APITimeout         time.Duration

	// Local persistence (token, user, notifications)
	StorageBackend string
	StoragePath    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	DatabaseURL    string

	NotificationCapacity int

	// Console server
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Prediction PDF exports
	ExportDir           string
	ExportS3Bucket      string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8090"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		APIBaseURLOverride: getEnv("API_BASE_URL", ""),
		APILocalURL:        getEnv("API_LOCAL_URL", defaultLocalAPIURL),
		APIDeployedURL:     getEnv("API_DEPLOYED_URL", defaultDeployedAPIURL),
		APITimeout:         getEnvAsDuration("API_TIMEOUT", 10*time.Second),

		StorageBackend: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", "file"))),
		StoragePath:    getEnv("STORAGE_PATH", ".portal-state.json"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		NotificationCapacity: getEnvAsInt("NOTIFICATION_CAPACITY", 500),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		ExportDir:           getEnv("EXPORT_DIR", "exports"),
		ExportS3Bucket:      getEnv("EXPORT_S3_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// APIBaseURL returns the remote API endpoint for the current environment.
// An explicit API_BASE_URL always wins.
func (c *Config) APIBaseURL() string {
	if c.APIBaseURLOverride != "" {
		return c.APIBaseURLOverride
	}
	if c.IsProduction() {
		return c.APIDeployedURL
	}
	return c.APILocalURL
}

// IsProduction reports whether ENV selects the deployed environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
