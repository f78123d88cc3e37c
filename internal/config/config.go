package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"simplesurvey/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Analysis AnalysisConfig
	Workday  WorkdayConfig
	Paths    PathConfig
	LogLevel string `validate:"omitempty,oneof=ERROR WARN INFO DEBUG TRACE"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `validate:"required,numeric"`
}

// DatabaseConfig holds database connection settings. The URL is a Postgres
// URL or sqlite:<path>; an empty URL keeps reports in memory.
type DatabaseConfig struct {
	URL string `validate:"omitempty,url|startswith=sqlite:"`
}

// Enabled reports whether a database is configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// AnalysisConfig holds the engine defaults
type AnalysisConfig struct {
	Alpha       float64       `validate:"gt=0,lte=1"`
	Beta        float64       `validate:"gte=0"`
	Workers     int           `validate:"gte=1"`
	TestTimeout time.Duration `validate:"gt=0"`
}

// WorkdayConfig holds credentials for the Workday report source
type WorkdayConfig struct {
	User     string
	Password string `validate:"required_with=User"`
	MaxBytes int64  `validate:"gte=0"`
}

// PathConfig holds file system paths
type PathConfig struct {
	Definition string
	ReportDir  string `validate:"required"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Analysis: AnalysisConfig{
			Alpha:       getEnvFloatOrDefault("ALPHA", 0.05),
			Beta:        getEnvFloatOrDefault("BETA", 0),
			Workers:     getEnvIntOrDefault("WORKERS", runtime.NumCPU()),
			TestTimeout: getEnvDurationOrDefault("TEST_TIMEOUT", 30*time.Second),
		},
		Workday: WorkdayConfig{
			User:     os.Getenv("WORKDAY_USER"),
			Password: os.Getenv("WORKDAY_PASSWORD"),
			MaxBytes: int64(getEnvIntOrDefault("WORKDAY_MAX_BYTES", 64<<20)),
		},
		Paths: PathConfig{
			Definition: os.Getenv("SURVEY_DEFINITION"),
			ReportDir:  getEnvOrDefault("REPORT_DIR", "./reports"),
		},
		LogLevel: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

var validate = validator.New()

func validateConfig(config *Config) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.ConfigInvalid(fe.Namespace() + " failed " + fe.Tag() + " (got " + strconv.Quote(toString(fe.Value())) + ")")
	}
	return errors.ConfigInvalid(err.Error())
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Duration:
		return t.String()
	default:
		return ""
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
