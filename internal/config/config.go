package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPPort      string
	StorageDriver string
	DBConfig      DBConfig
	// TokenCacheTTL bounds how long a resolved token is trusted without a
	// database lookup. Zero disables the cache.
	TokenCacheTTL      time.Duration
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DBConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// String keeps the password out of logs.
func (d DBConfig) String() string {
	return fmt.Sprintf("%s@%s:%s/%s", d.User, d.Host, d.Port, d.DBName)
}

func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		logrus.WithError(err).Warn("failed to load config file, using env vars")
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_CACHE_TTL: %w", err)
	}

	driver := getEnv("STORAGE_DRIVER", DriverPostgres)
	if driver != DriverPostgres && driver != DriverMemory {
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}

	origins := splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"))
	if len(origins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS must name at least one origin")
	}

	cfg := Config{
		HTTPPort:           getEnv("HTTP_PORT", ":8080"),
		StorageDriver:      driver,
		TokenCacheTTL:      ttl,
		CORSAllowedOrigins: origins,
		DBConfig: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "exchange"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
	if !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
