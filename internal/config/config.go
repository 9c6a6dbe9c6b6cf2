package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	DatabasePath    string
	RedisURL        string
	CORSOrigins     string
	DuplicateWindow time.Duration
	ListCacheTTL    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODESHARE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeShare API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.path", "data/codeshare.db")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("duplicate.window", "30s")
	v.SetDefault("list.cache_ttl", "30s")

	window, err := time.ParseDuration(v.GetString("duplicate.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid duplicate window: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("list.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid list cache ttl: %w", err)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		DatabasePath:    v.GetString("database.path"),
		RedisURL:        v.GetString("redis.url"),
		CORSOrigins:     v.GetString("cors.origins"),
		DuplicateWindow: window,
		ListCacheTTL:    cacheTTL,
	}

	if cfg.DuplicateWindow <= 0 {
		return Config{}, fmt.Errorf("duplicate window must be positive")
	}

	return cfg, nil
}
