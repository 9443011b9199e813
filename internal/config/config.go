// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	JWTExpiry     time.Duration
	InviteTTL     time.Duration
	IsProduction  bool
	AllowedOrigin string
}

// Load reads configuration from environment variables, falling back to
// a .env file if one is present.
func Load() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_PATH", "./data/setil.db")
	viper.SetDefault("JWT_SECRET", "insecure-dev-secret-change-me")
	viper.SetDefault("JWT_EXPIRY_DURATION", "24h")
	viper.SetDefault("INVITE_TTL", "48h")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ALLOWED_ORIGIN", "*")

	viper.AutomaticEnv()

	cfg := &Config{
		Port:          viper.GetString("PORT"),
		DBPath:        viper.GetString("DB_PATH"),
		JWTSecret:     viper.GetString("JWT_SECRET"),
		IsProduction:  viper.GetBool("IS_PRODUCTION"),
		AllowedOrigin: viper.GetString("ALLOWED_ORIGIN"),
	}

	var err error
	cfg.JWTExpiry, err = time.ParseDuration(viper.GetString("JWT_EXPIRY_DURATION"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_DURATION: %w", err)
	}
	cfg.InviteTTL, err = time.ParseDuration(viper.GetString("INVITE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVITE_TTL: %w", err)
	}

	if cfg.IsProduction && cfg.JWTSecret == "insecure-dev-secret-change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}
