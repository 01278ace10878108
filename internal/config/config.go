// Package config loads process settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultGRPCPort             = ":8080"
	defaultHTTPPort             = ":9090"
	defaultAPIToken             = "dev-token"
	defaultLogLevel             = "info"
	defaultContractName         = "Disburse"
	defaultMaturityScanSchedule = "@every 30s"
	defaultRateLimitPerSecond   = 20.0
	defaultRateLimitBurst       = 40
)

// Config holds all configuration for the disburse server.
type Config struct {
	GRPCPort             string
	HTTPPort             string
	APIToken             string
	LogLevel             string
	DatabaseURL          string // Empty keeps the journal in memory
	ContractName         string
	AdminAddress         string
	MaturityScanSchedule string
	RateLimitPerSecond   float64
	RateLimitBurst       int
	DevAccounts          string // address=amount,address=amount

	// Warnings lists values that were replaced by defaults
	Warnings []string
}

// LoadConfig reads configuration from environment variables, layered over the
// optional file at path. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	viper.SetDefault("GRPC_PORT", defaultGRPCPort)
	viper.SetDefault("HTTP_PORT", defaultHTTPPort)
	viper.SetDefault("API_TOKEN", defaultAPIToken)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONTRACT_NAME", defaultContractName)
	viper.SetDefault("MATURITY_SCAN_SCHEDULE", defaultMaturityScanSchedule)
	viper.SetDefault("RATE_LIMIT_PER_SECOND", defaultRateLimitPerSecond)
	viper.SetDefault("RATE_LIMIT_BURST", defaultRateLimitBurst)

	if path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("env")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	viper.AutomaticEnv()

	_ = viper.BindEnv("GRPC_PORT")
	_ = viper.BindEnv("HTTP_PORT")
	_ = viper.BindEnv("API_TOKEN")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("CONTRACT_NAME")
	_ = viper.BindEnv("ADMIN_ADDRESS")
	_ = viper.BindEnv("MATURITY_SCAN_SCHEDULE")
	_ = viper.BindEnv("RATE_LIMIT_PER_SECOND")
	_ = viper.BindEnv("RATE_LIMIT_BURST")
	_ = viper.BindEnv("DEV_ACCOUNTS")

	cfg := &Config{
		GRPCPort:             stringOr("GRPC_PORT", defaultGRPCPort),
		HTTPPort:             stringOr("HTTP_PORT", defaultHTTPPort),
		APIToken:             strings.TrimSpace(viper.GetString("API_TOKEN")),
		LogLevel:             stringOr("LOG_LEVEL", defaultLogLevel),
		DatabaseURL:          strings.TrimSpace(viper.GetString("DATABASE_URL")),
		ContractName:         stringOr("CONTRACT_NAME", defaultContractName),
		AdminAddress:         strings.TrimSpace(viper.GetString("ADMIN_ADDRESS")),
		MaturityScanSchedule: stringOr("MATURITY_SCAN_SCHEDULE", defaultMaturityScanSchedule),
		DevAccounts:          strings.TrimSpace(viper.GetString("DEV_ACCOUNTS")),
	}

	cfg.RateLimitPerSecond = viper.GetFloat64("RATE_LIMIT_PER_SECOND")
	if cfg.RateLimitPerSecond <= 0 {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid RATE_LIMIT_PER_SECOND %q, using %v",
			viper.GetString("RATE_LIMIT_PER_SECOND"), defaultRateLimitPerSecond))
		cfg.RateLimitPerSecond = defaultRateLimitPerSecond
	}

	cfg.RateLimitBurst = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimitBurst <= 0 {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid RATE_LIMIT_BURST %q, using %d",
			viper.GetString("RATE_LIMIT_BURST"), defaultRateLimitBurst))
		cfg.RateLimitBurst = defaultRateLimitBurst
	}

	if cfg.APIToken == "" {
		return nil, errors.New("API_TOKEN cannot be blank")
	}

	return cfg, nil
}

func stringOr(key, fallback string) string {
	value := strings.TrimSpace(viper.GetString(key))
	if value == "" {
		return fallback
	}
	return value
}
