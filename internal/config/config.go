// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса магазина.
type Config struct {
	RunAddress           string        `env:"RUN_ADDRESS"`
	DatabaseURI          string        `env:"DATABASE_URI"`
	RatesAPIAddress      string        `env:"RATES_API_ADDRESS"`
	RatesAPIKey          string        `env:"RATES_API_KEY"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL"`
	JWTSecret            string        `env:"JWT_SECRET"`
	AMQPURL              string        `env:"AMQP_URL"`
	LogLevel             string        `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения из окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RatesAPIAddress, "r", "", "exchange rates API endpoint")
	flag.StringVar(&cfg.RatesAPIKey, "k", "", "exchange rates API key")
	flag.DurationVar(&cfg.RatesRefreshInterval, "i", 0, "exchange rates refresh interval, 0 disables")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for signing access tokens")
	flag.StringVar(&cfg.AMQPURL, "q", "", "RabbitMQ URL for domain events")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.RatesAPIAddress != "" {
		cfg.RatesAPIAddress = envCfg.RatesAPIAddress
	}
	if envCfg.RatesAPIKey != "" {
		cfg.RatesAPIKey = envCfg.RatesAPIKey
	}
	if envCfg.RatesRefreshInterval != 0 {
		cfg.RatesRefreshInterval = envCfg.RatesRefreshInterval
	}
	if envCfg.JWTSecret != "" {
		cfg.JWTSecret = envCfg.JWTSecret
	}
	if envCfg.AMQPURL != "" {
		cfg.AMQPURL = envCfg.AMQPURL
	}
	if envCfg.LogLevel != "" {
		cfg.LogLevel = envCfg.LogLevel
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
