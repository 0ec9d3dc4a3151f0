// Package config содержит логику чтения конфигурации пунья-сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации пунья-сервиса.
type Config struct {
	RunAddress           string `env:"RUN_ADDRESS"`
	DatabaseURI          string `env:"DATABASE_URI"`
	GatewayAddress       string `env:"GATEWAY_ADDRESS"`
	GatewayClientID      string `env:"GATEWAY_CLIENT_ID"`
	GatewayClientSecret  string `env:"GATEWAY_CLIENT_SECRET"`
	GatewayWebhookSecret string `env:"GATEWAY_WEBHOOK_SECRET"`
	MailerAddress        string `env:"MAILER_ADDRESS"`
	MailerAPIKey         string `env:"MAILER_API_KEY"`
	AuthSecret           string `env:"AUTH_SECRET"`
	CompletionThreshold  int    `env:"COMPLETION_THRESHOLD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envGatewayAddress := cfg.GatewayAddress
	envMailerAddress := cfg.MailerAddress
	envAuthSecret := cfg.AuthSecret
	envThreshold := cfg.CompletionThreshold

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.GatewayAddress, "g", "", "payment gateway address")
	flag.StringVar(&cfg.MailerAddress, "m", "", "transactional mailer address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "session signing secret")
	flag.IntVar(&cfg.CompletionThreshold, "t", 5, "ritual completion step threshold")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envGatewayAddress != "" {
		cfg.GatewayAddress = envGatewayAddress
	}
	if envMailerAddress != "" {
		cfg.MailerAddress = envMailerAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envThreshold != 0 {
		cfg.CompletionThreshold = envThreshold
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = 5
	}

	return cfg, nil
}
