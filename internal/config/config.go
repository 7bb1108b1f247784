// Package config содержит логику чтения конфигурации сервиса заказов кофейни.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса заказов кофейни.
// RedisAddress и TelegramToken необязательны: без Redis корзины живут
// в памяти процесса, без токена уведомления персоналу не отправляются.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	RedisAddress   string `env:"REDIS_ADDRESS"`
	AuthSecret     string `env:"AUTH_SECRET"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envRedisAddress := cfg.RedisAddress
	envAuthSecret := cfg.AuthSecret
	envTelegramToken := cfg.TelegramToken
	envTelegramChatID := cfg.TelegramChatID

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "c", "", "redis address for cart storage")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.TelegramToken, "t", "", "telegram bot token for staff notifications")
	flag.Int64Var(&cfg.TelegramChatID, "chat", 0, "telegram chat id for staff notifications")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envTelegramToken != "" {
		cfg.TelegramToken = envTelegramToken
	}
	if envTelegramChatID != 0 {
		cfg.TelegramChatID = envTelegramChatID
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
