package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Webhook struct {
		Port  int    `yaml:"port"`
		Token string `yaml:"token"`
		// DedupeTTLSeconds is how long a repeated CRM push is swallowed.
		DedupeTTLSeconds int `yaml:"dedupe_ttl_seconds"`
	} `yaml:"webhook"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Limits struct {
		MessagesPerSecond float64 `yaml:"messages_per_second"`
		Burst             int     `yaml:"burst"`
		ListPageSize      int     `yaml:"list_page_size"`
	} `yaml:"limits"`
}

// Load reads the YAML config, falling back to environment variables when the
// file is absent so the bot can run from a bare .env.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Support ${ENV_VAR} placeholders in YAML config.
		data = []byte(os.ExpandEnv(string(data)))
		if err = yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	if cfg.Telegram.BotToken == "" {
		cfg.Telegram.BotToken = os.Getenv("BOT_TOKEN")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Webhook.Token == "" {
		cfg.Webhook.Token = os.Getenv("WEBHOOK_TOKEN")
	}

	if cfg.Telegram.BotToken == "" {
		return nil, errors.New("telegram bot token is not configured")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database url is not configured")
	}

	if cfg.Webhook.Port == 0 {
		cfg.Webhook.Port = 3001
	}
	if cfg.Webhook.DedupeTTLSeconds <= 0 {
		cfg.Webhook.DedupeTTLSeconds = 300
	}
	if cfg.Limits.MessagesPerSecond <= 0 {
		cfg.Limits.MessagesPerSecond = 20
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 30
	}
	if cfg.Limits.ListPageSize <= 0 {
		cfg.Limits.ListPageSize = 10
	}

	return &cfg, nil
}
