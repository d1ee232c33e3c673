// config — источник загрузки конфигурации клиента expense-tracker.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
//
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Breaker BreakerConfig `yaml:"breaker"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig — параметры REST API и исходящих запросов.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"API_URL"        env-default:"http://localhost:8000/api/v1"`
	Timeout   time.Duration `yaml:"timeout"    env:"API_TIMEOUT"    env-default:"15s"`
	UserAgent string        `yaml:"user_agent" env:"API_USER_AGENT" env-default:"expensectl"`
}

// TokensConfig — где хранится пара токенов.
// Backend: memory | file | redis | none.
type TokensConfig struct {
	Backend     string        `yaml:"backend"      env:"TOKENS_BACKEND"      env-default:"file"`
	FilePath    string        `yaml:"file_path"    env:"TOKENS_FILE"`
	RedisURL    string        `yaml:"redis_url"    env:"TOKENS_REDIS_URL"    env-default:"redis://localhost:6379/0"`
	RedisPrefix string        `yaml:"redis_prefix" env:"TOKENS_REDIS_PREFIX" env-default:"expense:tokens:"`
	TTL         time.Duration `yaml:"ttl"          env:"TOKENS_TTL"          env-default:"0s"`
}

// BreakerConfig — circuit breaker на транспорте (выключен по умолчанию).
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled"      env:"BREAKER_ENABLED"      env-default:"false"`
	MaxFailures uint32        `yaml:"max_failures" env:"BREAKER_MAX_FAILURES" env-default:"5"`
	OpenTimeout time.Duration `yaml:"open_timeout" env:"BREAKER_OPEN_TIMEOUT" env-default:"30s"`
}

// MetricsConfig — метрики исходящих запросов. Textfile пустой — метрики выключены,
// иначе при завершении команды они пишутся в файл (формат textfile-коллектора node_exporter).
type MetricsConfig struct {
	Textfile string `yaml:"textfile" env:"METRICS_TEXTFILE"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, nil
}
