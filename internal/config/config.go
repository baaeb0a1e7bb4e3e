package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// NotifyConfig controls the SMS notification dispatcher. The whole block is
// optional: when WebhookURL is empty the dispatcher is never started.
type NotifyConfig struct {
	Enabled    bool
	WebhookURL string
	Interval   time.Duration
	BatchSize  int
}

func LoadAll() (*Config, error) {
	postgresURL, err := mustEnv("POSTGRES_URL")
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	redis, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: postgresURL,
		},
		Notify: notify,
		Redis:  redis,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadNotifyConfig() (NotifyConfig, error) {
	url := os.Getenv("NOTIFY_WEBHOOK_URL")
	if url == "" {
		return NotifyConfig{Enabled: false}, nil
	}

	interval, err := getEnvInt("NOTIFY_INTERVAL_SECONDS", 60)
	if err != nil {
		return NotifyConfig{}, err
	}
	batch, err := getEnvInt("NOTIFY_BATCH_SIZE", 10)
	if err != nil {
		return NotifyConfig{}, err
	}

	return NotifyConfig{
		Enabled:    true,
		WebhookURL: url,
		Interval:   time.Duration(interval) * time.Second,
		BatchSize:  batch,
	}, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Notify.Enabled {
		if cfg.Notify.BatchSize <= 0 {
			return fmt.Errorf("NOTIFY_BATCH_SIZE must be > 0")
		}
		if cfg.Notify.Interval <= 0 {
			return fmt.Errorf("NOTIFY_INTERVAL_SECONDS must be > 0")
		}
	}
	return nil
}

func mustEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
