// Package config загружает конфигурацию сервисов Formflow.
//
// Порядок слоёв: значения по умолчанию, затем YAML файл (если задан),
// затем переменные окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath — переменная с путём к YAML файлу конфигурации.
const EnvConfigPath = "FORMFLOW_CONFIG"

// Storage — бэкенд хранения.
type Storage string

const (
	StoragePostgres Storage = "postgres"
	StorageFile     Storage = "file"
)

// Config — конфигурация API и worker.
type Config struct {
	APIPort    int     `yaml:"api_port"`
	WorkerPort int     `yaml:"worker_port"`
	Storage    Storage `yaml:"storage"`

	// DataDir — каталог JSON хранилища (storage: file).
	DataDir string `yaml:"data_dir"`

	// Watch — перечитывать каталог при ручном изменении файлов.
	Watch bool `yaml:"watch"`

	DatabaseURL string `yaml:"db_url"`

	Redis       RedisConfig `yaml:"redis"`
	RabbitMQURL string      `yaml:"rabbitmq_url"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// RedisConfig — кеш опубликованных версий. Пустой Addr отключает кеш.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default возвращает конфигурацию для локальной разработки.
func Default() Config {
	return Config{
		APIPort:    8080,
		WorkerPort: 8082,
		Storage:    StoragePostgres,
		DataDir:    "data",
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		LogLevel:  "INFO",
		LogFormat: "json",
	}
}

// Load собирает конфигурацию. Пустой path берётся из FORMFLOW_CONFIG;
// если и он пуст, файл не читается.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	envInt("API_PORT", &c.APIPort, &errs)
	envInt("WORKER_PORT", &c.WorkerPort, &errs)
	envInt("REDIS_DB", &c.Redis.DB, &errs)

	if v := os.Getenv("STORAGE"); v != "" {
		c.Storage = Storage(v)
	}
	envString("DATA_DIR", &c.DataDir)
	envString("DB_URL", &c.DatabaseURL)
	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)
	envString("RABBITMQ_URL", &c.RabbitMQURL)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)

	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CACHE_TTL: %w", err))
		} else {
			c.Redis.TTL = ttl
		}
	}
	if v := os.Getenv("STORAGE_WATCH"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("STORAGE_WATCH: %w", err))
		} else {
			c.Watch = watch
		}
	}

	return errors.Join(errs...)
}

// Validate проверяет согласованность значений.
func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
	case StorageFile:
		if c.DataDir == "" {
			return errors.New("data_dir is required for file storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.APIPort <= 0 || c.WorkerPort <= 0 {
		return errors.New("ports must be positive")
	}
	if c.Redis.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	return nil
}

// APIAddr — адрес HTTP сервера API.
func (c Config) APIAddr() string {
	return ":" + strconv.Itoa(c.APIPort)
}

// WorkerAddr — адрес health/metrics сервера worker.
func (c Config) WorkerAddr() string {
	return ":" + strconv.Itoa(c.WorkerPort)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}
