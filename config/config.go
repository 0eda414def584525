// Package config 服务配置加载，支持YAML与环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cardiorisk/logging"

	"gopkg.in/yaml.v2"
)

const (
	EnvConfigPath = "CARDIORISK_CONFIG"
	EnvPort       = "CARDIORISK_PORT"
	EnvModelPath  = "CARDIORISK_MODEL_PATH"
	EnvLogLevel   = "CARDIORISK_LOG_LEVEL"
)

type Config struct {
	HTTP  HTTPConfig  `yaml:"http"`
	Model ModelConfig `yaml:"model"`
	Log   LogConfig   `yaml:"log"`
}

type HTTPConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type ModelConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Watch      bool   `yaml:"watch"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           8000,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   64 << 10,
			AllowedOrigins: []string{"*"},
		},
		Model: ModelConfig{
			Path:      "models/heart_model.json",
			CacheSize: 1024,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Watch:      true,
		},
	}
}

// Load 加载配置文件，文件不存在时使用默认值
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config %s: %w", path, err)
		default:
			defer file.Close()
			if err := yaml.NewDecoder(file).Decode(&config); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv(EnvModelPath); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		problems = append(problems, fmt.Sprintf("http.port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.Timeout <= 0 {
		problems = append(problems, "http.timeout must be positive")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		problems = append(problems, "http.max_body_bytes must be positive")
	}
	if strings.TrimSpace(c.Model.Path) == "" {
		problems = append(problems, "model.path is required")
	}
	if c.Model.CacheSize < 0 {
		problems = append(problems, "model.cache_size must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not json or console", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func (c LogConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}
