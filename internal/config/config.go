package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Every field can be
// overridden by a FROSTGREET_* environment variable.
type FileConfig struct {
	APIBaseURL    string `yaml:"apiBaseURL"`
	LogLevel      string `yaml:"logLevel"`
	SessionPath   string `yaml:"sessionPath"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	DatabaseURL   string `yaml:"databaseURL"`
	AMQPURL       string `yaml:"amqpURL"`
	AMQPExchange  string `yaml:"amqpExchange"`
	MinioEndpoint string `yaml:"minioEndpoint"`
	MinioAccess   string `yaml:"minioAccessKey"`
	MinioSecret   string `yaml:"minioSecretKey"`
	MinioBucket   string `yaml:"minioBucket"`
	MinioUseSSL   bool   `yaml:"minioUseSSL"`
	ImageEncoding string `yaml:"imageEncoding"`
	VideoTimeout  string `yaml:"videoTimeout"`
}

// Load reads config from path (defaults to config.yaml). A missing file is
// fine when the env carries everything required.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if v := os.Getenv("FROSTGREET_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("FROSTGREET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("FROSTGREET_SESSION_PATH"); v != "" {
		cfg.SessionPath = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("FROSTGREET_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("FROSTGREET_AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("FROSTGREET_AMQP_EXCHANGE"); v != "" {
		cfg.AMQPExchange = v
	}
	if v := os.Getenv("FROSTGREET_MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("FROSTGREET_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccess = v
	}
	if v := os.Getenv("FROSTGREET_MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecret = v
	}
	if v := os.Getenv("FROSTGREET_MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("FROSTGREET_MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("FROSTGREET_IMAGE_ENCODING"); v != "" {
		cfg.ImageEncoding = strings.TrimSpace(v)
	}
	if v := os.Getenv("FROSTGREET_VIDEO_TIMEOUT"); v != "" {
		cfg.VideoTimeout = strings.TrimSpace(v)
	}
	if cfg.SessionPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.SessionPath = home + "/.frostgreet/session.json"
		} else {
			cfg.SessionPath = ".frostgreet-session.json"
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or FROSTGREET_API_BASE_URL)")
	}
	if enc := cfg.ImageEncoding; enc != "" && enc != "multipart" && enc != "base64" {
		return fmt.Errorf("config: imageEncoding must be multipart or base64, got %q", enc)
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required when minioEndpoint is set")
	}
	return nil
}

// ParseVideoTimeout parses the optional video timeout duration string.
func ParseVideoTimeout(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid videoTimeout duration: %w", err)
	}
	return dur, nil
}
