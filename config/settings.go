package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPureGo = "sqlite"
	DriverCgo    = "sqlite3"
)

// Settings is the full server configuration. Values come from an optional
// YAML file and are then overridden by environment variables.
type Settings struct {
	Port string `yaml:"port"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		URL      string `yaml:"url"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		Backend string        `yaml:"backend"` // bigcache, redis, lru
		TTL     time.Duration `yaml:"ttl"`
		Size    int           `yaml:"size"`
	} `yaml:"cache"`

	Batch struct {
		Mode      string        `yaml:"mode"` // time, count, none
		Interval  time.Duration `yaml:"interval"`
		Threshold int           `yaml:"threshold"`
	} `yaml:"batch"`

	RateLimit struct {
		Algorithm string        `yaml:"algorithm"` // fixed, sliding, token, leaky, off
		Requests  int           `yaml:"requests"`
		Window    time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`

	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	LogDir    string `yaml:"log_dir"`
	Debug     bool   `yaml:"debug"`
	SentryDSN string `yaml:"sentry_dsn"`
	BotList   string `yaml:"bot_list"`

	ContentDir string `yaml:"content_dir"`
	StaticDir  string `yaml:"static_dir"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	var s Settings
	s.Port = "8080"
	s.Database.Driver = DriverPureGo
	s.Database.Path = "views.db"
	s.Cache.Backend = "bigcache"
	s.Cache.TTL = time.Minute
	s.Cache.Size = 128
	s.Batch.Mode = "time"
	s.Batch.Interval = 5 * time.Second
	s.Batch.Threshold = 50
	s.RateLimit.Algorithm = "fixed"
	s.RateLimit.Requests = 30
	s.RateLimit.Window = time.Minute
	s.Workers = 2
	s.QueueSize = 100
	s.LogDir = "logs"
	s.ContentDir = "content"
	s.StaticDir = "./static/"
	return s
}

// Load reads path (if non-empty) on top of Defaults and applies environment
// overrides.
func Load(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := s.applyEnv(); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func (s *Settings) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("PORT", &s.Port) // Railway injects PORT
	setString("DATABASE_DRIVER", &s.Database.Driver)
	setString("DATABASE_PATH", &s.Database.Path)
	setString("REDIS_URL", &s.Redis.URL)
	setString("REDIS_PASSWORD", &s.Redis.Password)
	setString("SENTRY_DSN", &s.SentryDSN)
	setString("LOG_DIR", &s.LogDir)
	setString("CONTENT_DIR", &s.ContentDir)
	setString("CACHE_BACKEND", &s.Cache.Backend)
	setString("BATCH_MODE", &s.Batch.Mode)
	setString("BOT_LIST", &s.BotList)

	if v := os.Getenv("VIEWS_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("VIEWS_DEBUG: %w", err)
		}
		s.Debug = debug
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (s Settings) Validate() error {
	switch s.Database.Driver {
	case DriverPureGo, DriverCgo:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPureGo, DriverCgo, s.Database.Driver)
	}
	switch s.Cache.Backend {
	case "bigcache", "lru":
	case "redis":
		if s.Redis.URL == "" {
			return fmt.Errorf("cache.backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", s.Cache.Backend)
	}
	switch s.Batch.Mode {
	case "none":
	case "time":
		if s.Batch.Interval <= 0 {
			return fmt.Errorf("batch.interval must be positive")
		}
	case "count":
		if s.Batch.Threshold <= 0 {
			return fmt.Errorf("batch.threshold must be positive")
		}
	default:
		return fmt.Errorf("unknown batch.mode %q", s.Batch.Mode)
	}
	switch s.RateLimit.Algorithm {
	case "off", "fixed":
	case "sliding", "token", "leaky":
		if s.Redis.URL == "" {
			return fmt.Errorf("rate_limit.algorithm %s requires redis.url", s.RateLimit.Algorithm)
		}
	default:
		return fmt.Errorf("unknown rate_limit.algorithm %q", s.RateLimit.Algorithm)
	}
	if s.RateLimit.Algorithm != "off" {
		if s.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate_limit.requests must be positive")
		}
		if s.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
	}
	if s.Workers < 1 || s.QueueSize < 1 {
		return fmt.Errorf("workers and queue_size must be at least 1")
	}
	return nil
}
