package config

import (
	"bytes"
	"fmt"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 2333
	defaultEnv        = "development"
	defaultSQLitePath = "data/hindsight.db"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0

	// DriverSQLite selects the embedded relational backend.
	DriverSQLite = "sqlite"
	// DriverRedis selects the key-value blob backend.
	DriverRedis = "redis"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                `yaml:"port"`
	Env            string             `yaml:"env"` // "development" | "production"
	Storage        StorageConfig      `yaml:"storage"`
	Redis          RedisRuntimeConfig `yaml:"redis"`
	Reminder       ReminderConfig     `yaml:"reminder"`
	Feedback       FeedbackConfig     `yaml:"feedback"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
}

// StorageConfig selects the persistence backend, once, at startup.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "redis"
	Path   string `yaml:"path"`   // sqlite file path
}

type RedisRuntimeConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

// ReminderConfig schedules the recurring local review reminder.
type ReminderConfig struct {
	Enable bool `yaml:"enable"`
	Hour   int  `yaml:"hour"`
	Minute int  `yaml:"minute"`
}

// FeedbackConfig points feedback submissions at a remote collector.
type FeedbackConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// Load reads and validates the YAML config file, applying defaults for
// anything left unset.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	cfg.normalize()

	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   defaultSQLitePath,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Reminder: ReminderConfig{
			Enable: false,
			Hour:   20,
			Minute: 0,
		},
	}
}

func (c *AppConfig) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = defaultEnv
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	if c.Storage.Path == "" {
		c.Storage.Path = defaultSQLitePath
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Redis.Host == "" && c.Redis.URL == "" {
		c.Redis.Host = defaultRedisHost
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = defaultRedisPort
	}

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, origin := range c.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.AllowedOrigins = origins
	c.Feedback.Endpoint = strings.TrimSpace(c.Feedback.Endpoint)
}

func (c *AppConfig) validate(path string) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", c.Port, path)
	}
	if c.Storage.Driver != DriverSQLite && c.Storage.Driver != DriverRedis {
		return fmt.Errorf("invalid storage.driver %q in %q, expected %q or %q",
			c.Storage.Driver, path, DriverSQLite, DriverRedis)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d in %q, expected >= 0", c.Redis.DB, path)
	}
	if c.Reminder.Hour < 0 || c.Reminder.Hour > 23 {
		return fmt.Errorf("invalid reminder.hour %d in %q, expected 0-23", c.Reminder.Hour, path)
	}
	if c.Reminder.Minute < 0 || c.Reminder.Minute > 59 {
		return fmt.Errorf("invalid reminder.minute %d in %q, expected 0-59", c.Reminder.Minute, path)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// SQLitePath returns the embedded database file path.
func (c *AppConfig) SQLitePath() string {
	if c == nil || c.Storage.Path == "" {
		return defaultSQLitePath
	}
	return c.Storage.Path
}

// RedisURL assembles a redis:// URL from either the raw url field or the
// discrete host settings.
func (c *AppConfig) RedisURL() string {
	raw := strings.TrimSpace(c.Redis.URL)
	if raw != "" {
		if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
			return raw
		}
		return "redis://" + raw
	}

	scheme := "redis"
	if c.Redis.TLS {
		scheme = "rediss"
	}
	u := &neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port)),
		Path:   "/" + strconv.Itoa(c.Redis.DB),
	}
	username := strings.TrimSpace(c.Redis.Username)
	password := strings.TrimSpace(c.Redis.Password)
	if username != "" {
		if password != "" {
			u.User = neturl.UserPassword(username, password)
		} else {
			u.User = neturl.User(username)
		}
	} else if password != "" {
		u.User = neturl.UserPassword("", password)
	}
	return u.String()
}
