package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	Sweep      SweepConfig      `yaml:"sweep"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Stations   []StationConfig  `yaml:"stations"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableRangeGuard       bool   `yaml:"enable_range_guard"`
}

// AuthConfig holds identity-token verification and sign-in settings. The
// backend never authenticates users itself; it validates tokens minted by
// the identity provider and fronts its OTP sender.
type AuthConfig struct {
	TokenSecret       string   `yaml:"token_secret"`
	AllowedDomains    []string `yaml:"allowed_email_domains"`
	OTPWindowSeconds  int      `yaml:"otp_window_seconds"`
	OTPMaxPerWindow   int      `yaml:"otp_max_per_window"`
	OTPCleanupMinutes int      `yaml:"otp_cleanup_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// SweepConfig controls the optional background status sweeper. Read paths
// reconcile lazily either way; the sweeper only bounds how stale rows at
// rest can get.
type SweepConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// StationConfig describes one seeded station in the registry.
type StationConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Auth.OTPWindowSeconds <= 0 {
		cfg.Auth.OTPWindowSeconds = 60
	}
	if cfg.Auth.OTPMaxPerWindow <= 0 {
		cfg.Auth.OTPMaxPerWindow = 3
	}
	if cfg.Auth.OTPCleanupMinutes <= 0 {
		cfg.Auth.OTPCleanupMinutes = 5
	}

	if cfg.Sweep.IntervalSeconds <= 0 {
		cfg.Sweep.IntervalSeconds = 60
	}
	cfg.Sweep.Interval = time.Duration(cfg.Sweep.IntervalSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
