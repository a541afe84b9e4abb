package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Site      SiteConfig      `yaml:"site"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Outliers  OutlierConfig   `yaml:"outliers"`
	Live      LiveConfig      `yaml:"live"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	// Enabled requires a bearer API key on the HTTP API and MCP endpoint.
	Enabled bool `yaml:"enabled"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio". Stdio serves MCP only.
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Path sends logs to a size-capped file.
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type SiteConfig struct {
	// Timezone is an IANA name used for weekday and hour bucketing.
	Timezone string `yaml:"timezone"`
}

type TrackingConfig struct {
	Source         string        `yaml:"source"`
	IoUThreshold   float64       `yaml:"iou_threshold"`
	FrameDelay     time.Duration `yaml:"frame_delay"`
	// Input is an NDJSON frame file, "-" for stdin, or empty to accept HTTP pushes.
	Input     string `yaml:"input"`
	QueueSize int    `yaml:"queue_size"`
}

type EstimatorConfig struct {
	LookbackWeeks     int           `yaml:"lookback_weeks"`
	InitialEstimate   float64       `yaml:"initial_estimate"`
	InitialCovariance float64       `yaml:"initial_covariance"`
	ProcessVar        float64       `yaml:"process_var"`
	MeasurementVar    float64       `yaml:"measurement_var"`
	CacheRefresh      time.Duration `yaml:"cache_refresh"`
}

type OutlierConfig struct {
	Threshold   float64 `yaml:"threshold"`
	MinSamples  int     `yaml:"min_samples"`
	MinDuration float64 `yaml:"min_duration"`
}

type LiveConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "waitwatch.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Site: SiteConfig{
			Timezone: "UTC",
		},
		Tracking: TrackingConfig{
			Source:       "default",
			IoUThreshold: 0.3,
			FrameDelay:   0,
			QueueSize:    64,
		},
		Estimator: EstimatorConfig{
			LookbackWeeks:     8,
			InitialEstimate:   600,
			InitialCovariance: 500,
			ProcessVar:        100,
			MeasurementVar:    200,
			CacheRefresh:      15 * time.Minute,
		},
		Outliers: OutlierConfig{
			Threshold:   3,
			MinSamples:  2,
			MinDuration: 1,
		},
		Live: LiveConfig{
			Interval: 2 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("WAITWATCH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside the services.
func (c Config) Validate() error {
	if c.Transport.Mode != "http" && c.Transport.Mode != "stdio" {
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tracking.IoUThreshold <= 0 || c.Tracking.IoUThreshold >= 1 {
		return fmt.Errorf("iou_threshold must be in (0, 1), got %v", c.Tracking.IoUThreshold)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Tracking.FrameDelay < 0 {
		return fmt.Errorf("frame_delay must not be negative")
	}
	if c.Estimator.LookbackWeeks < 1 {
		return fmt.Errorf("lookback_weeks must be at least 1, got %d", c.Estimator.LookbackWeeks)
	}
	if c.Estimator.InitialCovariance < 0 || c.Estimator.ProcessVar < 0 || c.Estimator.MeasurementVar <= 0 {
		return fmt.Errorf("estimator variances must be non-negative and measurement_var positive")
	}
	if c.Outliers.Threshold <= 0 {
		return fmt.Errorf("outlier threshold must be positive, got %v", c.Outliers.Threshold)
	}
	if c.Outliers.MinSamples < 2 {
		return fmt.Errorf("outlier min_samples must be at least 2, got %d", c.Outliers.MinSamples)
	}
	return nil
}

// Location resolves the site time zone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Site.Timezone, err)
	}
	return loc, nil
}

// Lookback returns the estimator history window.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.Estimator.LookbackWeeks) * 7 * 24 * time.Hour
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("WAITWATCH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if err := envInt("WAITWATCH_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if enabled := os.Getenv("WAITWATCH_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid WAITWATCH_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if mode := os.Getenv("WAITWATCH_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := os.Getenv("WAITWATCH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("WAITWATCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("WAITWATCH_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if path := os.Getenv("WAITWATCH_LOG_PATH"); path != "" {
		cfg.Log.Path = path
	}
	if tz := os.Getenv("WAITWATCH_TIMEZONE"); tz != "" {
		cfg.Site.Timezone = tz
	}
	if source := os.Getenv("WAITWATCH_SOURCE"); source != "" {
		cfg.Tracking.Source = source
	}
	if input := os.Getenv("WAITWATCH_FRAME_INPUT"); input != "" {
		cfg.Tracking.Input = input
	}
	if err := envDuration("WAITWATCH_FRAME_DELAY", &cfg.Tracking.FrameDelay); err != nil {
		return err
	}
	if err := envFloat("WAITWATCH_IOU_THRESHOLD", &cfg.Tracking.IoUThreshold); err != nil {
		return err
	}
	if err := envInt("WAITWATCH_LOOKBACK_WEEKS", &cfg.Estimator.LookbackWeeks); err != nil {
		return err
	}
	if err := envFloat("WAITWATCH_PROCESS_VAR", &cfg.Estimator.ProcessVar); err != nil {
		return err
	}
	if err := envFloat("WAITWATCH_MEASUREMENT_VAR", &cfg.Estimator.MeasurementVar); err != nil {
		return err
	}
	if err := envFloat("WAITWATCH_OUTLIER_THRESHOLD", &cfg.Outliers.Threshold); err != nil {
		return err
	}
	if err := envInt("WAITWATCH_OUTLIER_MIN_SAMPLES", &cfg.Outliers.MinSamples); err != nil {
		return err
	}
	return nil
}

func envInt(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func envFloat(key string, dst *float64) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
