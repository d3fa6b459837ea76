package config

import "time"

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for pdfsvc.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      yaml:"server"`
	Pool        PoolConfig        `mapstructure:"pool"        yaml:"pool"`
	Queue       QueueConfig       `mapstructure:"queue"       yaml:"queue"`
	Render      RenderConfig      `mapstructure:"render"      yaml:"render"`
	Store       StoreConfig       `mapstructure:"store"       yaml:"store"`
	Housekeeper HousekeeperConfig `mapstructure:"housekeeper" yaml:"housekeeper"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"     yaml:"metrics"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Port   int    `mapstructure:"port"    yaml:"port"`
	PDFDir string `mapstructure:"pdf_dir" yaml:"pdf_dir"`
}

// PoolConfig controls the render engine pool (spec §4.2).
type PoolConfig struct {
	Min              int           `mapstructure:"min"                yaml:"min"`
	Max              int           `mapstructure:"max"                yaml:"max"`
	MaxUses          int           `mapstructure:"max_uses"           yaml:"max_uses"`
	MaxAge           time.Duration `mapstructure:"max_age"            yaml:"max_age"`
	AcquireTimeout   time.Duration `mapstructure:"acquire_timeout"    yaml:"acquire_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"      yaml:"poll_interval"`
	MinScaleInterval time.Duration `mapstructure:"min_scale_interval" yaml:"min_scale_interval"`
	ScaleDownIdle    time.Duration `mapstructure:"scale_down_idle"    yaml:"scale_down_idle"`
	ChromiumPath     string        `mapstructure:"chromium_path"      yaml:"chromium_path"`
}

// QueueConfig controls the bounded job queue (spec §4.4).
type QueueConfig struct {
	Capacity int `mapstructure:"capacity"  yaml:"capacity"`
	NWorkers int `mapstructure:"n_workers" yaml:"n_workers"`
}

// RenderConfig controls the external render operation (spec §4.5, §6).
type RenderConfig struct {
	ViewportWidth  int           `mapstructure:"viewport_width"  yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"     yaml:"nav_timeout"`
	Stealth        bool          `mapstructure:"stealth"         yaml:"stealth"`
}

// StoreConfig controls the durable task store (spec §4.3).
type StoreConfig struct {
	DatabaseURL    string        `mapstructure:"database_url"    yaml:"database_url"`
	MaxConnections int32         `mapstructure:"max_connections" yaml:"max_connections"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	MigrationsPath string        `mapstructure:"migrations_path" yaml:"migrations_path"`
}

// HousekeeperConfig controls the periodic housekeeper (spec §4.6).
type HousekeeperConfig struct {
	ScaleDownInterval time.Duration `mapstructure:"scale_down_interval" yaml:"scale_down_interval"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"      yaml:"sweep_interval"`
	Retention         time.Duration `mapstructure:"retention"           yaml:"retention"`
}

// LoggingConfig holds logging settings. Validate checks them, but the
// pdfsvc command's logger does not read them: it always writes text to
// stderr, at debug level with --verbose and info level otherwise.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig holds metrics endpoint settings, printed by "config show".
// The API server does not read them: it always serves metrics at /metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config populated with the defaults spec.md names.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   8080,
			PDFDir: "./pdf",
		},
		Pool: PoolConfig{
			Min:              3,
			Max:              20,
			MaxUses:          3,
			MaxAge:           10 * time.Minute,
			AcquireTimeout:   10 * time.Second,
			PollInterval:     100 * time.Millisecond,
			MinScaleInterval: 30 * time.Second,
			ScaleDownIdle:    300 * time.Second,
		},
		Queue: QueueConfig{
			Capacity: 100,
			NWorkers: 3,
		},
		Render: RenderConfig{
			ViewportWidth:  1024,
			ViewportHeight: 768,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) pdfsvc/1.0 Chrome/120.0.0.0 Safari/537.36",
			NavTimeout:     30 * time.Second,
			Stealth:        false,
		},
		Store: StoreConfig{
			MaxConnections: 10,
			ConnectTimeout: 30 * time.Second,
			MigrationsPath: "file://internal/taskstore/migrations",
		},
		Housekeeper: HousekeeperConfig{
			ScaleDownInterval: 10 * time.Second,
			SweepInterval:     5 * time.Minute,
			Retention:         1 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
