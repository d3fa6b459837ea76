package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment. No CLI flags are
// bound here. Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("PDFSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("pdfsvc")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".pdfsvc"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// DATABASE_URL and CHROMIUM_PATH are the two environment variables
	// spec.md names explicitly (§6); they sit outside the PDFSVC_ prefix
	// so they're read as plain overrides on top of the viper-loaded config.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Store.DatabaseURL = dbURL
	}
	if chromiumPath := os.Getenv("CHROMIUM_PATH"); chromiumPath != "" {
		cfg.Pool.ChromiumPath = chromiumPath
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	return Load(path)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.pdf_dir", cfg.Server.PDFDir)

	v.SetDefault("pool.min", cfg.Pool.Min)
	v.SetDefault("pool.max", cfg.Pool.Max)
	v.SetDefault("pool.max_uses", cfg.Pool.MaxUses)
	v.SetDefault("pool.max_age", cfg.Pool.MaxAge)
	v.SetDefault("pool.acquire_timeout", cfg.Pool.AcquireTimeout)
	v.SetDefault("pool.poll_interval", cfg.Pool.PollInterval)
	v.SetDefault("pool.min_scale_interval", cfg.Pool.MinScaleInterval)
	v.SetDefault("pool.scale_down_idle", cfg.Pool.ScaleDownIdle)
	v.SetDefault("pool.chromium_path", cfg.Pool.ChromiumPath)

	v.SetDefault("queue.capacity", cfg.Queue.Capacity)
	v.SetDefault("queue.n_workers", cfg.Queue.NWorkers)

	v.SetDefault("render.viewport_width", cfg.Render.ViewportWidth)
	v.SetDefault("render.viewport_height", cfg.Render.ViewportHeight)
	v.SetDefault("render.user_agent", cfg.Render.UserAgent)
	v.SetDefault("render.nav_timeout", cfg.Render.NavTimeout)
	v.SetDefault("render.stealth", cfg.Render.Stealth)

	v.SetDefault("store.database_url", cfg.Store.DatabaseURL)
	v.SetDefault("store.max_connections", cfg.Store.MaxConnections)
	v.SetDefault("store.connect_timeout", cfg.Store.ConnectTimeout)
	v.SetDefault("store.migrations_path", cfg.Store.MigrationsPath)

	v.SetDefault("housekeeper.scale_down_interval", cfg.Housekeeper.ScaleDownInterval)
	v.SetDefault("housekeeper.sweep_interval", cfg.Housekeeper.SweepInterval)
	v.SetDefault("housekeeper.retention", cfg.Housekeeper.Retention)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
