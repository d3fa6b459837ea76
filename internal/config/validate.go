package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.PDFDir == "" {
		return fmt.Errorf("server.pdf_dir must not be empty")
	}

	if cfg.Pool.Min < 0 {
		return fmt.Errorf("pool.min must be >= 0, got %d", cfg.Pool.Min)
	}
	if cfg.Pool.Max < 1 {
		return fmt.Errorf("pool.max must be >= 1, got %d", cfg.Pool.Max)
	}
	if cfg.Pool.Min > cfg.Pool.Max {
		return fmt.Errorf("pool.min (%d) must be <= pool.max (%d)", cfg.Pool.Min, cfg.Pool.Max)
	}
	if cfg.Pool.MaxUses < 1 {
		return fmt.Errorf("pool.max_uses must be >= 1, got %d", cfg.Pool.MaxUses)
	}
	if cfg.Pool.MaxAge <= 0 {
		return fmt.Errorf("pool.max_age must be > 0")
	}
	if cfg.Pool.AcquireTimeout <= 0 {
		return fmt.Errorf("pool.acquire_timeout must be > 0")
	}
	if cfg.Pool.PollInterval <= 0 {
		return fmt.Errorf("pool.poll_interval must be > 0")
	}
	if cfg.Pool.MinScaleInterval < 0 {
		return fmt.Errorf("pool.min_scale_interval must be >= 0")
	}
	if cfg.Pool.ScaleDownIdle < 0 {
		return fmt.Errorf("pool.scale_down_idle must be >= 0")
	}

	if cfg.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be >= 1, got %d", cfg.Queue.Capacity)
	}
	if cfg.Queue.NWorkers < 1 {
		return fmt.Errorf("queue.n_workers must be >= 1, got %d", cfg.Queue.NWorkers)
	}

	if cfg.Render.ViewportWidth <= 0 || cfg.Render.ViewportHeight <= 0 {
		return fmt.Errorf("render.viewport_width/height must be > 0")
	}
	if cfg.Render.NavTimeout <= 0 {
		return fmt.Errorf("render.nav_timeout must be > 0")
	}

	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("store.database_url (DATABASE_URL) is required")
	}
	if cfg.Store.MaxConnections < 1 {
		return fmt.Errorf("store.max_connections must be >= 1, got %d", cfg.Store.MaxConnections)
	}

	if cfg.Housekeeper.ScaleDownInterval <= 0 {
		return fmt.Errorf("housekeeper.scale_down_interval must be > 0")
	}
	if cfg.Housekeeper.SweepInterval <= 0 {
		return fmt.Errorf("housekeeper.sweep_interval must be > 0")
	}
	if cfg.Housekeeper.Retention <= 0 {
		return fmt.Errorf("housekeeper.retention must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is acceptable for rendering.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url must not be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
