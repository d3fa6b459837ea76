// Command pdfsvc runs the asynchronous HTML-to-PDF rendering service:
// an elastic pool of headless render engines, a bounded job queue
// consumed by a fixed worker pool, a durable Postgres task store, a
// periodic housekeeper, and the HTTP submission/query facade in front
// of all of it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/pdfsvc/internal/config"
	"github.com/IshaanNene/pdfsvc/internal/housekeeper"
	"github.com/IshaanNene/pdfsvc/internal/jobqueue"
	"github.com/IshaanNene/pdfsvc/internal/render"
	"github.com/IshaanNene/pdfsvc/internal/renderpool"
	"github.com/IshaanNene/pdfsvc/internal/renderworker"
	"github.com/IshaanNene/pdfsvc/internal/taskstore"

	apiserver "github.com/IshaanNene/pdfsvc/internal/api"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdfsvc",
		Short: "pdfsvc — asynchronous HTML-to-PDF rendering service",
		Long: `pdfsvc renders arbitrary web pages to PDF through a pool of headless
Chromium engines, a bounded job queue, and a durable task store.

Features:
  • Elastic render engine pool with reactive scale-up and idle scale-down
  • Bounded job queue with a fixed worker pool
  • Durable PostgreSQL-backed task store with retention sweeping
  • Thin HTTP submission/query facade
  • Prometheus metrics endpoint`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand: the full service.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the render service",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Server.PDFDir, 0o755); err != nil {
		return fmt.Errorf("create pdf dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := taskstore.New(ctx, taskstore.Config{
		ConnectionString: cfg.Store.DatabaseURL,
		MaxConnections:   cfg.Store.MaxConnections,
		ConnectTimeout:   cfg.Store.ConnectTimeout,
		MigrationsPath:   cfg.Store.MigrationsPath,
	})
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer store.Close()

	pool := renderpool.New(renderpool.Config{
		Min:              cfg.Pool.Min,
		Max:              cfg.Pool.Max,
		MaxUses:          cfg.Pool.MaxUses,
		MaxAge:           cfg.Pool.MaxAge,
		ChromiumPath:     cfg.Pool.ChromiumPath,
		AcquireTimeout:   cfg.Pool.AcquireTimeout,
		PollInterval:     cfg.Pool.PollInterval,
		MinScaleInterval: cfg.Pool.MinScaleInterval,
		ScaleDownIdle:    cfg.Pool.ScaleDownIdle,
	}, logger)
	defer pool.Shutdown()

	queue := jobqueue.New(cfg.Queue.Capacity)

	workers := renderworker.New(renderworker.Config{
		NWorkers: cfg.Queue.NWorkers,
		PDFDir:   cfg.Server.PDFDir,
		Render: render.Options{
			ViewportWidth:  cfg.Render.ViewportWidth,
			ViewportHeight: cfg.Render.ViewportHeight,
			UserAgent:      cfg.Render.UserAgent,
			NavTimeout:     cfg.Render.NavTimeout,
			Stealth:        cfg.Render.Stealth,
		},
	}, pool, store, logger)
	workers.Start(ctx, queue.Jobs())

	hk := housekeeper.New(housekeeper.Config{
		ScaleDownInterval: cfg.Housekeeper.ScaleDownInterval,
		SweepInterval:     cfg.Housekeeper.SweepInterval,
		Retention:         cfg.Housekeeper.Retention,
		PDFDir:            cfg.Server.PDFDir,
		DeletePDFFiles:    true,
	}, pool, store, logger)
	go hk.Run(ctx)

	srv := apiserver.NewServer(cfg.Server.Port, cfg.Server.PDFDir, store, queue, pool, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down...", "signal", sig)
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("api server exited", "error", err)
		}
	}

	// Shutdown order follows spec.md §5: stop accepting new work, let the
	// housekeeper's monitors observe context cancellation, then drain
	// workers, then close the store.
	cancel()
	queue.Close()
	workers.Wait()

	logger.Info("pdfsvc stopped")
	return nil
}

// renderCmd creates the "render" one-shot subcommand: navigate and
// print a single URL through the pool, bypassing the queue and store
// entirely (spec.md §9's "two variants" note).
func renderCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render a single URL to PDF and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenderOnce(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "output.pdf", "output PDF path")
	return cmd
}

func runRenderOnce(url, output string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateURL(url); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	pool := renderpool.New(renderpool.Config{
		Min:              0,
		Max:              1,
		MaxUses:          1,
		MaxAge:           cfg.Pool.MaxAge,
		ChromiumPath:     cfg.Pool.ChromiumPath,
		AcquireTimeout:   cfg.Pool.AcquireTimeout,
		PollInterval:     cfg.Pool.PollInterval,
		MinScaleInterval: 0,
		ScaleDownIdle:    cfg.Pool.ScaleDownIdle,
	}, logger)
	defer pool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Render.NavTimeout*2)
	defer cancel()

	handle, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire render engine: %w", err)
	}
	defer pool.Release(handle.ID)

	opts := render.Options{
		ViewportWidth:  cfg.Render.ViewportWidth,
		ViewportHeight: cfg.Render.ViewportHeight,
		UserAgent:      cfg.Render.UserAgent,
		NavTimeout:     cfg.Render.NavTimeout,
		Stealth:        cfg.Render.Stealth,
		OutputPath:     output,
	}
	if err := render.Render(handle.Browser, url, opts, logger); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	fmt.Printf("wrote %s\n", output)
	return nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pdfsvc %s\n", config.Version)
		},
	}
}

// configCmd creates the "config show" subcommand for inspecting
// resolved configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Server:\n")
			fmt.Printf("  Port:               %d\n", cfg.Server.Port)
			fmt.Printf("  PDF Dir:            %s\n", cfg.Server.PDFDir)
			fmt.Printf("\nPool:\n")
			fmt.Printf("  Min/Max:            %d/%d\n", cfg.Pool.Min, cfg.Pool.Max)
			fmt.Printf("  Max Uses:           %d\n", cfg.Pool.MaxUses)
			fmt.Printf("  Max Age:            %s\n", cfg.Pool.MaxAge)
			fmt.Printf("  Acquire Timeout:    %s\n", cfg.Pool.AcquireTimeout)
			fmt.Printf("  Scale Down Idle:    %s\n", cfg.Pool.ScaleDownIdle)
			fmt.Printf("\nQueue:\n")
			fmt.Printf("  Capacity:           %d\n", cfg.Queue.Capacity)
			fmt.Printf("  Workers:            %d\n", cfg.Queue.NWorkers)
			fmt.Printf("\nRender:\n")
			fmt.Printf("  Viewport:           %dx%d\n", cfg.Render.ViewportWidth, cfg.Render.ViewportHeight)
			fmt.Printf("  Nav Timeout:        %s\n", cfg.Render.NavTimeout)
			fmt.Printf("  Stealth:            %v\n", cfg.Render.Stealth)
			fmt.Printf("\nStore:\n")
			fmt.Printf("  Max Connections:    %d\n", cfg.Store.MaxConnections)
			fmt.Printf("  Migrations Path:    %s\n", cfg.Store.MigrationsPath)
			fmt.Printf("\nHousekeeper:\n")
			fmt.Printf("  Scale Down Every:   %s\n", cfg.Housekeeper.ScaleDownInterval)
			fmt.Printf("  Sweep Every:        %s\n", cfg.Housekeeper.SweepInterval)
			fmt.Printf("  Retention:          %s\n", cfg.Housekeeper.Retention)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Path:               %s\n", cfg.Metrics.Path)
			return nil
		},
	})
	return cmd
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
