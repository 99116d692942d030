package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"taxwise-hq/sentinel/pkg/cli"
	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/server"
	"taxwise-hq/sentinel/pkg/telemetry"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	watch         bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operational server",
	Long: `Start Sentinel: build every telemetry component from the configuration,
schedule retention and signature sweeps, and serve the health, readiness,
metrics and debug endpoints until SIGINT or SIGTERM.

Examples:
  # Start with default config
  sentinel serve

  # Override listen address and reload on config changes
  sentinel serve --listen 0.0.0.0:9090 --watch

  # Validate config without starting
  sentinel serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "reload hot-reloadable settings when the config file changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	cfg := config.GetConfig()

	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if serveFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tel, err := telemetry.New(cfg, buildInfo())
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	if err := tel.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	config.Subscribe(tel.ApplyConfig)
	if serveFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0, slog.Default())
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer watcher.Stop()
		go func() {
			if err := watcher.Watch(ctx, func() error { return config.ReloadConfig(cfgFile) }); err != nil {
				slog.Error("config watcher stopped", "error", err)
			}
		}()
	}

	slog.Info("sentinel starting",
		"version", Version,
		"listen_address", cfg.Server.ListenAddress,
		"audit_backend", cfg.Audit.Storage.Backend,
		"tracing_enabled", cfg.Telemetry.Tracing.Enabled,
		"started_at", time.Now().UTC().Format(time.RFC3339),
	)

	srv := server.New(&cfg.Server, tel)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}
