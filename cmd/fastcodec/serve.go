package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fastcodec/internal/api"
	"fastcodec/internal/logging"
	"fastcodec/internal/stream"
	"fastcodec/internal/web"
)

func newServeCmd() *cobra.Command {
	var logFile string
	var traceFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the FAST codec HTTP API, session auth and stream publishers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			applog, closer, err := logging.NewApp(level, logFile)
			if err != nil {
				return fmt.Errorf("starting logger: %w", err)
			}
			defer closer.Close()
			slog.SetDefault(applog)

			if traceFile != "" {
				trace, err := logging.NewTrace(traceFile)
				if err != nil {
					return fmt.Errorf("starting trace log: %w", err)
				}
				logging.SetGlobalTrace(trace)
				defer trace.Close()
			}

			if !cfg.Web.Enabled {
				return fmt.Errorf("web.enabled is false in %s; nothing to serve", configPath)
			}

			addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
			apiServer := api.NewServer(addr)

			for _, ts := range cfg.TemplateSets {
				if !ts.Enabled {
					continue
				}
				xmlDoc, err := os.ReadFile(ts.Path)
				if err != nil {
					slog.Warn("skipping template set", "name", ts.Name, "error", err)
					continue
				}
				if err := apiServer.LoadTemplateSet(ts.Name, xmlDoc); err != nil {
					slog.Warn("skipping template set", "name", ts.Name, "error", err)
					continue
				}
				slog.Info("loaded template set", "name", ts.Name, "path", ts.Path)
			}

			streamMgr := stream.NewManager(cfg.Namespace)
			streamMgr.LoadConfig(cfg)
			cfg.AddOnChangeListener(func() { streamMgr.LoadConfig(cfg) })
			apiServer.SetStreamManager(streamMgr)
			defer streamMgr.Stop()

			if cfg.Web.UI.Enabled {
				gate := web.NewGate(cfg, configPath)
				apiServer.SetAdminMiddleware(gate.RequireAdmin)
			}

			if err := apiServer.Start(); err != nil {
				return fmt.Errorf("starting api server: %w", err)
			}
			slog.Info("fastcodec listening", "address", apiServer.Address())

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigChan
			slog.Info("shutting down", "signal", sig.String())

			return apiServer.Stop()
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "path to write structured application logs")
	cmd.Flags().StringVar(&traceFile, "trace-file", "", "path to write component-filtered wire trace logs")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	return cmd
}
