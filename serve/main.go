// Command arenabridged is the arena bridge daemon.
// It listens on a loopback TCP port for the contest arena client, serves
// generated task sources and turns delivered tasks into source stubs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	"github.com/Paranoid-AF/arenabridge/bridge"
	"github.com/Paranoid-AF/arenabridge/editor"
	"github.com/Paranoid-AF/arenabridge/workspace"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "arenabridged",
		Short:         "Bridge between the contest arena client and your editor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), configCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	var projectDir string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve a project until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, projectDir)
		},
	}
	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "project root directory")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every request and response")
	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// run serves projectDir until ctx is cancelled.
func run(ctx context.Context, projectDir string) error {
	cfg, err := arenabridge.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	for _, w := range arenabridge.ValidateConfig(cfg) {
		slog.Warn("config", "warning", w)
	}

	project, err := workspace.LoadProject(projectDir)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := bridge.NewMetrics(promReg)

	loop := editor.NewLoop(cfg.Editor.QueueSize)
	registry := bridge.NewRegistry(bridge.Options{
		Addr:           arenabridge.ResolveAddr(cfg),
		SessionTimeout: arenabridge.SessionTimeout(cfg),
		MaxStringBytes: cfg.Bridge.MaxStringBytes,
		Metrics:        metrics,
	}, bridge.DefaultHandlerFactory(
		loop,
		editor.NewLauncher(arenabridge.ResolveOpenCommand(cfg)),
		bridge.WithPendingTTL(arenabridge.PendingTTL(cfg)),
		bridge.WithMetrics(metrics),
	))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loop.Run(ctx)
		return nil
	})
	g.Go(func() error {
		if err := registry.Start(ctx, project); err != nil {
			return err
		}
		slog.Info("ready", "project", project.ID(), "output", project.OutputDir(), "tasks", project.DefaultDir())
		<-ctx.Done()
		slog.Info("shutting down")
		return nil
	})

	if addr := arenabridge.ResolveMetricsAddr(cfg); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux}
		g.Go(func() error {
			slog.Info("metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

func configCmd() *cobra.Command {
	var defaultsOnly bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and any warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := arenabridge.DefaultConfig()
			if !defaultsOnly {
				var err error
				if cfg, err = arenabridge.LoadConfig(); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			for _, w := range arenabridge.ValidateConfig(cfg) {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaultsOnly, "defaults", false, "print the built-in defaults instead")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "arenabridged", Version)
		},
	}
}
