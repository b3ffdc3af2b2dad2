package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/distrihub/mcp-proxy/internal/adapter/inbound/http"
	"github.com/distrihub/mcp-proxy/internal/config"
	"github.com/distrihub/mcp-proxy/internal/proxy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the aggregating proxy",
	Long: `Start the aggregating proxy.

Loads the config file, probes every configured downstream server for its
tools and resources, then serves the aggregated catalog and tools/call
dispatch over HTTP until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info("config loaded", "file", cfgFile, "servers", len(cfg.Servers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop() // Restore default: a second Ctrl+C forces an immediate exit.
	}()

	p := proxy.New(cfg, logger)
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("error closing downstream sessions", "error", err)
		}
	}()

	// Built before Initialize so its metrics wiring observes the startup
	// probe: NewHTTPTransport wires the proxy's metrics recorder as part of
	// construction.
	transport := httpadapter.NewHTTPTransport(p,
		httpadapter.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		httpadapter.WithLogger(logger),
	)

	if err := p.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	snapshot := p.Catalog().Snapshot()
	logger.Info("catalog probed", "servers", len(snapshot))

	logger.Info("mcp-proxy starting", "addr", fmt.Sprintf(":%d", cfg.Port))
	if err := transport.Start(ctx); err != nil {
		return fmt.Errorf("http transport error: %w", err)
	}

	logger.Info("mcp-proxy stopped")
	return nil
}
