package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	logger "github.com/konstantinfoerster/doc-analyzer-go/internal/log"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/server"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	configPath string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:           "doc-analyzer-server",
	Short:         "Local web ui to upload documents for analysis",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./configs/application.yaml",
		"path to the configuration file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the configuration")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(configPath, cmd.Flags().Changed("config"), ".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration %w", err)
	}
	if err := logger.Setup(cfg.Logging.Format, cfg.Logging.LevelOrDefault()); err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	log.Info().Msgf("OS\t\t %s", runtime.GOOS)
	log.Info().Msgf("ARCH\t\t %s", runtime.GOARCH)

	c := &http.Client{
		Timeout: cfg.Analysis.Client.Timeout,
	}
	analyzer := analysis.NewClient(cfg.Analysis, web.NewClient(cfg.Analysis.Client, c))
	log.Info().Msgf("Using analysis service %s", analyzer.Endpoint())
	client := upload.NewClient(analyzer, cfg.Analysis.SubmitTimeoutOrDefault())

	g, ctx := errgroup.WithContext(cmd.Context())
	srv := server.New(ctx, cfg.Analysis, client)

	g.Go(func() error {
		return srv.Start(cfg.Server.AddrOrDefault())
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(sCtx)
	})

	return g.Wait()
}

func main() {
	logger.SetupConsoleLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}
