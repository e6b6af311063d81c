package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/konstantinfoerster/doc-analyzer-go/internal/analysis"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/config"
	logger "github.com/konstantinfoerster/doc-analyzer-go/internal/log"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/report"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/storage"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/timer"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/upload"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/view"
	"github.com/konstantinfoerster/doc-analyzer-go/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	format     string
	save       bool
	stdinName  string
)

var rootCmd = &cobra.Command{
	Use:   "doc-analyzer [flags] <file>",
	Short: "Generates questions and flashcards for a document",
	Long: `Uploads the document to the analysis service and prints the generated
questions and flashcards. Use "-" to read the document from stdin.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./configs/application.yaml",
		"path to the configuration file")
	rootCmd.Flags().StringVarP(&format, "format", "f", string(report.FormatText),
		fmt.Sprintf("output format, one of %v", report.Formats()))
	rootCmd.Flags().BoolVar(&save, "save", false, "store the result in the storage directory")
	rootCmd.Flags().StringVar(&stdinName, "name", "stdin", "document name used when reading from stdin")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configPath, cmd.Flags().Changed("config"), ".env")
	if err != nil {
		return fmt.Errorf("failed to load configuration %w", err)
	}
	if err := logger.Setup(cfg.Logging.Format, cfg.Logging.LevelOrDefault()); err != nil {
		return err
	}

	outFormat, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	log.Debug().Msgf("OS\t\t %s", runtime.GOOS)
	log.Debug().Msgf("ARCH\t\t %s", runtime.GOARCH)
	analyzer := newAnalyzer(cfg.Analysis)
	log.Info().Msgf("Using analysis service %s", analyzer.Endpoint())

	doc, err := openDocument(cmd.InOrStdin(), args[0], cfg.Analysis.MaxFileSize)
	if err != nil {
		return err
	}

	defer timer.TimeTrack(time.Now(), "analysis")

	client := upload.NewClient(analyzer, cfg.Analysis.SubmitTimeoutOrDefault())
	defer client.Close()

	unsubscribe := client.Subscribe(func(s upload.State) {
		if s.Loading() {
			log.Info().Str("document", s.Document).Msg(view.ProcessingText)
		}
	})
	defer unsubscribe()

	if err := client.Submit(cmd.Context(), doc); err != nil {
		if rErr := view.RenderText(cmd.ErrOrStderr(), view.NewPage(client.State())); rErr != nil {
			log.Error().Err(rErr).Msg("failed to render result")
		}

		return err
	}

	rep := report.New(doc.Name, client.State().Result())
	if err := report.Encode(cmd.OutOrStdout(), rep, outFormat); err != nil {
		return fmt.Errorf("failed to write result %w", err)
	}

	if save {
		return saveReport(cfg.Storage, rep, outFormat)
	}

	return nil
}

func newAnalyzer(cfg config.Analysis) *analysis.Client {
	c := &http.Client{
		Timeout: cfg.Client.Timeout,
	}

	return analysis.NewClient(cfg, web.NewClient(cfg.Client, c))
}

func openDocument(stdin io.Reader, path string, maxSize int64) (*analysis.Document, error) {
	if path != "-" {
		return analysis.OpenFile(path, maxSize)
	}

	r := stdin
	if maxSize > 0 {
		r = io.LimitReader(stdin, maxSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin %w", err)
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", analysis.ErrFileTooLarge, stdinName, maxSize)
	}

	return analysis.NewDocument(stdinName, content), nil
}

func saveReport(cfg config.Storage, rep report.Report, f report.Format) error {
	store, err := storage.NewLocalStorage(cfg)
	if err != nil {
		return err
	}

	stored, err := report.NewArchive(store).Save(rep, f)
	if err != nil {
		return err
	}
	log.Info().Msgf("Result saved to %s", stored.AbsolutePath)

	return nil
}

func main() {
	logger.SetupConsoleLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(1)
	}
}
