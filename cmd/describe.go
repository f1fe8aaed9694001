package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/model"
	"github.com/edtech-lab/patent-cli/internal/pipeline"
	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/internal/scraper"
)

var (
	describeInput  string
	describeOutput string
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Fetch full details for the screened patents",
	Long:  "Loads the screened corpus, fetches each patent's full detail page (description, claims, classifications, citations), and writes the enriched corpus. Patents whose pages cannot be fetched go to a failure side file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inPath := describeInput
		if inPath == "" {
			inPath = cfg.Store.Path(cfg.Store.ScreenedFile)
		}
		records, err := fetcher.LoadCorpus(inPath)
		if err != nil {
			return eris.Wrap(err, "load screened corpus")
		}
		zap.L().Info("describe starting", zap.Int("patents", len(records)))

		s := scraper.New(fetcher.NewHTTPClient(fetcher.HTTPOptions{
			Timeout: time.Duration(cfg.Describe.TimeoutSecs) * time.Second,
		}))
		orch := pipeline.NewThrottled(pipeline.OrchestratorConfig{
			MaxInFlight: cfg.Describe.MaxConcurrent,
			RatePerSec:  cfg.Describe.RatePerSec,
		}, pipeline.DescribeAnnotator(s, resilience.DefaultRetryConfig()))

		flog := resilience.NewFailureLog("describe")
		var detailed []*model.Patent
		sum, err := pipeline.Drive(ctx, orch, records, func(batch []*model.Patent) error {
			detailed = append(detailed, batch...)
			return nil
		}, flog, pipeline.DriverOptions{ProgressEvery: 25})
		if err != nil {
			return eris.Wrap(err, "describe")
		}

		outPath := describeOutput
		if outPath == "" {
			outPath = cfg.Store.Path(cfg.Store.DetailedFile)
		}
		if err := fetcher.SaveCorpus(outPath, detailed); err != nil {
			return eris.Wrap(err, "write detailed corpus")
		}
		if flog.Len() > 0 {
			failedPath := cfg.Store.Path(cfg.Store.FailedFile)
			if err := flog.Flush(failedPath); err != nil {
				return eris.Wrap(err, "write failure log")
			}
			zap.L().Warn("some patents could not be described",
				zap.Int("failed", flog.Len()),
				zap.String("failure_file", failedPath),
			)
		}

		zap.L().Info("describe complete",
			zap.Int("detailed", sum.Succeeded),
			zap.Int("failed", sum.Failed),
			zap.Int("shutdown", sum.Shutdown),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeInput, "input", "", "path to the screened corpus file (default from config)")
	describeCmd.Flags().StringVar(&describeOutput, "output", "", "path for the detailed corpus file (default from config)")
	rootCmd.AddCommand(describeCmd)
}
