package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/chunkstore"
	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/pipeline"
	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/internal/scraper"
)

var (
	collectInput  string
	collectOutput string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape abstracts for every patent in the search exports",
	Long:  "Reads Google Patents search exports (CSV/XLSX), scrapes each result page for its abstract, and appends records to the chunked corpus. Already-collected patents are skipped, so the command is safe to rerun.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inputDir := collectInput
		if inputDir == "" {
			inputDir = cfg.Input.Dir
		}
		outputDir := collectOutput
		if outputDir == "" {
			outputDir = cfg.Store.Dir
		}

		rows, err := fetcher.LoadAllExports(inputDir)
		if err != nil {
			return eris.Wrap(err, "load search exports")
		}

		seeds, duplicates, keyless := pipeline.Dedupe(pipeline.SeedFromRows(rows))
		store := chunkstore.New(outputDir, cfg.Store.ChunkPrefix, cfg.Store.ChunkSize)
		processed, err := store.LoadProcessedKeys()
		if err != nil {
			return eris.Wrap(err, "load processed keys")
		}
		todo, skipped := pipeline.FilterProcessed(seeds, processed)

		zap.L().Info("collect starting",
			zap.Int("export_rows", len(rows)),
			zap.Int("duplicates", duplicates),
			zap.Int("keyless", keyless),
			zap.Int("already_collected", skipped),
			zap.Int("to_scrape", len(todo)),
		)
		if len(todo) == 0 {
			zap.L().Info("nothing to scrape")
			return nil
		}

		newScraper := func() *scraper.Scraper {
			return scraper.New(fetcher.NewHTTPClient(fetcher.HTTPOptions{
				Timeout: time.Duration(cfg.Collect.TimeoutSecs) * time.Second,
			}))
		}
		orch := pipeline.NewWorkerPool(pipeline.OrchestratorConfig{
			MaxInFlight: cfg.Collect.Workers,
			RatePerSec:  cfg.Collect.RatePerSec,
		}, pipeline.CollectAnnotator(newScraper, resilience.DefaultRetryConfig()))

		// Failed scrapes are persisted with an error annotation so they
		// still claim their identity and are not endlessly re-attempted.
		sum, err := pipeline.Drive(ctx, orch, todo, store.Append, nil, pipeline.DriverOptions{
			FlushEvery:    cfg.Store.ChunkSize,
			KeepFailures:  true,
			ProgressEvery: 50,
		})
		if err != nil {
			return eris.Wrap(err, "collect")
		}
		if sum.Shutdown > 0 {
			zap.L().Warn("collect interrupted; rerun to pick up remaining patents",
				zap.Int("remaining", sum.Shutdown))
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().StringVar(&collectInput, "input", "", "directory holding gp-search-*.csv/.xlsx exports (default from config)")
	collectCmd.Flags().StringVar(&collectOutput, "output", "", "directory for the chunked corpus (default from config)")
	rootCmd.AddCommand(collectCmd)
}
