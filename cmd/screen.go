package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/chunkstore"
	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/model"
	"github.com/edtech-lab/patent-cli/internal/pipeline"
)

var screenOutput string

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen collected abstracts for teaching content",
	Long:  "Loads the chunked corpus, asks Claude whether each abstract pertains to the educational process, and writes the education-relevant records to a single consolidated file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, err := newClassifier()
		if err != nil {
			return err
		}

		store := chunkstore.New(cfg.Store.Dir, cfg.Store.ChunkPrefix, cfg.Store.ChunkSize)
		records, err := store.LoadAll()
		if err != nil {
			return eris.Wrap(err, "load corpus")
		}

		// Only records that actually have an abstract are worth an API call.
		candidates := make([]*model.Patent, 0, len(records))
		for _, rec := range records {
			if rec.AbstractText != "" && rec.Error == "" {
				candidates = append(candidates, rec)
			}
		}
		zap.L().Info("screen starting",
			zap.Int("corpus", len(records)),
			zap.Int("with_abstract", len(candidates)),
		)

		orch := pipeline.NewThrottled(pipeline.OrchestratorConfig{
			MaxInFlight: cfg.Screen.MaxConcurrent,
			RatePerSec:  cfg.Screen.RatePerSec,
		}, pipeline.ScreenAnnotator(classifier))

		sum, err := pipeline.Drive(ctx, orch, candidates, nil, nil, pipeline.DriverOptions{ProgressEvery: 50})
		if err != nil {
			return eris.Wrap(err, "screen")
		}

		teaching := make([]*model.Patent, 0, len(candidates))
		for _, rec := range candidates {
			if rec.TeachingContent != nil && *rec.TeachingContent {
				teaching = append(teaching, rec)
			}
		}

		outPath := screenOutput
		if outPath == "" {
			outPath = cfg.Store.Path(cfg.Store.ScreenedFile)
		}
		if err := fetcher.SaveCorpus(outPath, teaching); err != nil {
			return eris.Wrap(err, "write screened corpus")
		}

		zap.L().Info("screen complete",
			zap.Int("screened", sum.Succeeded),
			zap.Int("teaching_content", len(teaching)),
			zap.Int("shutdown", sum.Shutdown),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	screenCmd.Flags().StringVar(&screenOutput, "output", "", "path for the screened corpus file (default from config)")
	rootCmd.AddCommand(screenCmd)
}
