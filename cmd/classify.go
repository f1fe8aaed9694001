package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/classify"
	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/pipeline"
)

var (
	classifyInput  string
	classifyOutput string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Assign a technology class to each detailed patent",
	Long:  "Loads the detailed corpus, classifies each patent's description into the education-technology taxonomy, and writes the full corpus back with a class and reason on every record. Interrupted runs mark unprocessed records instead of dropping them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, err := newClassifier()
		if err != nil {
			return err
		}

		inPath := classifyInput
		if inPath == "" {
			inPath = cfg.Store.Path(cfg.Store.DetailedFile)
		}
		records, err := fetcher.LoadCorpus(inPath)
		if err != nil {
			return eris.Wrap(err, "load detailed corpus")
		}
		zap.L().Info("classify starting", zap.Int("patents", len(records)))

		orch := pipeline.NewThrottled(pipeline.OrchestratorConfig{
			MaxInFlight: cfg.Classify.MaxConcurrent,
			RatePerSec:  cfg.Classify.RatePerSec,
		}, pipeline.ClassifyAnnotator(classifier))

		sum, err := pipeline.Drive(ctx, orch, records, nil, nil, pipeline.DriverOptions{ProgressEvery: 25})
		if err != nil {
			return eris.Wrap(err, "classify")
		}

		// Every record goes to the output, including ones an interrupt
		// left untouched. Mark those explicitly so reruns can find them.
		if sum.Shutdown > 0 {
			for _, rec := range records {
				if rec.TechnologyClass == "" {
					rec.TechnologyClass = classify.ClassShutdown
					rec.Reason = "Shutdown requested"
				}
			}
		}

		outPath := classifyOutput
		if outPath == "" {
			outPath = cfg.Store.Path(cfg.Store.ClassifiedFile)
		}
		if err := fetcher.SaveCorpus(outPath, records); err != nil {
			return eris.Wrap(err, "write classified corpus")
		}

		zap.L().Info("classify complete",
			zap.Int("classified", sum.Succeeded),
			zap.Int("shutdown", sum.Shutdown),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "path to the detailed corpus file (default from config)")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "", "path for the classified corpus file (default from config)")
	rootCmd.AddCommand(classifyCmd)
}
