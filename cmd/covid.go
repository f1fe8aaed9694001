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
	covidInput  string
	covidOutput string
)

var covidCmd = &cobra.Command{
	Use:   "covid",
	Short: "Label each classified patent as covid or non-covid",
	Long:  "Loads the classified corpus and labels each patent by whether its description addresses pandemic-era education needs. Ambiguous and failed judgments default to non-covid.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, err := newClassifier()
		if err != nil {
			return err
		}

		inPath := covidInput
		if inPath == "" {
			inPath = cfg.Store.Path(cfg.Store.ClassifiedFile)
		}
		records, err := fetcher.LoadCorpus(inPath)
		if err != nil {
			return eris.Wrap(err, "load classified corpus")
		}
		zap.L().Info("covid labeling starting", zap.Int("patents", len(records)))

		orch := pipeline.NewThrottled(pipeline.OrchestratorConfig{
			MaxInFlight: cfg.Covid.MaxConcurrent,
			RatePerSec:  cfg.Covid.RatePerSec,
		}, pipeline.CovidAnnotator(classifier))

		sum, err := pipeline.Drive(ctx, orch, records, nil, nil, pipeline.DriverOptions{ProgressEvery: 25})
		if err != nil {
			return eris.Wrap(err, "covid")
		}

		covid := 0
		for _, rec := range records {
			if rec.IsCovid == classify.CovidPositive {
				covid++
			}
		}

		outPath := covidOutput
		if outPath == "" {
			outPath = cfg.Store.Path(cfg.Store.FinalFile)
		}
		if err := fetcher.SaveCorpus(outPath, records); err != nil {
			return eris.Wrap(err, "write final corpus")
		}

		zap.L().Info("covid labeling complete",
			zap.Int("labeled", sum.Succeeded),
			zap.Int("covid", covid),
			zap.Int("shutdown", sum.Shutdown),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	covidCmd.Flags().StringVar(&covidInput, "input", "", "path to the classified corpus file (default from config)")
	covidCmd.Flags().StringVar(&covidOutput, "output", "", "path for the final corpus file (default from config)")
	rootCmd.AddCommand(covidCmd)
}
