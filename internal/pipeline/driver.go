package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/model"
	"github.com/edtech-lab/patent-cli/internal/resilience"
)

// Sink receives batches of completed records for persistence.
type Sink func(batch []*model.Patent) error

// DriverOptions tune how results are buffered and which ones reach the sink.
type DriverOptions struct {
	// FlushEvery flushes the buffer to the sink once it holds this many
	// records. Zero means a single flush at the end of the run.
	FlushEvery int
	// KeepFailures persists failed records with their Error field set
	// instead of dropping them. Used by collect so a failed scrape still
	// claims its identity and is not retried on rerun.
	KeepFailures bool
	// ProgressEvery logs a progress line after this many completions.
	// Zero disables progress logging.
	ProgressEvery int
}

// Summary counts the outcomes of a driver run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Shutdown  int
}

// Drive streams records through orch and hands completed ones to the sink.
// A nil sink skips persistence; stages that annotate records in place and
// rewrite a whole corpus afterwards use that mode.
// Records that hit shutdown are never persisted, so a rerun picks them up.
// Failures are recorded in flog and, with KeepFailures, persisted with an
// error annotation. Returns the summary and the first sink error, if any.
func Drive(ctx context.Context, orch Orchestrator, records []*model.Patent, sink Sink, flog *resilience.FailureLog, opts DriverOptions) (Summary, error) {
	sum := Summary{Total: len(records)}
	buf := make([]*model.Patent, 0, max(opts.FlushEvery, 1))

	flush := func() error {
		if sink == nil || len(buf) == 0 {
			return nil
		}
		if err := sink(buf); err != nil {
			return err
		}
		buf = buf[:0]
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := orch.Run(ctx, records)

	// abort unblocks the orchestrator's in-flight sends before returning,
	// so an early exit never strands its goroutines.
	abort := func(err error) (Summary, error) {
		cancel()
		for range results {
		}
		return sum, err
	}

	done := 0
	for res := range results {
		done++
		switch {
		case res.Err == nil:
			sum.Succeeded++
			buf = append(buf, res.Record)
		case errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded):
			sum.Shutdown++
		default:
			sum.Failed++
			if flog != nil {
				flog.Add(res.Record.Key(), res.Record.URL, res.Err)
			}
			if opts.KeepFailures {
				res.Record.Error = res.Err.Error()
				buf = append(buf, res.Record)
			}
		}
		if opts.ProgressEvery > 0 && done%opts.ProgressEvery == 0 {
			zap.L().Info("progress",
				zap.Int("done", done),
				zap.Int("total", sum.Total),
				zap.Int("failed", sum.Failed))
		}
		if opts.FlushEvery > 0 && len(buf) >= opts.FlushEvery {
			if err := flush(); err != nil {
				return abort(err)
			}
		}
	}
	if err := flush(); err != nil {
		return sum, err
	}

	zap.L().Info("stage complete",
		zap.Int("total", sum.Total),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("shutdown", sum.Shutdown))
	return sum, nil
}

// Dedupe keeps the first record for each resolvable key and drops the rest.
// Records with no resolvable key are dropped and counted separately.
func Dedupe(records []*model.Patent) (kept []*model.Patent, duplicates, keyless int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]*model.Patent, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if key == "" {
			keyless++
			zap.L().Warn("record has no resolvable identity",
				zap.String("url", rec.URL),
				zap.String("csv_title", rec.CSVTitle))
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rec)
	}
	return kept, duplicates, keyless
}

// FilterProcessed removes records whose key already appears in processed.
func FilterProcessed(records []*model.Patent, processed map[string]struct{}) (kept []*model.Patent, skipped int) {
	kept = make([]*model.Patent, 0, len(records))
	for _, rec := range records {
		if _, ok := processed[rec.Key()]; ok {
			skipped++
			continue
		}
		kept = append(kept, rec)
	}
	return kept, skipped
}
