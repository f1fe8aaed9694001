// Package pipeline runs stage annotators over patent records with bounded
// concurrency and streams one result per input record.
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/edtech-lab/patent-cli/internal/model"
)

// AnnotateFunc mutates a single record in place. A non-nil error marks the
// record as failed; the driver decides whether it is persisted or only logged.
type AnnotateFunc func(ctx context.Context, p *model.Patent) error

// Result pairs a record with its annotation outcome. A context error means the
// record was never admitted (shutdown), not that the annotator failed.
type Result struct {
	Record *model.Patent
	Err    error
}

// Orchestrator fans records out to annotators and streams results back as
// they complete. The channel closes after every input has produced exactly
// one result.
type Orchestrator interface {
	Run(ctx context.Context, records []*model.Patent) <-chan Result
}

// OrchestratorConfig bounds in-flight work and the shared request rate.
// RatePerSec <= 0 disables rate limiting.
type OrchestratorConfig struct {
	MaxInFlight int
	RatePerSec  float64
	Burst       int
}

func (c OrchestratorConfig) limiter() *rate.Limiter {
	if c.RatePerSec <= 0 {
		return nil
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RatePerSec), burst)
}

func (c OrchestratorConfig) inFlight() int {
	if c.MaxInFlight < 1 {
		return 1
	}
	return c.MaxInFlight
}

// throttled runs every record through a single annotator, bounded by an
// errgroup limit and a shared limiter. Suited to stages whose annotator is
// safe for concurrent use.
type throttled struct {
	cfg      OrchestratorConfig
	annotate AnnotateFunc
	limiter  *rate.Limiter
}

// NewThrottled builds an orchestrator around one shared annotator.
func NewThrottled(cfg OrchestratorConfig, annotate AnnotateFunc) Orchestrator {
	return &throttled{cfg: cfg, annotate: annotate, limiter: cfg.limiter()}
}

func (o *throttled) Run(ctx context.Context, records []*model.Patent) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		g := new(errgroup.Group)
		g.SetLimit(o.cfg.inFlight())
		for _, rec := range records {
			if ctx.Err() != nil {
				out <- Result{Record: rec, Err: ctx.Err()}
				continue
			}
			rec := rec
			g.Go(func() error {
				out <- annotateOne(ctx, o.annotate, o.limiter, rec)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never return errors
	}()
	return out
}

// workerPool runs a fixed set of workers, each owning its own annotator from
// the factory. Suited to stages whose annotator holds per-worker state such
// as an HTTP client.
type workerPool struct {
	cfg       OrchestratorConfig
	newWorker func() AnnotateFunc
	limiter   *rate.Limiter
}

// NewWorkerPool builds an orchestrator with cfg.MaxInFlight workers. Each
// worker calls newWorker once and reuses the returned annotator.
func NewWorkerPool(cfg OrchestratorConfig, newWorker func() AnnotateFunc) Orchestrator {
	return &workerPool{cfg: cfg, newWorker: newWorker, limiter: cfg.limiter()}
}

func (o *workerPool) Run(ctx context.Context, records []*model.Patent) <-chan Result {
	out := make(chan Result)
	in := make(chan *model.Patent)

	var wg sync.WaitGroup
	for i := 0; i < o.cfg.inFlight(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			annotate := o.newWorker()
			for rec := range in {
				out <- annotateOne(ctx, annotate, o.limiter, rec)
			}
		}()
	}

	go func() {
		defer close(out)
		for i, rec := range records {
			select {
			case in <- rec:
			case <-ctx.Done():
				close(in)
				for _, left := range records[i:] {
					out <- Result{Record: left, Err: ctx.Err()}
				}
				wg.Wait()
				return
			}
		}
		close(in)
		wg.Wait()
	}()
	return out
}

// annotateOne applies the shared admission rules: no work after shutdown,
// and a limiter wait before each call.
func annotateOne(ctx context.Context, annotate AnnotateFunc, limiter *rate.Limiter, rec *model.Patent) Result {
	if ctx.Err() != nil {
		return Result{Record: rec, Err: ctx.Err()}
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			if ce := ctx.Err(); ce != nil {
				err = ce
			}
			return Result{Record: rec, Err: err}
		}
	}
	if err := annotate(ctx, rec); err != nil {
		zap.L().Debug("annotation failed",
			zap.String("patent_id", rec.Key()),
			zap.Error(err))
		return Result{Record: rec, Err: err}
	}
	return Result{Record: rec}
}
