// Package dispatcher runs a batch of jobs through a bounded pool of workers.
package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cwygoda/gather/internal/adapter/process"
	"github.com/cwygoda/gather/internal/adapter/processor"
	"github.com/cwygoda/gather/internal/domain"
	"github.com/cwygoda/gather/internal/metrics"
	"github.com/cwygoda/gather/internal/worker"
)

// Config is the dispatcher's external configuration.
type Config struct {
	Executable  string
	Concurrency int
	MaxAttempts int
	RetryDelay  time.Duration
	Charset     string
	Layout      processor.Layout
}

// Dispatcher admits jobs into at most Concurrency worker slots. Jobs and the
// failure ledger are only mutated by the goroutine calling Run.
type Dispatcher struct {
	cfg     Config
	runner  processor.Runner
	ledger  *domain.FailureLedger
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLedger shares an existing failure ledger.
func WithLedger(l *domain.FailureLedger) Option {
	return func(d *Dispatcher) { d.ledger = l }
}

// WithRunner replaces the process runner.
func WithRunner(r processor.Runner) Option {
	return func(d *Dispatcher) { d.runner = r }
}

// New creates a dispatcher. Concurrency and MaxAttempts below one are raised
// to one.
func New(cfg Config, opts ...Option) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	d := &Dispatcher{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.ledger == nil {
		d.ledger = domain.NewFailureLedger()
	}
	if d.runner == nil {
		d.runner = process.NewRunner(d.logger)
	}
	return d
}

// Ledger returns the failure ledger. It outlives individual runs.
func (d *Dispatcher) Ledger() *domain.FailureLedger {
	return d.ledger
}

type event struct {
	slot    int
	started bool
	result  domain.Result
}

// Run assigns task to every job and runs the outstanding ones, admitting them
// in order. It returns once every admitted job has finished, with the jobs
// that ended FailedFatal. When ctx is cancelled, jobs not yet admitted are
// marked interrupted and ctx's error is returned alongside the failures.
func (d *Dispatcher) Run(ctx context.Context, jobs []*domain.Job, task domain.Task) ([]*domain.Job, error) {
	if d.cfg.Executable == "" {
		return nil, domain.ErrExecutableNotSet
	}

	runID := uuid.NewString()
	log := d.logger.With(zap.String("run_id", runID))

	var (
		pending []*domain.Job
		specs   []worker.Spec
		seen    = make(map[*domain.Job]bool, len(jobs))
	)
	for _, j := range jobs {
		if seen[j] {
			continue
		}
		seen[j] = true
		if !j.Assign(task) {
			continue
		}
		pending = append(pending, j)
		specs = append(specs, worker.Spec{Target: j.Target, Task: j.Task, Info: copyInfo(j.Info)})
	}

	log.Info("run started",
		zap.String("task", string(task)),
		zap.Int("jobs", len(pending)),
		zap.Int("concurrency", d.cfg.Concurrency),
	)

	proc := processor.NewCommandProcessor(d.runner, d.cfg.Executable, d.cfg.Charset, d.cfg.Layout, log)
	w := worker.New(proc, worker.Config{
		MaxAttempts: d.cfg.MaxAttempts,
		RetryDelay:  d.cfg.RetryDelay,
	}, log, d.metrics)

	events := make(chan event)
	go d.admit(ctx, w, specs, events)

	finished := make([]bool, len(pending))
	for ev := range events {
		j := pending[ev.slot]
		if ev.started {
			j.Begin(runID)
			d.metrics.IncActiveWorkers()
			continue
		}
		d.metrics.DecActiveWorkers()
		finished[ev.slot] = true
		d.settle(log, j, ev.result)
	}

	for i, j := range pending {
		if finished[i] {
			continue
		}
		d.settle(log, j, domain.Result{
			Task:    j.Task,
			Outcome: domain.OutcomeFailedTransient,
			Err:     &domain.InterruptedError{Err: context.Cause(ctx)},
		})
	}

	var failed []*domain.Job
	for _, j := range pending {
		if j.Outcome == domain.OutcomeFailedFatal {
			failed = append(failed, j)
		}
	}

	log.Info("run finished",
		zap.Int("jobs", len(pending)),
		zap.Int("failed", len(failed)),
	)
	return failed, ctx.Err()
}

// admit starts one goroutine per spec, never more than Concurrency at once,
// and closes events after the last one reports.
func (d *Dispatcher) admit(ctx context.Context, w *worker.Worker, specs []worker.Spec, events chan<- event) {
	defer close(events)

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			events <- event{slot: i, started: true}
			events <- event{slot: i, result: w.Do(ctx, spec)}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) settle(log *zap.Logger, j *domain.Job, res domain.Result) {
	task := res.Task
	j.Apply(res)
	d.metrics.ObserveOutcome(string(task), string(j.Outcome))

	switch j.Outcome {
	case domain.OutcomeSucceeded:
		d.ledger.Remove(j.Target)
	case domain.OutcomeFailedFatal:
		d.ledger.Add(j)
		log.Warn("job failed",
			zap.String("url", j.Target.URL()),
			zap.String("task", string(j.FailedTask)),
			zap.Int("attempts", j.Attempts),
			zap.String("diagnostic", j.Diagnostic),
		)
	}
}

func copyInfo(info *domain.Info) *domain.Info {
	if info == nil {
		return nil
	}
	c := *info
	return &c
}
