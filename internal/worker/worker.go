// Package worker runs one job's task to a terminal outcome, retrying
// transient failures.
package worker

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/cwygoda/gather/internal/domain"
	"github.com/cwygoda/gather/internal/metrics"
)

// Processor performs single attempts against the external tool.
type Processor interface {
	FetchInfo(ctx context.Context, url string) (domain.Info, error)
	Download(ctx context.Context, url string, info domain.Info) error
}

// Config controls retry behavior.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Spec is the read-only snapshot of a job handed to a worker.
type Spec struct {
	Target domain.Target
	Task   domain.Task
	Info   *domain.Info
}

// Worker executes specs. It never touches domain.Job; results travel back
// to the caller as values.
type Worker struct {
	proc    Processor
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a worker. MaxAttempts below one is raised to one.
func New(proc Processor, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		proc:    proc,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Do runs spec's task. Download fetches info first when the spec carries
// none; each step gets its own attempt budget. Only the last failing
// attempt's error is reported.
func (w *Worker) Do(ctx context.Context, spec Spec) domain.Result {
	res := domain.Result{Task: spec.Task}
	if spec.Task == domain.TaskNone {
		res.Outcome = domain.OutcomeSucceeded
		return res
	}

	url := spec.Target.URL()
	log := w.logger.With(zap.String("url", url), zap.String("task", string(spec.Task)))

	info := spec.Info
	if spec.Task == domain.TaskFetchInfo || info == nil {
		var fetched domain.Info
		attempts, err := w.attempt(ctx, log, domain.TaskFetchInfo, func(ctx context.Context) error {
			var err error
			fetched, err = w.proc.FetchInfo(ctx, url)
			return err
		})
		res.Attempts = attempts
		if err != nil {
			return w.fail(log, res, domain.TaskFetchInfo, err)
		}
		info = &fetched
		res.Info = info
		if spec.Task == domain.TaskFetchInfo {
			res.Outcome = domain.OutcomeSucceeded
			return res
		}
	}

	attempts, err := w.attempt(ctx, log, domain.TaskDownload, func(ctx context.Context) error {
		return w.proc.Download(ctx, url, *info)
	})
	res.Attempts = attempts
	if err != nil {
		return w.fail(log, res, domain.TaskDownload, err)
	}
	res.Downloaded = true
	res.Outcome = domain.OutcomeSucceeded
	return res
}

// attempt calls fn until it succeeds, fails non-transiently, ctx ends, or the
// budget is spent. It returns the number of calls made.
func (w *Worker) attempt(ctx context.Context, log *zap.Logger, task domain.Task, fn func(context.Context) error) (int, error) {
	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			start := time.Now()
			err := fn(ctx)
			w.metrics.ObserveAttempt(string(task), time.Since(start))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(w.cfg.MaxAttempts)),
		retry.Delay(w.cfg.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return domain.IsTransient(err) && ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("attempt failed",
				zap.String("step", string(task)),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	return attempts, err
}

func (w *Worker) fail(log *zap.Logger, res domain.Result, step domain.Task, err error) domain.Result {
	res.Err = err
	res.FailedTask = step
	res.Outcome = domain.Classify(err, res.Attempts, w.cfg.MaxAttempts)

	fields := []zap.Field{
		zap.String("step", string(step)),
		zap.Int("attempts", res.Attempts),
		zap.String("diagnostic", domain.Diagnostic(err)),
	}
	if res.Outcome == domain.OutcomeFailedFatal {
		log.Debug("task failed", fields...)
	} else {
		log.Debug("task interrupted", fields...)
	}
	return res
}
