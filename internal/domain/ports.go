package domain

import "context"

// Repository is the driven port for persisting the working set and ledger.
type Repository interface {
	LoadWorkingSet(ctx context.Context) (*WorkingSet, error)
	SaveWorkingSet(ctx context.Context, ws *WorkingSet) error
	LoadFailures(ctx context.Context) ([]Failure, error)
	SaveFailures(ctx context.Context, failures []Failure) error
	RecoverStale(ctx context.Context) (int64, error)
}

// Dispatcher runs tasks for a batch of jobs under a concurrency cap.
type Dispatcher interface {
	Run(ctx context.Context, jobs []*Job, task Task) ([]*Job, error)
	Ledger() *FailureLedger
}
