package domain

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// TargetService owns the working set on behalf of front ends. It serialises
// edits and dispatch rounds and persists state after each change. Listings
// are served from a view refreshed after every change, so reads never wait
// for a round in progress.
type TargetService struct {
	mu   sync.Mutex
	repo Repository
	disp Dispatcher
	ws   *WorkingSet

	viewMu   sync.RWMutex
	entries  []Entry
	failures []Failure
}

// NewTargetService creates a service with an empty working set.
func NewTargetService(repo Repository, disp Dispatcher) *TargetService {
	s := &TargetService{
		repo: repo,
		disp: disp,
		ws:   NewWorkingSet(),
	}
	s.refresh()
	return s
}

// Load restores the working set and ledger from the repository. Jobs left
// running by a crashed process are reset to pending first; their count is
// returned.
func (s *TargetService) Load(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()

	recovered, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	ws, err := s.repo.LoadWorkingSet(ctx)
	if err != nil {
		return 0, fmt.Errorf("load working set: %w", err)
	}
	failures, err := s.repo.LoadFailures(ctx)
	if err != nil {
		return 0, fmt.Errorf("load failures: %w", err)
	}

	s.ws = ws
	ledger := s.disp.Ledger()
	ledger.Clear()
	for _, f := range failures {
		t, err := NewTarget(f.URL)
		if err != nil {
			continue
		}
		if j, ok := ws.Find(t); ok {
			ledger.Add(j)
		}
	}
	return recovered, nil
}

// Add validates and tracks rawURLs. Nothing is added if any URL is invalid.
// Already tracked URLs are skipped; the entries of new targets are returned.
func (s *TargetService) Add(ctx context.Context, rawURLs ...string) ([]Entry, error) {
	targets := make([]Target, 0, len(rawURLs))
	for _, raw := range rawURLs {
		t, err := NewTarget(raw)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()

	var added []Entry
	for _, t := range targets {
		j, ok := s.ws.Add(t)
		if ok {
			added = append(added, entryFor(s.ws.Len(), j))
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	return added, s.save(ctx)
}

// List returns the working set listing. During a round it reflects the state
// before the round started.
func (s *TargetService) List() []Entry {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return slices.Clone(s.entries)
}

// Remove stops tracking the jobs at the given 1-based positions. Removed
// jobs also leave the failure ledger.
func (s *TargetService) Remove(ctx context.Context, positions ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()

	next, err := s.ws.RemoveByIndex(positions...)
	if err != nil {
		return err
	}
	ledger := s.disp.Ledger()
	for _, j := range s.ws.Jobs() {
		if _, ok := next.Find(j.Target); !ok {
			ledger.Remove(j.Target)
		}
	}
	s.ws = next
	return s.save(ctx)
}

// RemoveFailed stops tracking every job in the failure ledger and clears it.
func (s *TargetService) RemoveFailed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()

	ledger := s.disp.Ledger()
	failed := ledger.List()
	if len(failed) == 0 {
		return 0, nil
	}
	s.ws = s.ws.RemoveAll(failed...)
	ledger.Clear()
	return len(failed), s.save(ctx)
}

// Run dispatches task over the whole working set and returns the failures of
// this round. State is persisted even when ctx is cancelled mid-run.
func (s *TargetService) Run(ctx context.Context, task Task) ([]Failure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()

	failed, err := s.disp.Run(ctx, s.ws.Jobs(), task)
	if err != nil && !IsInterrupted(err) {
		return nil, err
	}
	// An interrupted round still changed job state.
	if serr := s.save(context.WithoutCancel(ctx)); serr != nil {
		return nil, serr
	}
	return FailuresOf(failed), err
}

// Failures returns the failure ledger report. During a round it reflects the
// ledger before the round started.
func (s *TargetService) Failures() []Failure {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return slices.Clone(s.failures)
}

// ClearFailures empties the failure ledger.
func (s *TargetService) ClearFailures(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.refresh()
	s.disp.Ledger().Clear()
	return s.save(ctx)
}

// refresh rebuilds the read view. Callers hold mu.
func (s *TargetService) refresh() {
	entries := s.ws.Entries()
	failures := s.disp.Ledger().Report()

	s.viewMu.Lock()
	defer s.viewMu.Unlock()
	s.entries = entries
	s.failures = failures
}

func (s *TargetService) save(ctx context.Context) error {
	if err := s.repo.SaveWorkingSet(ctx, s.ws); err != nil {
		return fmt.Errorf("save working set: %w", err)
	}
	if err := s.repo.SaveFailures(ctx, s.disp.Ledger().Report()); err != nil {
		return fmt.Errorf("save failures: %w", err)
	}
	return nil
}
