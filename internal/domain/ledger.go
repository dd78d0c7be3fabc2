package domain

// Failure is one line of the failure report.
type Failure struct {
	URL        string `json:"url" yaml:"url"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Task       Task   `json:"task" yaml:"task"`
	Diagnostic string `json:"diagnostic" yaml:"diagnostic"`
	RunID      string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// FailureLedger holds jobs whose latest run ended fatally, once per target,
// in the order they first failed. It is not safe for concurrent use.
type FailureLedger struct {
	jobs  []*Job
	index map[string]int
}

// NewFailureLedger returns an empty ledger.
func NewFailureLedger() *FailureLedger {
	return &FailureLedger{index: make(map[string]int)}
}

// Add records j. A target already present keeps its position but points at j.
// It reports whether the target was new to the ledger.
func (l *FailureLedger) Add(j *Job) bool {
	key := j.Target.URL()
	if i, ok := l.index[key]; ok {
		l.jobs[i] = j
		return false
	}
	l.index[key] = len(l.jobs)
	l.jobs = append(l.jobs, j)
	return true
}

// Remove drops t from the ledger, reporting whether it was present.
func (l *FailureLedger) Remove(t Target) bool {
	i, ok := l.index[t.URL()]
	if !ok {
		return false
	}
	l.jobs = append(l.jobs[:i], l.jobs[i+1:]...)
	delete(l.index, t.URL())
	for k := i; k < len(l.jobs); k++ {
		l.index[l.jobs[k].Target.URL()] = k
	}
	return true
}

// Contains reports whether t is in the ledger.
func (l *FailureLedger) Contains(t Target) bool {
	_, ok := l.index[t.URL()]
	return ok
}

// List returns the ledgered jobs in order.
func (l *FailureLedger) List() []*Job {
	out := make([]*Job, len(l.jobs))
	copy(out, l.jobs)
	return out
}

// Len returns the number of ledgered jobs.
func (l *FailureLedger) Len() int {
	return len(l.jobs)
}

// Clear empties the ledger.
func (l *FailureLedger) Clear() {
	l.jobs = nil
	l.index = make(map[string]int)
}

// Report returns the (URL, failed task) view of the ledger.
func (l *FailureLedger) Report() []Failure {
	return FailuresOf(l.jobs)
}

// FailuresOf renders jobs as failure report lines.
func FailuresOf(jobs []*Job) []Failure {
	out := make([]Failure, len(jobs))
	for i, j := range jobs {
		out[i] = Failure{
			URL:        j.Target.URL(),
			Title:      j.Title(),
			Task:       j.FailedTask,
			Diagnostic: j.Diagnostic,
			RunID:      j.RunID,
		}
	}
	return out
}
