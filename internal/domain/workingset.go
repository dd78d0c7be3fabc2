package domain

import "fmt"

// UntitledPlaceholder is shown for targets whose title is not yet known.
const UntitledPlaceholder = "(untitled)"

// Entry is one line of the working set listing. Index is 1-based.
type Entry struct {
	Index int    `json:"index" yaml:"index"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// WorkingSet is an insertion-ordered set of jobs, unique by target URL.
type WorkingSet struct {
	jobs  []*Job
	index map[string]int
}

// NewWorkingSet builds a set from jobs, dropping later duplicates.
func NewWorkingSet(jobs ...*Job) *WorkingSet {
	ws := &WorkingSet{index: make(map[string]int, len(jobs))}
	for _, j := range jobs {
		ws.Insert(j)
	}
	return ws
}

// Add tracks t, returning its job and whether it was newly added.
func (ws *WorkingSet) Add(t Target) (*Job, bool) {
	if j, ok := ws.Find(t); ok {
		return j, false
	}
	j := NewJob(t)
	ws.Insert(j)
	return j, true
}

// Insert appends j unless its target is already tracked.
func (ws *WorkingSet) Insert(j *Job) bool {
	key := j.Target.URL()
	if _, ok := ws.index[key]; ok {
		return false
	}
	ws.index[key] = len(ws.jobs)
	ws.jobs = append(ws.jobs, j)
	return true
}

// Find returns the job tracking t.
func (ws *WorkingSet) Find(t Target) (*Job, bool) {
	i, ok := ws.index[t.URL()]
	if !ok {
		return nil, false
	}
	return ws.jobs[i], true
}

// Len returns the number of tracked jobs.
func (ws *WorkingSet) Len() int {
	return len(ws.jobs)
}

// Jobs returns the jobs in insertion order.
func (ws *WorkingSet) Jobs() []*Job {
	out := make([]*Job, len(ws.jobs))
	copy(out, ws.jobs)
	return out
}

// Job returns the job at the 1-based position pos.
func (ws *WorkingSet) Job(pos int) (*Job, error) {
	if pos < 1 || pos > len(ws.jobs) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrPositionOutOfRange, pos, len(ws.jobs))
	}
	return ws.jobs[pos-1], nil
}

// RemoveByIndex returns a new set without the jobs at the given 1-based
// positions. The receiver is left untouched. All positions are checked
// before anything is removed.
func (ws *WorkingSet) RemoveByIndex(positions ...int) (*WorkingSet, error) {
	drop := make(map[int]bool, len(positions))
	for _, pos := range positions {
		if pos < 1 || pos > len(ws.jobs) {
			return nil, fmt.Errorf("%w: %d (have %d)", ErrPositionOutOfRange, pos, len(ws.jobs))
		}
		drop[pos-1] = true
	}
	kept := make([]*Job, 0, len(ws.jobs))
	for i, j := range ws.jobs {
		if !drop[i] {
			kept = append(kept, j)
		}
	}
	return NewWorkingSet(kept...), nil
}

// RemoveAll returns a new set without the given jobs' targets.
func (ws *WorkingSet) RemoveAll(jobs ...*Job) *WorkingSet {
	drop := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		drop[j.Target.URL()] = true
	}
	kept := make([]*Job, 0, len(ws.jobs))
	for _, j := range ws.jobs {
		if !drop[j.Target.URL()] {
			kept = append(kept, j)
		}
	}
	return NewWorkingSet(kept...)
}

// Entries returns the (index, title, URL) listing shown to users.
func (ws *WorkingSet) Entries() []Entry {
	entries := make([]Entry, len(ws.jobs))
	for i, j := range ws.jobs {
		entries[i] = entryFor(i+1, j)
	}
	return entries
}

func entryFor(index int, j *Job) Entry {
	title := j.Title()
	if title == "" {
		title = UntitledPlaceholder
	}
	return Entry{Index: index, Title: title, URL: j.Target.URL()}
}
