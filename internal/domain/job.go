package domain

import "fmt"

// Task is the operation requested for a job.
type Task string

const (
	TaskNone      Task = ""
	TaskFetchInfo Task = "info"
	TaskDownload  Task = "download"
)

// ParseTask converts user input into a Task.
func ParseTask(s string) (Task, error) {
	switch Task(s) {
	case TaskNone, TaskFetchInfo, TaskDownload:
		return Task(s), nil
	}
	return TaskNone, fmt.Errorf("unknown task %q", s)
}

// Outcome is the state of a job within a dispatch round.
type Outcome string

const (
	OutcomePending         Outcome = "pending"
	OutcomeRunning         Outcome = "running"
	OutcomeSucceeded       Outcome = "succeeded"
	OutcomeFailedTransient Outcome = "failed_transient"
	OutcomeFailedFatal     Outcome = "failed_fatal"
)

// Terminal reports whether no further transition happens in the current round.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailedTransient, OutcomeFailedFatal:
		return true
	}
	return false
}

// Info is the metadata reported by the external tool.
type Info struct {
	URL   string
	Title string
}

// Job is the run state of one Target.
type Job struct {
	Target     Target
	Task       Task
	Attempts   int
	Outcome    Outcome
	Info       *Info
	Downloaded bool
	FailedTask Task
	Diagnostic string
	RunID      string
}

// NewJob creates a pending job with nothing outstanding.
func NewJob(t Target) *Job {
	return &Job{Target: t, Outcome: OutcomePending}
}

// Assign requests task for the job. Work that is already done is not
// requested again: info is not refetched once known, a finished download is
// not repeated. TaskNone keeps whatever is outstanding. It reports whether the
// job has anything to do for task.
//
// An info request on a job whose info is known leaves a pending download in
// place for a later round but reports no work.
func (j *Job) Assign(task Task) bool {
	switch task {
	case TaskFetchInfo:
		if j.Info == nil {
			j.Task = TaskFetchInfo
			return true
		}
		if j.Task != TaskDownload || j.Downloaded {
			j.Task = TaskNone
		}
		return false
	case TaskDownload:
		j.Task = TaskNone
		if !j.Downloaded {
			j.Task = TaskDownload
		}
	}
	return j.Outstanding()
}

// Outstanding reports whether a task is pending for the job.
func (j *Job) Outstanding() bool {
	return j.Task != TaskNone
}

// Begin moves the job to Running and resets per-round state.
func (j *Job) Begin(runID string) {
	j.Outcome = OutcomeRunning
	j.Attempts = 0
	j.FailedTask = TaskNone
	j.Diagnostic = ""
	j.RunID = runID
}

// Apply records a worker result. On success the task is cleared; on failure
// it stays outstanding so a later round can pick it up.
func (j *Job) Apply(r Result) {
	j.Attempts = r.Attempts
	if r.Info != nil {
		info := *r.Info
		j.Info = &info
		j.Target.Title = info.Title
	}
	if r.Downloaded {
		j.Downloaded = true
	}
	j.Outcome = r.Outcome
	if r.Outcome == OutcomeSucceeded {
		j.Task = TaskNone
		j.FailedTask = TaskNone
		j.Diagnostic = ""
		return
	}
	j.FailedTask = r.FailedTask
	if j.FailedTask == TaskNone {
		j.FailedTask = r.Task
	}
	j.Diagnostic = Diagnostic(r.Err)
}

// Title returns the resolved title, or "" when unknown.
func (j *Job) Title() string {
	return j.Target.Title
}

// Result is what a worker reports back for one job.
type Result struct {
	Task       Task
	Outcome    Outcome
	Attempts   int
	Info       *Info
	Downloaded bool
	FailedTask Task
	Err        error
}
