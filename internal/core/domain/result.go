package domain

import (
	"errors"
	"time"

	"go.trai.ch/zerr"
)

// Status is the outcome of one task run.
type Status string

const (
	// StatusSucceeded means every source was processed.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means at least one source or write failed.
	StatusFailed Status = "failed"
	// StatusSkipped means the task did not run.
	StatusSkipped Status = "skipped"
)

// Result is the structured outcome of a task run.
type Result struct {
	Task     string
	Category Category
	Status   Status
	// Written lists the absolute paths rewritten by this run.
	Written []string
	// Unchanged counts outputs whose content was already current.
	Unchanged int
	// Filtered counts sources skipped by the incremental filter.
	Filtered int
	Err      error
	Duration time.Duration
}

// Failed reports whether the task failed.
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// Report collects the results of a scheduler run.
type Report struct {
	Results []Result
}

// Add appends results to the report.
func (r *Report) Add(results ...Result) {
	r.Results = append(r.Results, results...)
}

// Failed returns the failed results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

// Count returns the number of results with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Lookup returns the result for a task.
func (r Report) Lookup(task string) (Result, bool) {
	for _, res := range r.Results {
		if res.Task == task {
			return res, true
		}
	}
	return Result{}, false
}

// Err joins the errors of every failed task.
func (r Report) Err() error {
	var errs error
	for _, res := range r.Failed() {
		errs = errors.Join(errs, zerr.With(zerr.Wrap(res.Err, ErrTaskExecutionFailed.Error()), "task", res.Task))
	}
	return errs
}
