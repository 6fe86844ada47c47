package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobState is a state of the job lifecycle.
type JobState string

const (
	JobReceived     JobState = "received"
	JobExtracting   JobState = "extracting"
	JobInterpreting JobState = "interpreting"
	JobBuilding     JobState = "building"
	JobCompleted    JobState = "completed"
	JobFailed       JobState = "failed"
)

// next is the only forward transition allowed from each non-terminal state.
var next = map[JobState]JobState{
	JobReceived:     JobExtracting,
	JobExtracting:   JobInterpreting,
	JobInterpreting: JobBuilding,
	JobBuilding:     JobCompleted,
}

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// StateTransition records when a job entered a state.
type StateTransition struct {
	State  JobState      `json:"state"`
	At     time.Time     `json:"at"`
	Reason FailureReason `json:"reason,omitempty"`
}

// Job tracks one unit of work through the pipeline.
type Job struct {
	ID          uuid.UUID         `json:"id"`
	Filename    string            `json:"filename"`
	State       JobState          `json:"state"`
	Reason      FailureReason     `json:"reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Deadline    time.Time         `json:"deadline"`
	Transitions []StateTransition `json:"transitions"`
}

// NewJob creates a job in the Received state.
func NewJob(filename string, now time.Time, budget time.Duration) *Job {
	return &Job{
		ID:          uuid.New(),
		Filename:    filename,
		State:       JobReceived,
		CreatedAt:   now,
		Deadline:    now.Add(budget),
		Transitions: []StateTransition{{State: JobReceived, At: now}},
	}
}

// Advance moves the job to the given state. Only the single forward step from
// the current state is accepted.
func (j *Job) Advance(to JobState, now time.Time) error {
	want, ok := next[j.State]
	if !ok || want != to {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, to)
	}
	j.State = to
	j.Transitions = append(j.Transitions, StateTransition{State: to, At: now})
	return nil
}

// Fail moves a non-terminal job to Failed with the given reason.
func (j *Job) Fail(reason FailureReason, now time.Time) error {
	if j.State.Terminal() {
		return fmt.Errorf("illegal job transition %s -> %s", j.State, JobFailed)
	}
	j.State = JobFailed
	j.Reason = reason
	j.Transitions = append(j.Transitions, StateTransition{State: JobFailed, At: now, Reason: reason})
	return nil
}

// DocumentInfo describes the processed upload in a JobResult.
type DocumentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ContentHash string `json:"content_hash"`
	Size        int64  `json:"size"`
	PageCount   int    `json:"page_count"`
}

// JobResult aggregates the interpretation with references to every published artifact.
type JobResult struct {
	JobID             uuid.UUID         `json:"job_id"`
	State             JobState          `json:"state"`
	Document          DocumentInfo      `json:"document"`
	Summary           string            `json:"summary"`
	CablePullSheet    string            `json:"cable_pull_sheet"`
	ReflectedBOM      string            `json:"reflected_bom"`
	Notes             []string          `json:"notes"`
	Devices           []Device          `json:"devices"`
	Paths             []RoutingPath     `json:"paths"`
	SuggestedTaxonomy map[string]string `json:"new_taxonomy_entries,omitempty"`
	Artifacts         []ArtifactRef     `json:"artifacts"`
	Transitions       []StateTransition `json:"transitions"`
}
