package engine

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
	"github.com/gyaneshwarpardhi/reciperunner/internal/store"
)

// State is the lifecycle state of a job.
type State string

const (
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateSuccess   State = "success"
	StateStopped   State = "stopped"
	StateForceStop State = "forceStop"
	StateError     State = "error"
)

// Caller identifies who started a job.
type Caller struct {
	SessionID string
	UserID    string
}

// Job is one execution of a recipe. All mutable fields, including the run
// state and output of graph nodes, are guarded by mu.
type Job struct {
	id       string
	recipeID string
	caller   Caller
	args     map[string]interface{}
	blocks   map[string]block.Block
	publish  func(event.Event)
	logger   *slog.Logger
	done     chan struct{}
	doneOnce sync.Once

	mu           sync.Mutex
	graph        *dag.Graph
	state        State
	finished     bool
	activeNodes  []int
	runningNodes int
	errors       []event.NodeError
	artifacts    interface{}
	createdAt    time.Time
	startedAt    time.Time
	finishedAt   time.Time
}

// newJob creates a ready job over its own deep copy of g.
func newJob(id, recipeID string, caller Caller, args map[string]interface{}, g *dag.Graph, blocks map[string]block.Block, publish func(event.Event)) *Job {
	if publish == nil {
		publish = func(event.Event) {}
	}
	return &Job{
		id:        id,
		recipeID:  recipeID,
		caller:    caller,
		args:      args,
		blocks:    blocks,
		publish:   publish,
		logger:    slog.With("job_id", id, "recipe_id", recipeID),
		done:      make(chan struct{}),
		graph:     g.Clone(),
		state:     StateReady,
		errors:    []event.NodeError{},
		createdAt: time.Now(),
	}
}

func (j *Job) ID() string       { return j.id }
func (j *Job) RecipeID() string { return j.recipeID }
func (j *Job) Caller() Caller   { return j.caller }

// Done is closed once the job has finished and its record has been stored.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) release() {
	j.doneOnce.Do(func() { close(j.done) })
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Finished reports whether Finish has completed.
func (j *Job) Finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

// Start moves a ready job to running. It returns false for any other state.
func (j *Job) Start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateReady {
		return false
	}
	j.startedAt = time.Now()
	j.setStateLocked(StateRunning)
	j.publish(j.eventLocked(event.JobStarted))
	return true
}

// ForceStop requests cooperative cancellation. In-flight nodes run to
// completion; no new node is launched. It returns false when the job has
// already finished or is already being stopped.
func (j *Job) ForceStop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished || j.state == StateForceStop {
		return false
	}
	j.setStateLocked(StateForceStop)
	return true
}

// Finish settles the terminal state: forceStop becomes stopped, error stays
// error, anything else becomes success unless errors were recorded.
// Only the first call has any effect; it reports whether this call finished the job.
func (j *Job) Finish() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return false
	}
	switch {
	case j.state == StateForceStop:
		j.setStateLocked(StateStopped)
	case j.state == StateError:
	case len(j.errors) > 0:
		j.setStateLocked(StateError)
	default:
		j.setStateLocked(StateSuccess)
	}
	j.finished = true
	j.finishedAt = time.Now()
	j.publish(j.eventLocked(event.JobFinished))
	return true
}

// Status returns a snapshot of the job.
func (j *Job) Status() *store.JobRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec := &store.JobRecord{
		ID:          j.id,
		RecipeID:    j.recipeID,
		SessionID:   j.caller.SessionID,
		UserID:      j.caller.UserID,
		State:       string(j.state),
		ActiveNodes: slices.Clone(j.activeNodes),
		Errors:      slices.Clone(j.errors),
		Artifacts:   j.artifacts,
		Nodes:       make([]store.NodeRecord, 0, j.graph.NodeCount()),
		CreatedAt:   j.createdAt,
		StartedAt:   j.startedAt,
		FinishedAt:  j.finishedAt,
	}
	if rec.ActiveNodes == nil {
		rec.ActiveNodes = []int{}
	}
	for _, n := range j.graph.Nodes() {
		var out map[string]interface{}
		if n.Output != nil {
			out = make(map[string]interface{}, len(n.Output))
			for k, v := range n.Output {
				out[k] = v
			}
		}
		rec.Nodes = append(rec.Nodes, store.NodeRecord{
			ID:       n.ID,
			Name:     n.Name,
			RunState: n.RunState.String(),
			Output:   out,
		})
	}
	return rec
}

func (j *Job) setArtifacts(v interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.artifacts = v
}

// setStateLocked publishes job:update only when the state actually changes.
func (j *Job) setStateLocked(s State) {
	if j.state == s {
		return
	}
	j.logger.Debug("job state changed", "from", j.state, "to", s)
	j.state = s
	j.publish(j.eventLocked(event.JobUpdate))
}

// failLocked records an error and makes the job's error state sticky. A job
// that is being stopped keeps forceStop so that it still ends as stopped.
func (j *Job) failLocked(n *dag.Node, msg string, details interface{}) {
	j.errors = append(j.errors, event.NodeError{
		NodeID:   n.ID,
		NodeName: n.Name,
		Message:  msg,
		Details:  details,
	})
	j.logger.Warn("node error", "node_id", n.ID, "block", n.Name, "error", msg)
	j.publish(j.eventLocked(event.JobError))
	if j.state == StateRunning {
		j.setStateLocked(StateError)
	}
}

func (j *Job) addActiveLocked(id int) {
	j.activeNodes = append(j.activeNodes, id)
	j.runningNodes++
}

func (j *Job) removeActiveLocked(id int) {
	if i := slices.Index(j.activeNodes, id); i >= 0 {
		j.activeNodes = slices.Delete(j.activeNodes, i, i+1)
	}
	j.runningNodes--
}

func (j *Job) eventLocked(t event.Type) event.Event {
	ev := event.Event{
		Type:       t,
		JobID:      j.id,
		SessionID:  j.caller.SessionID,
		UserID:     j.caller.UserID,
		State:      string(j.state),
		OccurredAt: time.Now(),
	}
	switch t {
	case event.JobUpdate, event.JobFinished:
		ev.ActiveNodes = slices.Clone(j.activeNodes)
		ev.Errors = slices.Clone(j.errors)
	case event.JobError:
		ev.Errors = slices.Clone(j.errors)
	}
	return ev
}

func (j *Job) nodeEvent(t event.Type, n *dag.Node) event.Event {
	return event.Event{
		Type:       t,
		JobID:      j.id,
		SessionID:  j.caller.SessionID,
		UserID:     j.caller.UserID,
		NodeID:     n.ID,
		NodeName:   n.Name,
		OccurredAt: time.Now(),
	}
}
