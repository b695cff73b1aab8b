package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
	"github.com/gyaneshwarpardhi/reciperunner/internal/metrics"
)

const deadlockMessage = "recipe has deadlocked, forcing progress"

// errNodeNotStarted means the job was stopped before the node got an
// execution slot.
var errNodeNotStarted = errors.New("node not started: job is stopping")

// advanceWork asks the scheduler for one pass over a job's graph.
type advanceWork struct {
	job *Job
}

// schedule queues a pass for j. When the queue no longer accepts work
// (shutdown or cancelled engine context) the pass runs inline so that the job
// still settles.
func (e *Engine) schedule(j *Job) {
	if err := e.passes.Enqueue(e.ctx, &advanceWork{job: j}); err != nil {
		j.logger.Debug("pass queue unavailable, advancing inline", "error", err)
		e.advance(j)
	}
}

// advance runs one scheduler pass over j and finishes the job when the pass
// decides it is done.
func (e *Engine) advance(j *Job) {
	if j == nil {
		slog.Warn("scheduler pass without a job")
		return
	}
	metrics.SchedulerPasses.Inc()
	metrics.QueueUtilization.Set(e.QueueUtilization())

	j.mu.Lock()
	finish := e.passLocked(j)
	j.mu.Unlock()

	if finish {
		e.finishJob(j)
	}
}

// passLocked launches every node whose inputs are ready and reports whether
// the job should be finished. A deadlock skip restarts the pass from the top
// with a fresh sort.
func (e *Engine) passLocked(j *Job) bool {
	switch j.state {
	// error is sticky but not a stop: independent branches keep launching and
	// the job settles once nothing runs.
	case StateRunning, StateError:
	case StateForceStop:
		return j.runningNodes == 0
	default:
		return false
	}

	for {
		pending := make(map[int]bool)
		for _, n := range j.graph.Nodes() {
			if n.RunState == dag.StatePending {
				pending[n.ID] = true
			}
		}
		res := dag.Sort(j.graph)
		if !res.Computable {
			for id := range pending {
				if n := j.graph.Node(id); n.RunState == dag.StateDeadLock {
					j.failLocked(n, deadlockMessage, nil)
				}
			}
		}

		canFinish, progressed, restart := true, false, false
	scan:
		for _, id := range res.SearchOrder {
			n := j.graph.Node(id)
			if n.RunState != dag.StatePending {
				continue
			}
			canFinish = false

			if !n.Enabled() {
				n.RunState = dag.StateSkipped
				n.Output = map[string]interface{}{}
				progressed = true
				continue
			}

			b, ok := j.blocks[n.Name]
			if !ok {
				n.RunState = dag.StateError
				j.failLocked(n, fmt.Sprintf("no block resolved for %q", n.Name), nil)
				break scan
			}

			in, canRun, executable := resolveInputs(j.graph, n)
			if !canRun {
				continue
			}
			if !executable {
				n.RunState = dag.StateSkipped
				j.failLocked(n, deadlockMessage, nil)
				restart = true
				break scan
			}

			e.launchLocked(j, n, b, in)
		}

		switch {
		case restart:
			continue
		case j.runningNodes > 0:
			return false
		case canFinish:
			return true
		case progressed:
			continue
		}
		// Nothing runs and nothing can: remaining nodes wait on errored or
		// deadlocked upstreams.
		return len(j.errors) > 0
	}
}

// resolveInputs collects the upstream values for every input socket, in
// socket name then connection order. canRun is false while any upstream is not
// ready; executable is false when an upstream is deadlocked.
func resolveInputs(g *dag.Graph, n *dag.Node) (in block.Inputs, canRun, executable bool) {
	in = make(block.Inputs, len(n.Inputs))
	canRun, executable = true, true
	for _, socket := range n.InputNames() {
		conns := n.Inputs[socket]
		values := make([]interface{}, 0, len(conns))
		for _, c := range conns {
			up := g.Node(c.Node)
			if up == nil || up.RunState == dag.StateDeadLock {
				executable = false
				break
			}
			if !up.Ready() {
				return nil, false, executable
			}
			values = append(values, up.Output[c.Output])
		}
		in[socket] = values
	}
	return in, canRun, executable
}

func (e *Engine) launchLocked(j *Job, n *dag.Node, b block.Block, in block.Inputs) {
	n.RunState = dag.StateRunning
	j.addActiveLocked(n.ID)
	go e.runNode(j, n, b, in)
}

// runNode executes one node, records its result and queues the next pass.
func (e *Engine) runNode(j *Job, n *dag.Node, b block.Block, in block.Inputs) {
	start := time.Now()
	out, err := e.execute(j, n, b, in)
	elapsed := time.Since(start)

	if errors.Is(err, errNodeNotStarted) {
		j.mu.Lock()
		n.RunState = dag.StateSkipped
		n.Output = nil
		j.removeActiveLocked(n.ID)
		j.mu.Unlock()
		j.logger.Debug("node skipped, job is stopping", "node_id", n.ID, "block", n.Name)
		e.schedule(j)
		return
	}

	status := "success"
	j.mu.Lock()
	switch {
	case err != nil:
		status = "error"
		n.RunState = dag.StateError
		j.failLocked(n, normalizeError(err), nil)
	case isErrorValue(out["error"]):
		status = "error"
		n.Output = out
		n.RunState = dag.StateError
		j.failLocked(n, normalizeError(out["error"]), out["error"])
	default:
		if out == nil {
			out = block.Outputs{}
		}
		n.Output = out
		n.RunState = dag.StateFinished
	}
	j.removeActiveLocked(n.ID)
	j.publish(j.nodeEvent(event.NodeFinished, n))
	j.mu.Unlock()

	metrics.NodesExecuted.WithLabelValues(n.Name, status).Inc()
	metrics.NodeDuration.WithLabelValues(n.Name).Observe(float64(elapsed.Milliseconds()))
	j.logger.Debug("node finished", "node_id", n.ID, "block", n.Name, "status", status, "duration", elapsed)

	e.schedule(j)
}

type execResult struct {
	out block.Outputs
	err error
}

// execute runs the block within the engine's parallelism limit and the
// configured node deadline. Panics become errors.
func (e *Engine) execute(j *Job, n *dag.Node, b block.Block, in block.Inputs) (block.Outputs, error) {
	if err := e.sem.Acquire(e.ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire execution slot: %w", err)
	}
	defer e.sem.Release(1)

	// The job may have been stopped while this node waited for a slot.
	j.mu.Lock()
	if j.state == StateForceStop || j.finished {
		j.mu.Unlock()
		return nil, errNodeNotStarted
	}
	j.publish(j.nodeEvent(event.NodeStarted, n))
	j.mu.Unlock()

	ctx := e.ctx
	if e.conf.NodeTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.conf.NodeTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	ec := block.NewExecContext(j.caller.SessionID, j.caller.UserID, j.id, j.recipeID, n.ID, j.args, j.setArtifacts)
	resultC := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultC <- execResult{err: fmt.Errorf("block %q panicked: %v", n.Name, r)}
			}
		}()
		out, err := b.Execute(ctx, n.Data, in, ec)
		resultC <- execResult{out: out, err: err}
	}()

	select {
	case res := <-resultC:
		return res.out, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("block %q timed out after %dms", n.Name, e.conf.NodeTimeoutMs)
		}
		return nil, ctx.Err()
	}
}

// isErrorValue reports whether an "error" output carries an actual error.
func isErrorValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	default:
		return true
	}
}
