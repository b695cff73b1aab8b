package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/metrics"
)

var (
	// ErrInvalidArgs is returned when a required recipe argument is missing.
	ErrInvalidArgs = errors.New("invalid recipe arguments")
	// ErrInvalidRecipe is returned when a recipe cannot be turned into a job.
	ErrInvalidRecipe = errors.New("invalid recipe")
	// ErrEngineClosed is returned once Shutdown has been called.
	ErrEngineClosed = errors.New("engine is shut down")
)

// jobRegistry holds the live jobs by id.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*Job)}
}

func (r *jobRegistry) add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.id] = j
	metrics.LiveJobs.Set(float64(len(r.jobs)))
}

func (r *jobRegistry) get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	metrics.LiveJobs.Set(float64(len(r.jobs)))
}

// list returns the live jobs, oldest first.
func (r *jobRegistry) list() []*Job {
	r.mu.RLock()
	out := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if out[a].createdAt.Equal(out[b].createdAt) {
			return out[a].id < out[b].id
		}
		return out[a].createdAt.Before(out[b].createdAt)
	})
	return out
}

// StartRecipe creates a job for recipeID, registers it and queues its first
// pass. The returned job is already running.
func (e *Engine) StartRecipe(ctx context.Context, recipeID string, args map[string]interface{}, caller Caller) (*Job, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	j, err := e.prepare(recipeID, args, caller)
	if err != nil {
		return nil, err
	}

	e.jobs.add(j)
	metrics.JobsStarted.Inc()
	j.Start()
	j.logger.Info("job started",
		"session_id", caller.SessionID,
		"user_id", caller.UserID,
		"nodes", j.graph.NodeCount(),
	)

	if err := e.passes.Enqueue(ctx, &advanceWork{job: j}); err != nil {
		// Nothing was launched yet; settle the job as stopped.
		j.ForceStop()
		e.advance(j)
		return nil, fmt.Errorf("schedule job %s: %w", j.id, err)
	}
	return j, nil
}

// prepare resolves the recipe, its arguments and its blocks into a ready job.
func (e *Engine) prepare(recipeID string, args map[string]interface{}, caller Caller) (*Job, error) {
	r, err := e.recipes.Get(recipeID)
	if err != nil {
		return nil, err
	}

	resolved, missing := r.ResolveArgs(args)
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: recipe %s: missing required %s", ErrInvalidArgs, r.ID, strings.Join(missing, ", "))
	}

	g, err := dag.Build(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}

	blocks := e.blocks.Resolve(r.BlockNames())
	for name, b := range blocks {
		if block.IsMissing(b) {
			slog.Warn("recipe uses a block that is not installed", "recipe_id", r.ID, "block", name)
		}
	}
	for _, n := range g.Nodes() {
		if !n.Enabled() {
			continue
		}
		if err := blocks[n.Name].Validate(n.Data); err != nil {
			return nil, fmt.Errorf("%w: recipe %s: node %d (%s): %v", ErrInvalidRecipe, r.ID, n.ID, n.Name, err)
		}
	}

	return newJob(uuid.NewString(), r.ID, caller, resolved, g, blocks, e.bus.Publish), nil
}

// StopJob force-stops the live job with the given id, or every live job when
// jobID is empty. It returns how many jobs were actually stopped.
func (e *Engine) StopJob(jobID string) int {
	var targets []*Job
	if jobID == "" {
		targets = e.jobs.list()
	} else if j := e.jobs.get(jobID); j != nil {
		targets = []*Job{j}
	}

	stopped := 0
	for _, j := range targets {
		if !j.ForceStop() {
			continue
		}
		stopped++
		j.logger.Info("job force-stopped")
		e.schedule(j)
	}
	return stopped
}

// Job returns the live job with the given id, or nil.
func (e *Engine) Job(id string) *Job {
	return e.jobs.get(id)
}

// Jobs returns the live jobs, oldest first.
func (e *Engine) Jobs() []*Job {
	return e.jobs.list()
}
