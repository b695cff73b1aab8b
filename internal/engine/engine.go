package engine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/config"
	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
	"github.com/gyaneshwarpardhi/reciperunner/internal/metrics"
	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
	"github.com/gyaneshwarpardhi/reciperunner/internal/store"
)

// RecipeSource looks up recipes by id. *recipe.Loader satisfies it.
type RecipeSource interface {
	Get(id string) (*recipe.Recipe, error)
}

var _ RecipeSource = (*recipe.Loader)(nil)

// Engine runs recipe jobs. Scheduler passes are executed by a fixed pool of
// workers; node executions run on their own goroutines bounded by a semaphore.
type Engine struct {
	ctx     context.Context
	blocks  *block.Registry
	recipes RecipeSource
	history store.JobStore
	bus     *event.Bus
	jobs    *jobRegistry
	passes  *workerPool[*advanceWork]
	sem     *semaphore.Weighted
	conf    config.EngineConf
	closed  atomic.Bool
}

// New creates an Engine and starts its scheduler workers. Every event is
// forwarded to notifier. ctx bounds the lifetime of the workers and of all
// node executions.
func New(ctx context.Context, blocks *block.Registry, recipes RecipeSource, history store.JobStore, notifier event.Notifier, conf config.EngineConf) *Engine {
	if history == nil {
		history = store.NewMemoryJobStore()
	}
	if notifier == nil {
		notifier = event.NoopNotifier{}
	}
	if conf.SchedulerWorkers <= 0 {
		conf.SchedulerWorkers = 1
	}
	if conf.QueueDepth <= 0 {
		conf.QueueDepth = 1
	}
	if conf.MaxParallelNodes <= 0 {
		conf.MaxParallelNodes = 1
	}

	e := &Engine{
		ctx:     ctx,
		blocks:  blocks,
		recipes: recipes,
		history: history,
		bus:     event.NewBus(),
		jobs:    newJobRegistry(),
		sem:     semaphore.NewWeighted(int64(conf.MaxParallelNodes)),
		conf:    conf,
	}
	e.bus.Subscribe(func(ev event.Event) {
		notifier.Notify(ctx, ev)
	})
	e.passes = newWorkerPool[*advanceWork](ctx, conf.SchedulerWorkers, conf.QueueDepth,
		func(_ context.Context, w *advanceWork) {
			e.advance(w.job)
		},
	)
	return e
}

// Subscribe registers fn for every event of every job.
func (e *Engine) Subscribe(fn event.Listener) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// SubscribeJob registers fn for the events of one job.
func (e *Engine) SubscribeJob(jobID string, fn event.Listener) (unsubscribe func()) {
	return e.bus.SubscribeJob(jobID, fn)
}

// finishJob settles j, records it in the history store and releases it from
// the registry once the retention period has passed.
func (e *Engine) finishJob(j *Job) {
	if !j.Finish() {
		return
	}
	rec := j.Status()
	metrics.JobsFinished.WithLabelValues(rec.State).Inc()
	j.logger.Info("job finished",
		"state", rec.State,
		"errors", len(rec.Errors),
		"duration", rec.FinishedAt.Sub(rec.StartedAt),
	)

	if err := e.history.SaveJob(context.WithoutCancel(e.ctx), rec); err != nil {
		j.logger.Error("could not save job record", "error", err)
	}
	j.release()

	retain := time.Duration(e.conf.RetainFinishedMs) * time.Millisecond
	time.AfterFunc(retain, func() {
		e.jobs.remove(j.id)
	})
}

// Status returns a snapshot of a live job, falling back to the history store
// once the job has been released.
func (e *Engine) Status(ctx context.Context, jobID string) (*store.JobRecord, error) {
	if j := e.jobs.get(jobID); j != nil {
		return j.Status(), nil
	}
	return e.history.GetJob(ctx, jobID)
}

// Wait blocks until the job finishes or ctx is done and returns its final status.
func (e *Engine) Wait(ctx context.Context, jobID string) (*store.JobRecord, error) {
	j := e.jobs.get(jobID)
	if j == nil {
		return e.history.GetJob(ctx, jobID)
	}
	select {
	case <-j.Done():
		return j.Status(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// History lists finished jobs from the history store.
func (e *Engine) History(ctx context.Context, filter store.JobFilter) ([]*store.JobRecord, error) {
	return e.history.ListJobs(ctx, filter)
}

// QueueUtilization returns queued passes / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.passes == nil || e.passes.QueueCap() == 0 {
		return 0
	}
	return float64(e.passes.QueueLen()) / float64(e.passes.QueueCap())
}

// Shutdown refuses new jobs, force-stops the live ones and waits for them to
// settle before stopping the scheduler workers. It returns ctx's error if
// some jobs were still running when ctx expired.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.StopJob("")

	defer e.passes.Drain()
	for _, j := range e.jobs.list() {
		select {
		case <-j.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
