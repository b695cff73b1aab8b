package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/reciperunner/internal/dag"
	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
)

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) publish(ev event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(t event.Type) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (l *eventLog) states() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.events {
		if ev.Type == event.JobUpdate {
			out = append(out, ev.State)
		}
	}
	return out
}

func testJob(log *eventLog) *Job {
	g := dag.NewGraph()
	_ = g.AddNode(&dag.Node{ID: 1, Name: "constant"})
	return newJob("job-1", "recipe-1", Caller{SessionID: "s1", UserID: "u1"}, nil, g, nil, log.publish)
}

func TestJob_ForceStopFinishesAsStopped(t *testing.T) {
	log := &eventLog{}
	j := testJob(log)
	require.Equal(t, StateReady, j.State())

	require.True(t, j.Start())
	require.False(t, j.Start(), "start only from ready")

	require.True(t, j.ForceStop())
	require.False(t, j.ForceStop(), "already stopping")

	require.True(t, j.Finish())
	require.Equal(t, StateStopped, j.State())
	require.Equal(t, []string{"running", "forceStop", "stopped"}, log.states())
}

func TestJob_StartedEventCarriesRunningState(t *testing.T) {
	log := &eventLog{}
	j := testJob(log)
	require.True(t, j.Start())

	log.mu.Lock()
	defer log.mu.Unlock()
	var started *event.Event
	for i := range log.events {
		if log.events[i].Type == event.JobStarted {
			started = &log.events[i]
		}
	}
	require.NotNil(t, started)
	require.Equal(t, "running", started.State)
	require.Equal(t, "s1", started.SessionID)
}

func TestJob_FinishIsIdempotent(t *testing.T) {
	log := &eventLog{}
	j := testJob(log)
	j.Start()

	require.True(t, j.Finish())
	require.Equal(t, StateSuccess, j.State())
	require.False(t, j.Finish())
	require.False(t, j.ForceStop(), "finished jobs cannot be stopped")
	require.Equal(t, StateSuccess, j.State())
	require.Equal(t, 1, log.count(event.JobFinished))
}

func TestJob_ErrorsAreSticky(t *testing.T) {
	log := &eventLog{}
	j := testJob(log)
	j.Start()

	j.mu.Lock()
	j.failLocked(j.graph.Node(1), "boom", nil)
	j.mu.Unlock()
	require.Equal(t, StateError, j.State())
	require.Equal(t, 1, log.count(event.JobError))

	require.True(t, j.Finish())
	require.Equal(t, StateError, j.State())

	st := j.Status()
	require.Len(t, st.Errors, 1)
	require.Equal(t, "boom", st.Errors[0].Message)
	require.Equal(t, 1, st.Errors[0].NodeID)
}

func TestJob_ErrorWhileStoppingEndsStopped(t *testing.T) {
	j := testJob(&eventLog{})
	j.Start()
	j.ForceStop()

	j.mu.Lock()
	j.failLocked(j.graph.Node(1), "late failure", nil)
	j.mu.Unlock()

	j.Finish()
	require.Equal(t, StateStopped, j.State())
	require.Len(t, j.Status().Errors, 1)
}

func TestJob_OwnsGraphCopy(t *testing.T) {
	g := dag.NewGraph()
	_ = g.AddNode(&dag.Node{ID: 1, Name: "constant", Data: map[string]interface{}{"value": 1}})
	j := newJob("job-1", "r", Caller{}, nil, g, nil, nil)

	j.graph.Node(1).RunState = dag.StateFinished
	require.Equal(t, dag.StatePending, g.Node(1).RunState)
}

func TestJob_StatusSnapshot(t *testing.T) {
	j := testJob(&eventLog{})
	j.Start()
	j.mu.Lock()
	j.addActiveLocked(1)
	j.graph.Node(1).RunState = dag.StateRunning
	j.mu.Unlock()

	st := j.Status()
	require.Equal(t, "running", st.State)
	require.Equal(t, []int{1}, st.ActiveNodes)
	require.Equal(t, "running", st.Node(1).RunState)
	require.Equal(t, "s1", st.SessionID)

	j.mu.Lock()
	j.removeActiveLocked(1)
	j.mu.Unlock()
	require.Equal(t, []int{1}, st.ActiveNodes, "snapshot is detached")
	require.Empty(t, j.Status().ActiveNodes)
}
