package event

import "sync"

// Listener receives events synchronously from Publish. Listeners must be fast
// and must not call back into the publishing job.
type Listener func(Event)

// Bus fans events out to generic listeners and to listeners scoped to a job id.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	all    map[int]Listener
	byJob  map[string]map[int]Listener
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		all:   make(map[int]Listener),
		byJob: make(map[string]map[int]Listener),
	}
}

// Subscribe registers fn for every event. The returned func unsubscribes.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.all[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// SubscribeJob registers fn for events of a single job.
func (b *Bus) SubscribeJob(jobID string, fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.byJob[jobID] == nil {
		b.byJob[jobID] = make(map[int]Listener)
	}
	b.byJob[jobID][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m := b.byJob[jobID]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(b.byJob, jobID)
			}
		}
	}
}

// Publish delivers ev to generic listeners, then to the job's listeners.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.all)+len(b.byJob[ev.JobID]))
	for _, fn := range b.all {
		listeners = append(listeners, fn)
	}
	for _, fn := range b.byJob[ev.JobID] {
		listeners = append(listeners, fn)
	}
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
