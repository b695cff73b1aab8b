package block

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry maps block names to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]Block
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{blocks: make(map[string]Block)}
}

// Register adds a block. Panics on duplicate name to surface misconfiguration early.
func (r *Registry) Register(b Block) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blocks[b.Name()]; exists {
		panic(fmt.Sprintf("block registry: duplicate name %q", b.Name()))
	}
	r.blocks[b.Name()] = b
}

// Get returns the block registered under name.
func (r *Registry) Get(name string) (Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocks[name]
	if !ok {
		return nil, fmt.Errorf("no block registered under name %q", name)
	}
	return b, nil
}

// Names returns all registered block names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.blocks))
	for k := range r.blocks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve returns an implementation for every name. Unknown names resolve to
// a Missing placeholder so that a job can still run to a terminal state.
func (r *Registry) Resolve(names []string) map[string]Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Block, len(names))
	for _, name := range names {
		if b, ok := r.blocks[name]; ok {
			out[name] = b
			continue
		}
		out[name] = Missing(name)
	}
	return out
}

// MissingBlock stands in for a block name that is not installed.
// Every execution fails.
type MissingBlock struct {
	name string
}

// Missing returns a placeholder for an unknown block name.
func Missing(name string) *MissingBlock { return &MissingBlock{name: name} }

// IsMissing reports whether b is a placeholder.
func IsMissing(b Block) bool {
	_, ok := b.(*MissingBlock)
	return ok
}

func (m *MissingBlock) Name() string                          { return m.name }
func (m *MissingBlock) Validate(map[string]interface{}) error { return nil }

func (m *MissingBlock) Execute(context.Context, map[string]interface{}, Inputs, *ExecContext) (Outputs, error) {
	return nil, fmt.Errorf("block %q is not installed", m.name)
}
