package dag

import (
	"fmt"
	"sort"
)

// RunState is the scheduling state of a node within one job.
// The zero value means the node has not been scheduled yet.
type RunState int

const (
	StatePending RunState = iota
	StateRunning
	StateFinished
	StateSkipped
	StateError
	StateDeadLock
)

func (s RunState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateSkipped:
		return "skipped"
	case StateError:
		return "error"
	case StateDeadLock:
		return "deadLock"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the state can never change again.
func (s RunState) Terminal() bool {
	switch s {
	case StateFinished, StateSkipped, StateError, StateDeadLock:
		return true
	case StatePending, StateRunning:
		return false
	default:
		return false
	}
}

// Connection references an output socket of an upstream node.
type Connection struct {
	Node   int    `json:"node"`
	Output string `json:"output"`
}

// Node is one execution unit of a job's graph.
type Node struct {
	ID     int
	Name   string // block type
	Data   map[string]interface{}
	Inputs map[string][]Connection

	// RunState and Output are owned by the scheduler.
	RunState RunState
	Output   map[string]interface{}
}

// Enabled reports whether the node may execute. A node is disabled only by an
// explicit `enabled: false` in its data.
func (n *Node) Enabled() bool {
	if n.Data == nil {
		return true
	}
	v, ok := n.Data["enabled"].(bool)
	return !ok || v
}

// Ready reports whether downstream nodes may consume this node's output.
func (n *Node) Ready() bool {
	if n.Output == nil {
		return false
	}
	return n.RunState == StateFinished || n.RunState == StateSkipped
}

// InputNames returns the node's input sockets in a stable order.
func (n *Node) InputNames() []string {
	names := make([]string, 0, len(n.Inputs))
	for name := range n.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the upstream node ids in socket then connection order.
func (n *Node) Dependencies() []int {
	var deps []int
	for _, name := range n.InputNames() {
		for _, c := range n.Inputs[name] {
			deps = append(deps, c.Node)
		}
	}
	return deps
}

func (n *Node) clone() *Node {
	c := &Node{
		ID:       n.ID,
		Name:     n.Name,
		Data:     cloneMap(n.Data),
		RunState: n.RunState,
		Output:   cloneMap(n.Output),
	}
	if n.Inputs != nil {
		c.Inputs = make(map[string][]Connection, len(n.Inputs))
		for k, conns := range n.Inputs {
			c.Inputs[k] = append([]Connection(nil), conns...)
		}
	}
	return c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
