package recipe

import (
	"fmt"
	"strings"
)

// Validate checks a recipe for:
//   - Required fields
//   - Duplicate node IDs
//   - Connections that reference nodes or sockets that do not exist
//
// Cycles are accepted here; the scheduler detects and reports them at run time.
func Validate(r *Recipe) error {
	if r.ID == "" {
		return fmt.Errorf("recipe: id is required")
	}
	var errs []string

	ids := make(map[int]int, len(r.Nodes)) // node id → index
	for i, n := range r.Nodes {
		if prev, ok := ids[n.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate node id %d (nodes[%d] and nodes[%d])", n.ID, prev, i))
			continue
		}
		ids[n.ID] = i
		if n.Name == "" {
			errs = append(errs, fmt.Sprintf("node %d: name is required", n.ID))
		}
	}

	for _, n := range r.Nodes {
		for socket, conns := range n.Inputs {
			if socket == "" {
				errs = append(errs, fmt.Sprintf("node %d: input socket name is required", n.ID))
			}
			for j, c := range conns {
				if _, ok := ids[c.Node]; !ok {
					errs = append(errs, fmt.Sprintf("node %d.inputs.%s[%d]: unknown node %d", n.ID, socket, j, c.Node))
				}
				if c.Output == "" {
					errs = append(errs, fmt.Sprintf("node %d.inputs.%s[%d]: output is required", n.ID, socket, j))
				}
			}
		}
	}

	argNames := make(map[string]struct{}, len(r.Args))
	for i, a := range r.Args {
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("args[%d]: name is required", i))
			continue
		}
		if _, ok := argNames[a.Name]; ok {
			errs = append(errs, fmt.Sprintf("duplicate arg %q", a.Name))
		}
		argNames[a.Name] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("recipe %s validation errors:\n  - %s", r.ID, strings.Join(errs, "\n  - "))
	}
	return nil
}
