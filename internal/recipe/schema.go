package recipe

// Recipe is one user-authored graph definition. Files may be YAML or JSON;
// JSON recipes are parsed by the YAML decoder as well.
type Recipe struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Args        []ArgDef  `yaml:"args" json:"args,omitempty"`
	Nodes       []NodeDef `yaml:"nodes" json:"nodes"`
}

// ArgDef declares a caller-supplied argument.
type ArgDef struct {
	Name     string      `yaml:"name" json:"name"`
	Required bool        `yaml:"required" json:"required,omitempty"`
	Default  interface{} `yaml:"default" json:"default,omitempty"`
}

// NodeDef is a single node of the serialized graph.
// Inputs maps an input socket name to its upstream connections, in declaration order.
type NodeDef struct {
	ID     int                     `yaml:"id" json:"id"`
	Name   string                  `yaml:"name" json:"name"`
	Data   map[string]interface{}  `yaml:"data" json:"data,omitempty"`
	Inputs map[string][]Connection `yaml:"inputs" json:"inputs,omitempty"`
}

// Connection references an output socket of another node.
type Connection struct {
	Node   int    `yaml:"node" json:"node"`
	Output string `yaml:"output" json:"output"`
}

// BlockNames returns the distinct block names referenced by the recipe,
// in first-seen order.
func (r *Recipe) BlockNames() []string {
	seen := make(map[string]struct{}, len(r.Nodes))
	var out []string
	for _, n := range r.Nodes {
		if _, ok := seen[n.Name]; ok {
			continue
		}
		seen[n.Name] = struct{}{}
		out = append(out, n.Name)
	}
	return out
}

// ResolveArgs applies defaults and reports the names of required args that are missing.
func (r *Recipe) ResolveArgs(args map[string]interface{}) (map[string]interface{}, []string) {
	out := make(map[string]interface{}, len(args)+len(r.Args))
	for k, v := range args {
		out[k] = v
	}
	var missing []string
	for _, a := range r.Args {
		if _, ok := out[a.Name]; ok {
			continue
		}
		if a.Default != nil {
			out[a.Name] = a.Default
			continue
		}
		if a.Required {
			missing = append(missing, a.Name)
		}
	}
	return out, missing
}
