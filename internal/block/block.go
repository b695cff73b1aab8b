package block

import "context"

// Inputs maps an input socket to the values of its connections, in
// connection order. A value is nil when the upstream output was absent.
type Inputs map[string][]interface{}

// First returns the first value connected to socket, or nil.
func (in Inputs) First(socket string) interface{} {
	vs := in[socket]
	if len(vs) == 0 {
		return nil
	}
	return vs[0]
}

// Outputs maps an output socket to the value produced on it. An "error" key
// marks the execution as failed.
type Outputs map[string]interface{}

// ExecContext identifies the job a block runs for.
type ExecContext struct {
	SessionID string
	UserID    string
	JobID     string
	RecipeID  string
	NodeID    int
	Args      map[string]interface{}

	sink func(interface{})
}

// NewExecContext builds an ExecContext. sink receives values passed to
// SetArtifacts and may be nil.
func NewExecContext(sessionID, userID, jobID, recipeID string, nodeID int, args map[string]interface{}, sink func(interface{})) *ExecContext {
	return &ExecContext{
		SessionID: sessionID,
		UserID:    userID,
		JobID:     jobID,
		RecipeID:  recipeID,
		NodeID:    nodeID,
		Args:      args,
		sink:      sink,
	}
}

// SetArtifacts designates v as the job's final result.
func (c *ExecContext) SetArtifacts(v interface{}) {
	if c.sink != nil {
		c.sink(v)
	}
}

// Block is the interface every component type must satisfy.
type Block interface {
	// Name returns the key this block is registered under.
	Name() string
	// Execute runs one node and returns its outputs. It is called at most once per node per job.
	Execute(ctx context.Context, data map[string]interface{}, in Inputs, ec *ExecContext) (Outputs, error)
	// Validate checks node data before a job starts.
	Validate(data map[string]interface{}) error
}
