package event

import "time"

// Type names a lifecycle notification.
type Type string

const (
	JobStarted   Type = "job_started"
	NodeStarted  Type = "node_started"
	NodeFinished Type = "node_finished"
	JobUpdate    Type = "job:update"
	JobError     Type = "job:error"
	JobFinished  Type = "job_finished"
)

// NodeError is one entry of a job's error list.
type NodeError struct {
	NodeID   int         `json:"node_id"`
	NodeName string      `json:"node_name"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
}

// Event is the canonical notification pushed to sessions and internal listeners.
// Fields that do not apply to a Type are left zero.
type Event struct {
	Type        Type        `json:"type"`
	JobID       string      `json:"job_id"`
	SessionID   string      `json:"session_id,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	State       string      `json:"state,omitempty"`
	NodeID      int         `json:"node_id,omitempty"`
	NodeName    string      `json:"node_name,omitempty"`
	ActiveNodes []int       `json:"active_nodes,omitempty"`
	Errors      []NodeError `json:"errors,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
