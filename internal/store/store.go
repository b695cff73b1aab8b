// Package store keeps records of finished jobs so they stay queryable after
// the job registry lets go of them.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/gyaneshwarpardhi/reciperunner/internal/event"
)

// ErrJobNotFound is returned when a job record is not found.
var ErrJobNotFound = errors.New("job not found")

// NodeRecord is the observable state of one node.
type NodeRecord struct {
	ID       int                    `json:"id"`
	Name     string                 `json:"name"`
	RunState string                 `json:"run_state"`
	Output   map[string]interface{} `json:"output,omitempty"`
}

// JobRecord is a point-in-time view of a job.
type JobRecord struct {
	ID          string            `json:"id"`
	RecipeID    string            `json:"recipe_id"`
	SessionID   string            `json:"session_id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	State       string            `json:"state"`
	ActiveNodes []int             `json:"active_nodes"`
	Errors      []event.NodeError `json:"errors"`
	Artifacts   interface{}       `json:"artifacts,omitempty"`
	Nodes       []NodeRecord      `json:"nodes"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   time.Time         `json:"started_at,omitempty"`
	FinishedAt  time.Time         `json:"finished_at,omitempty"`
}

// Node returns the record of node id, or nil.
func (r *JobRecord) Node(id int) *NodeRecord {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

// JobFilter selects records. Zero fields mean "no filter"; Limit 0 means all.
type JobFilter struct {
	RecipeID string
	State    string
	Limit    int
}

// JobStore persists job records.
type JobStore interface {
	// SaveJob inserts or replaces the record with the same ID.
	SaveJob(ctx context.Context, rec *JobRecord) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	// ListJobs returns matching records, most recently finished first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*JobRecord, error)
	Close() error
}

func encodeRecord(rec *JobRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeRecord(data []byte) (*JobRecord, error) {
	var rec JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (f JobFilter) match(rec *JobRecord) bool {
	if f.RecipeID != "" && rec.RecipeID != f.RecipeID {
		return false
	}
	if f.State != "" && rec.State != f.State {
		return false
	}
	return true
}

func sortAndLimit(recs []*JobRecord, limit int) []*JobRecord {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].FinishedAt.After(recs[j].FinishedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
