package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/reciperunner/internal/engine"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("could not write response", "status", status, "err", err)
	}
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// acceptedResponse answers a job request whose job has not finished yet.
type acceptedResponse struct {
	JobID string       `json:"job_id"`
	State engine.State `json:"state"`
}

func writeAccepted(w http.ResponseWriter, j *engine.Job) {
	writeJSON(w, http.StatusAccepted, acceptedResponse{JobID: j.ID(), State: j.State()})
}
