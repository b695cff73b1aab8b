package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/reciperunner/internal/block"
	"github.com/gyaneshwarpardhi/reciperunner/internal/engine"
	"github.com/gyaneshwarpardhi/reciperunner/internal/metrics"
	"github.com/gyaneshwarpardhi/reciperunner/internal/recipe"
	"github.com/gyaneshwarpardhi/reciperunner/internal/store"
)

const maxHistoryLimit = 500

// RecipeCatalog lists and reloads recipes. *recipe.Loader satisfies it.
type RecipeCatalog interface {
	List() []*recipe.Recipe
	Reload() (map[string]*recipe.Recipe, error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng         *engine.Engine
	recipes     RecipeCatalog
	blocks      *block.Registry
	waitTimeout time.Duration
	mux         *http.ServeMux
}

// New creates an HTTP handler and registers all routes. waitTimeout bounds
// how long a synchronous job request may block.
func New(eng *engine.Engine, recipes RecipeCatalog, blocks *block.Registry, waitTimeout time.Duration) http.Handler {
	h := &Handler{
		eng:         eng,
		recipes:     recipes,
		blocks:      blocks,
		waitTimeout: waitTimeout,
		mux:         http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /v1/jobs", h.startJob)
	h.mux.HandleFunc("GET /v1/jobs", h.listJobs)
	h.mux.HandleFunc("GET /v1/jobs/history", h.listHistory)
	h.mux.HandleFunc("GET /v1/jobs/{id}", h.getJob)
	h.mux.HandleFunc("DELETE /v1/jobs/{id}", h.stopJob)
	h.mux.HandleFunc("POST /v1/jobs/stop", h.stopAll)
	h.mux.HandleFunc("GET /v1/recipes", h.listRecipes)
	h.mux.HandleFunc("POST /v1/recipes/reload", h.reloadRecipes)
	h.mux.HandleFunc("GET /v1/blocks", h.listBlocks)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type startJobRequest struct {
	RecipeID  string                 `json:"recipe_id"`
	Args      map[string]interface{} `json:"args"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Wait      bool                   `json:"wait"`
}

// POST /v1/jobs: start a recipe. With "wait" the response carries the final status.
func (h *Handler) startJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.RecipeID == "" {
		writeError(w, http.StatusBadRequest, "recipe_id is required")
		return
	}

	j, err := h.eng.StartRecipe(r.Context(), req.RecipeID, req.Args, engine.Caller{
		SessionID: req.SessionID,
		UserID:    req.UserID,
	})
	if err != nil {
		writeError(w, startStatus(err), err.Error())
		return
	}

	if !req.Wait {
		writeAccepted(w, j)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()
	rec, err := h.eng.Wait(ctx, j.ID())
	if err != nil {
		// Still running; the caller can poll.
		writeAccepted(w, j)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func startStatus(err error) int {
	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidArgs), errors.Is(err, engine.ErrInvalidRecipe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrEngineClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GET /v1/jobs: live jobs.
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.eng.Jobs()
	out := make([]*store.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Status())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": out})
}

// GET /v1/jobs/history: finished jobs, filtered by recipe_id, state and limit.
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.JobFilter{
		RecipeID: q.Get("recipe_id"),
		State:    q.Get("state"),
		Limit:    100,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		filter.Limit = n
	}

	recs, err := h.eng.History(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*store.JobRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": recs})
}

// GET /v1/jobs/{id}: job status; ?wait=true blocks until the job finishes.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var (
		rec *store.JobRecord
		err error
	)
	if r.URL.Query().Get("wait") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()
		rec, err = h.eng.Wait(ctx, id)
		if errors.Is(err, context.DeadlineExceeded) {
			rec, err = h.eng.Status(r.Context(), id)
		}
	} else {
		rec, err = h.eng.Status(r.Context(), id)
	}

	switch {
	case errors.Is(err, store.ErrJobNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

// DELETE /v1/jobs/{id}: force-stop one live job.
func (h *Handler) stopJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.eng.Job(id) == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s is not running", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  id,
		"stopped": h.eng.StopJob(id),
	})
}

// POST /v1/jobs/stop: force-stop every live job.
func (h *Handler) stopAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stopped": h.eng.StopJob(""),
	})
}

// GET /v1/recipes: list loaded recipes.
func (h *Handler) listRecipes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipes": h.recipes.List(),
	})
}

// POST /v1/recipes/reload: re-read the recipe directory.
func (h *Handler) reloadRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":      true,
		"recipes_count": len(recipes),
	})
}

// GET /v1/blocks: installed block names.
func (h *Handler) listBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blocks": h.blocks.Names(),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the scheduler queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
		"live_jobs":         len(h.eng.Jobs()),
	})
}
