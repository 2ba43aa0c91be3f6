package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ladderplan/ladderd/internal/service"
)

// PlannerHandler serves planner CRUD and the derived fill view.
type PlannerHandler struct {
	svc    *service.PlannerService
	logger *slog.Logger
}

func NewPlannerHandler(svc *service.PlannerService, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{svc: svc, logger: logHandler(logger, "planner")}
}

// CreatePlanner builds a new ladder from the posted configuration.
// POST /api/planners
func (h *PlannerHandler) CreatePlanner(w http.ResponseWriter, r *http.Request) {
	var in service.PlannerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListPlanners lists planners, optionally filtered by ?owner=.
// GET /api/planners
func (h *PlannerHandler) ListPlanners(w http.ResponseWriter, r *http.Request) {
	planners, err := h.svc.List(r.Context(), r.URL.Query().Get("owner"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planners)
}

// GetPlanner returns one planner's configuration.
// GET /api/planners/{id}
func (h *PlannerHandler) GetPlanner(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPlannerView returns the planner with fills reconciled from its trade
// history and, when available, the live price with near-level highlights.
// GET /api/planners/{id}/view
func (h *PlannerHandler) GetPlannerView(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetView(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdatePlanner reconfigures a planner and rebuilds its ladder.
// PUT /api/planners/{id}
func (h *PlannerHandler) UpdatePlanner(w http.ResponseWriter, r *http.Request) {
	var in service.PlannerInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.svc.Update(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeletePlanner removes a planner and its ladder.
// DELETE /api/planners/{id}
func (h *PlannerHandler) DeletePlanner(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchivePlanner marks a planner archived.
// POST /api/planners/{id}/archive
func (h *PlannerHandler) ArchivePlanner(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Archive(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}
