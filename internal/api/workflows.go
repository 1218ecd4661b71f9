package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"brandpulse/internal/db"
	"brandpulse/internal/engine"
	"brandpulse/internal/model"
	"brandpulse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (d Dependencies) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, version, err := d.Workflows.ListWorkflows(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"workflows":       workflows,
		"orderingVersion": version,
	})
}

func (d Dependencies) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var input service.WorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	workflow, err := d.Workflows.CreateWorkflow(r.Context(), input)
	if err != nil {
		WriteError(w, workflowErrorStatus(err), "create_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, workflow)
}

func (d Dependencies) getWorkflow(w http.ResponseWriter, r *http.Request) {
	workflow, err := d.Workflows.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Workflow not found", d.Log)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

func (d Dependencies) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	var input service.WorkflowInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	workflow, err := d.Workflows.UpdateWorkflow(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		WriteError(w, workflowErrorStatus(err), "update_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, workflow)
}

func (d Dependencies) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := d.Workflows.DeleteWorkflow(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, workflowErrorStatus(err), "delete_failed", err.Error(), d.Log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d Dependencies) activateWorkflow(w http.ResponseWriter, r *http.Request) {
	d.setWorkflowStatus(w, r, model.WorkflowActive)
}

func (d Dependencies) pauseWorkflow(w http.ResponseWriter, r *http.Request) {
	d.setWorkflowStatus(w, r, model.WorkflowPaused)
}

func (d Dependencies) setWorkflowStatus(w http.ResponseWriter, r *http.Request, status model.WorkflowStatus) {
	id := chi.URLParam(r, "id")
	if err := d.Workflows.SetWorkflowStatus(r.Context(), id, status); err != nil {
		WriteError(w, workflowErrorStatus(err), "status_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

type reorderRequest struct {
	WorkflowIDs     []string `json:"workflowIds"`
	OrderingVersion int64    `json:"orderingVersion"`
}

func (d Dependencies) reorderWorkflows(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.Workflows.Reorder(r.Context(), req.WorkflowIDs, req.OrderingVersion); err != nil {
		WriteError(w, workflowErrorStatus(err), "reorder_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func workflowErrorStatus(err error) int {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrStaleOrdering):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSystemWorkflowPinned),
		errors.Is(err, db.ErrSystemWorkflow),
		errors.Is(err, service.ErrSystemWorkflowImmutable):
		return http.StatusConflict
	case errors.Is(err, engine.ErrMixedConditionDialects),
		errors.Is(err, service.ErrSystemActionReserved):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
