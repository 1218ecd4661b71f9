package api

import (
	"encoding/json"
	"net/http"

	"brandpulse/internal/service"

	"github.com/go-chi/chi/v5"
)

func (d Dependencies) listViews(w http.ResponseWriter, r *http.Request) {
	views, err := d.Views.ListViews(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"views": views})
}

func (d Dependencies) createView(w http.ResponseWriter, r *http.Request) {
	var input service.ViewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	view, err := d.Views.CreateView(r.Context(), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "create_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (d Dependencies) getView(w http.ResponseWriter, r *http.Request) {
	view, err := d.Views.GetView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "View not found", d.Log)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (d Dependencies) updateView(w http.ResponseWriter, r *http.Request) {
	var input service.ViewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	view, err := d.Views.UpdateView(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "update_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (d Dependencies) deleteView(w http.ResponseWriter, r *http.Request) {
	if err := d.Views.DeleteView(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, http.StatusNotFound, "delete_failed", err.Error(), d.Log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pinViewRequest struct {
	Pinned bool `json:"pinned"`
}

func (d Dependencies) pinView(w http.ResponseWriter, r *http.Request) {
	req := pinViewRequest{Pinned: true}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
			return
		}
	}

	if err := d.Views.SetViewPinned(r.Context(), chi.URLParam(r, "id"), req.Pinned); err != nil {
		WriteError(w, http.StatusBadRequest, "pin_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pinned": req.Pinned})
}

func (d Dependencies) duplicateView(w http.ResponseWriter, r *http.Request) {
	view, err := d.Views.DuplicateView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "duplicate_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}
