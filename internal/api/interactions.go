package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"brandpulse/internal/db"
	"brandpulse/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

func (d Dependencies) ingestInteraction(w http.ResponseWriter, r *http.Request) {
	var input service.IngestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	interaction, err := d.Interactions.Ingest(r.Context(), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "ingest_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusCreated, interaction)
}

func (d Dependencies) getInteraction(w http.ResponseWriter, r *http.Request) {
	interaction, err := d.Interactions.GetInteraction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", "Interaction not found", d.Log)
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}

func (d Dependencies) listInteractionsByView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := db.ListInteractionsParams{
		ViewID: chi.URLParam(r, "viewId"),
		Tab:    q.Get("tab"),
		SortBy: q.Get("sortBy"),
	}
	if platforms := q.Get("platforms"); platforms != "" {
		params.Platforms = strings.Split(platforms, ",")
	}
	params.Limit, _ = strconv.Atoi(q.Get("limit"))
	params.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, total, err := d.Interactions.ListByView(r.Context(), params)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "list_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": items,
		"total":        total,
	})
}

type generateResponseRequest struct {
	Tone         string `json:"tone,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

func (d Dependencies) generateResponse(w http.ResponseWriter, r *http.Request) {
	var req generateResponseRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
			return
		}
	}

	interaction, err := d.Interactions.GenerateResponse(r.Context(), chi.URLParam(r, "id"), req.Tone, req.Instructions)
	if err != nil {
		WriteError(w, interactionErrorStatus(err), "generate_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}

func (d Dependencies) respond(w http.ResponseWriter, r *http.Request) {
	var input service.RespondInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	if err := d.Interactions.Respond(r.Context(), chi.URLParam(r, "id"), input); err != nil {
		WriteError(w, interactionErrorStatus(err), "respond_failed", err.Error(), d.Log)
		return
	}

	status := "awaiting_approval"
	if input.SendImmediately {
		status = "replied"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (d Dependencies) approveResponse(w http.ResponseWriter, r *http.Request) {
	if err := d.Interactions.ApproveResponse(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, interactionErrorStatus(err), "approve_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "replied"})
}

func (d Dependencies) rejectPendingResponse(w http.ResponseWriter, r *http.Request) {
	if err := d.Interactions.RejectPendingResponse(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, interactionErrorStatus(err), "reject_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (d Dependencies) bulkAction(w http.ResponseWriter, r *http.Request) {
	var input service.BulkActionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", d.Log)
		return
	}

	affected, err := d.Interactions.BulkAction(r.Context(), input)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "bulk_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"affected": affected})
}

func interactionErrorStatus(err error) int {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoPendingResponse):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
