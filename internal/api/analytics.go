package api

import (
	"net/http"
	"strconv"
)

func (d Dependencies) analyticsOverview(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	report, err := d.Analytics.Overview(r.Context(), days)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "analytics_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (d Dependencies) analyticsWorkflows(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	reports, err := d.Analytics.WorkflowStats(r.Context(), days)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "analytics_failed", err.Error(), d.Log)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"workflows": reports})
}
