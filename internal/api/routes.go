package api

import (
	"net/http"
	"os"

	"brandpulse/internal/auth"
	"brandpulse/internal/db"
	"brandpulse/internal/pubsub"
	"brandpulse/internal/service"
	"brandpulse/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB           *db.Pool
	Bus          *pubsub.Bus
	Hub          *ws.Hub
	Log          *zap.Logger
	Workflows    *service.WorkflowService
	Interactions *service.InteractionService
	Views        *service.ViewService
	Analytics    *service.AnalyticsService
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(d.Log))

	jwtConfig := auth.NewJWTConfig(os.Getenv("JWT_SECRET"))
	r.Use(jwtConfig.Middleware)

	// Workflow endpoints
	r.Get("/workflows", d.listWorkflows)
	r.Post("/workflows", d.createWorkflow)
	r.Get("/workflows/{id}", d.getWorkflow)
	r.Patch("/workflows/{id}", d.updateWorkflow)
	r.Delete("/workflows/{id}", d.deleteWorkflow)
	r.Post("/workflows/{id}/activate", d.activateWorkflow)
	r.Post("/workflows/{id}/pause", d.pauseWorkflow)
	r.Post("/workflows/reorder", d.reorderWorkflows)

	// Interaction endpoints
	r.Post("/interactions", d.ingestInteraction)
	r.Get("/interactions/{id}", d.getInteraction)
	r.Get("/interactions/by-view/{viewId}", d.listInteractionsByView)
	r.Post("/interactions/{id}/generate-response", d.generateResponse)
	r.Post("/interactions/{id}/respond", d.respond)
	r.Post("/interactions/{id}/approve-response", d.approveResponse)
	r.Delete("/interactions/{id}/pending-response", d.rejectPendingResponse)
	r.Post("/interactions/bulk-action", d.bulkAction)

	// View endpoints
	r.Get("/views", d.listViews)
	r.Post("/views", d.createView)
	r.Get("/views/{id}", d.getView)
	r.Patch("/views/{id}", d.updateView)
	r.Delete("/views/{id}", d.deleteView)
	r.Post("/views/{id}/pin", d.pinView)
	r.Post("/views/{id}/duplicate", d.duplicateView)

	// Analytics endpoints
	r.Get("/analytics/overview", d.analyticsOverview)
	r.Get("/analytics/workflows", d.analyticsWorkflows)

	// WebSocket endpoint
	r.Get("/ws", d.wsHandler)

	return r
}
