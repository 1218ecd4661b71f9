package ws

import (
	"context"
	"encoding/json"

	"brandpulse/internal/service"

	"go.uber.org/zap"
)

// CommandHandler executes inbox operations arriving over the socket, so
// the dashboard can act on interactions without a REST round trip.
type CommandHandler struct {
	interactionSvc *service.InteractionService
	log            *zap.Logger
}

func NewCommandHandler(interactionSvc *service.InteractionService, log *zap.Logger) *CommandHandler {
	return &CommandHandler{
		interactionSvc: interactionSvc,
		log:            log,
	}
}

// HandleCommand processes one WebSocket command
func (h *CommandHandler) HandleCommand(ctx context.Context, conn *Conn, cmd map[string]interface{}) {
	op, _ := cmd["op"].(string)
	data, _ := cmd["data"].(map[string]interface{})
	msgID, _ := cmd["id"].(string)

	switch op {
	case "getInteraction":
		h.handleGetInteraction(ctx, conn, msgID, data)
	case "markRead":
		h.handleMarkRead(ctx, conn, msgID, data)
	case "respond":
		h.handleRespond(ctx, conn, msgID, data)
	case "approveResponse":
		h.handleApproveResponse(ctx, conn, msgID, data)
	case "rejectResponse":
		h.handleRejectResponse(ctx, conn, msgID, data)
	case "bulkAction":
		h.handleBulkAction(ctx, conn, msgID, data)
	default:
		h.sendError(conn, msgID, "unknown_command", "Unknown command: "+op)
	}
}

func (h *CommandHandler) handleGetInteraction(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	id, _ := data["interactionId"].(string)
	if id == "" {
		h.sendError(conn, msgID, "invalid_input", "interactionId required")
		return
	}

	in, err := h.interactionSvc.GetInteraction(ctx, id)
	if err != nil {
		h.sendError(conn, msgID, "not_found", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": in,
	})
}

func (h *CommandHandler) handleMarkRead(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	id, _ := data["interactionId"].(string)
	if id == "" {
		h.sendError(conn, msgID, "invalid_input", "interactionId required")
		return
	}

	if err := h.interactionSvc.MarkRead(ctx, id); err != nil {
		h.sendError(conn, msgID, "update_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": "read"},
	})
}

func (h *CommandHandler) handleRespond(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	id, _ := data["interactionId"].(string)
	text, _ := data["text"].(string)
	sendNow, _ := data["sendImmediately"].(bool)
	queue, _ := data["addToApprovalQueue"].(bool)

	if id == "" || text == "" {
		h.sendError(conn, msgID, "invalid_input", "interactionId and text required")
		return
	}

	err := h.interactionSvc.Respond(ctx, id, service.RespondInput{
		Text:               text,
		SendImmediately:    sendNow,
		AddToApprovalQueue: queue,
	})
	if err != nil {
		h.sendError(conn, msgID, "respond_failed", err.Error())
		return
	}

	status := "awaiting_approval"
	if sendNow {
		status = "replied"
	}
	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": status},
	})
}

func (h *CommandHandler) handleApproveResponse(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	id, _ := data["interactionId"].(string)
	if id == "" {
		h.sendError(conn, msgID, "invalid_input", "interactionId required")
		return
	}

	if err := h.interactionSvc.ApproveResponse(ctx, id); err != nil {
		h.sendError(conn, msgID, "approve_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": "replied"},
	})
}

func (h *CommandHandler) handleRejectResponse(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	id, _ := data["interactionId"].(string)
	if id == "" {
		h.sendError(conn, msgID, "invalid_input", "interactionId required")
		return
	}

	if err := h.interactionSvc.RejectPendingResponse(ctx, id); err != nil {
		h.sendError(conn, msgID, "reject_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]string{"status": "rejected"},
	})
}

func (h *CommandHandler) handleBulkAction(ctx context.Context, conn *Conn, msgID string, data map[string]interface{}) {
	action, _ := data["action"].(string)
	rawIDs, _ := data["interactionIds"].([]interface{})

	var ids []string
	for _, v := range rawIDs {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	if action == "" || len(ids) == 0 {
		h.sendError(conn, msgID, "invalid_input", "action and interactionIds required")
		return
	}

	affected, err := h.interactionSvc.BulkAction(ctx, service.BulkActionInput{IDs: ids, Action: action})
	if err != nil {
		h.sendError(conn, msgID, "bulk_failed", err.Error())
		return
	}

	h.sendResponse(conn, msgID, map[string]interface{}{
		"type": "response",
		"data": map[string]interface{}{"affected": affected},
	})
}

func (h *CommandHandler) sendResponse(conn *Conn, msgID string, response map[string]interface{}) {
	if msgID != "" {
		response["id"] = msgID
	}
	msg, _ := json.Marshal(response)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send response, channel full")
	}
}

func (h *CommandHandler) sendError(conn *Conn, msgID, code, message string) {
	err := map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": message,
	}
	if msgID != "" {
		err["id"] = msgID
	}
	msg, _ := json.Marshal(err)
	select {
	case conn.send <- msg:
	default:
		h.log.Warn("Failed to send error, channel full")
	}
}
