package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brandpulse/internal/db"
	"brandpulse/internal/engine"
	"brandpulse/internal/model"
	"brandpulse/internal/schema"

	"github.com/oklog/ulid/v2"
)

// ErrSystemActionReserved is returned when a user workflow claims a
// system-only action (moderate, archive).
var ErrSystemActionReserved = errors.New("moderate and archive actions are reserved for system workflows")

// ErrSystemWorkflowImmutable is returned when an edit touches anything
// but a system workflow's conditions.
var ErrSystemWorkflowImmutable = errors.New("system workflows only accept condition and status edits")

// EventBus is the slice of the pubsub bus the services publish through
type EventBus interface {
	PublishInteraction(interactionID string, event map[string]interface{}) error
	PublishView(viewID string, event map[string]interface{}) error
	PublishWorkflows(event map[string]interface{}) error
}

// WorkflowService owns workflow CRUD, validation, and ordering
type WorkflowService struct {
	queries   *db.Queries
	validator *schema.ActionConfigValidator
	bus       EventBus
}

func NewWorkflowService(queries *db.Queries, validator *schema.ActionConfigValidator, bus EventBus) *WorkflowService {
	return &WorkflowService{queries: queries, validator: validator, bus: bus}
}

// WorkflowInput is the builder payload for create and edit
type WorkflowInput struct {
	Name             string                  `json:"name"`
	Status           model.WorkflowStatus    `json:"status,omitempty"`
	ViewIDs          []string                `json:"viewIds,omitempty"`
	Platforms        []model.Platform        `json:"platforms,omitempty"`
	InteractionTypes []model.InteractionType `json:"interactionTypes,omitempty"`
	Conditions       []model.Condition       `json:"conditions"`
	ActionType       model.ActionType        `json:"actionType"`
	ActionConfig     model.ActionConfig      `json:"actionConfig"`
}

func (s *WorkflowService) validateInput(in WorkflowInput) error {
	if in.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	switch in.Status {
	case "", model.WorkflowActive, model.WorkflowPaused, model.WorkflowDraft:
	default:
		return fmt.Errorf("invalid workflow status: %s", in.Status)
	}
	for _, p := range in.Platforms {
		if !model.ValidPlatform(p) {
			return fmt.Errorf("invalid platform: %s", p)
		}
	}
	for _, t := range in.InteractionTypes {
		if !model.ValidInteractionType(t) {
			return fmt.Errorf("invalid interaction type: %s", t)
		}
	}
	if !model.ValidActionType(in.ActionType) {
		return fmt.Errorf("invalid action type: %s", in.ActionType)
	}
	if in.ActionType == model.ActionModerate || in.ActionType == model.ActionArchive {
		return ErrSystemActionReserved
	}
	if err := engine.ValidateConditions(in.Conditions); err != nil {
		return err
	}
	return s.validator.Validate(in.ActionType, in.ActionConfig)
}

// CreateWorkflow validates and stores a new user workflow at the end of
// the user tier.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, in WorkflowInput) (*model.Workflow, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = model.WorkflowDraft
	}
	conditions, config, err := encodeWorkflowJSON(in.Conditions, in.ActionConfig)
	if err != nil {
		return nil, err
	}

	w, err := s.queries.CreateWorkflow(ctx, db.CreateWorkflowParams{
		ID:               ulid.Make().String(),
		Name:             in.Name,
		Status:           string(status),
		ViewIDs:          in.ViewIDs,
		Platforms:        platformStrings(in.Platforms),
		InteractionTypes: typeStrings(in.InteractionTypes),
		Conditions:       conditions,
		ActionType:       string(in.ActionType),
		ActionConfig:     config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":       "workflow.created",
		"workflowId": w.ID,
	})
	return w, nil
}

// UpdateWorkflow edits a workflow. System workflows accept only
// condition changes; everything else about them is pinned.
func (s *WorkflowService) UpdateWorkflow(ctx context.Context, id string, in WorkflowInput) (*model.Workflow, error) {
	existing, err := s.queries.GetWorkflowByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("workflow not found: %w", err)
	}

	if existing.IsSystem() {
		return s.updateSystemWorkflow(ctx, existing, in)
	}

	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	conditions, config, err := encodeWorkflowJSON(in.Conditions, in.ActionConfig)
	if err != nil {
		return nil, err
	}

	w, err := s.queries.UpdateWorkflow(ctx, db.UpdateWorkflowParams{
		ID:               id,
		Name:             in.Name,
		ViewIDs:          in.ViewIDs,
		Platforms:        platformStrings(in.Platforms),
		InteractionTypes: typeStrings(in.InteractionTypes),
		Conditions:       conditions,
		ActionType:       string(in.ActionType),
		ActionConfig:     config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":       "workflow.updated",
		"workflowId": id,
	})
	return w, nil
}

func (s *WorkflowService) updateSystemWorkflow(ctx context.Context, existing *model.Workflow, in WorkflowInput) (*model.Workflow, error) {
	// Action semantics of system workflows are fixed. Reject edits that
	// try to change anything but the conditions.
	if in.ActionType != "" && in.ActionType != existing.ActionType {
		return nil, ErrSystemWorkflowImmutable
	}
	if in.Name != "" && in.Name != existing.Name {
		return nil, ErrSystemWorkflowImmutable
	}
	if err := engine.ValidateConditions(in.Conditions); err != nil {
		return nil, err
	}

	conditions, err := json.Marshal(in.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	w, err := s.queries.UpdateWorkflowConditions(ctx, existing.ID, conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":       "workflow.updated",
		"workflowId": existing.ID,
	})
	return w, nil
}

// DeleteWorkflow removes a user workflow; system workflows can only be
// paused, never deleted.
func (s *WorkflowService) DeleteWorkflow(ctx context.Context, id string) error {
	if err := s.queries.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":       "workflow.deleted",
		"workflowId": id,
	})
	return nil
}

// SetWorkflowStatus activates or pauses a workflow
func (s *WorkflowService) SetWorkflowStatus(ctx context.Context, id string, status model.WorkflowStatus) error {
	if status != model.WorkflowActive && status != model.WorkflowPaused {
		return fmt.Errorf("invalid target status: %s", status)
	}
	if err := s.queries.UpdateWorkflowStatus(ctx, id, string(status)); err != nil {
		return fmt.Errorf("failed to update workflow status: %w", err)
	}
	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":       "workflow.status_changed",
		"workflowId": id,
		"status":     string(status),
	})
	return nil
}

// ListWorkflows returns all workflows in evaluation order plus the
// ordering version the client must echo back on reorder.
func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]model.Workflow, int64, error) {
	ws, err := s.queries.ListWorkflows(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workflows: %w", err)
	}
	version, err := s.queries.OrderingVersion(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read ordering version: %w", err)
	}
	return ws, version, nil
}

// GetWorkflow fetches one workflow
func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	w, err := s.queries.GetWorkflowByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("workflow not found: %w", err)
	}
	return w, nil
}

// Reorder applies a full ordering of the user tier. Orderings that name
// a system workflow are rejected outright; a stale version is rejected
// so concurrent editors cannot silently overwrite each other.
func (s *WorkflowService) Reorder(ctx context.Context, ids []string, version int64) error {
	current, err := s.queries.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}
	if err := engine.ValidateOrdering(current, ids); err != nil {
		return err
	}
	if err := s.queries.ReorderWorkflows(ctx, ids, version); err != nil {
		return err
	}
	_ = s.bus.PublishWorkflows(map[string]interface{}{
		"type":        "workflows.reordered",
		"workflowIds": ids,
	})
	return nil
}

func encodeWorkflowJSON(conditions []model.Condition, config model.ActionConfig) ([]byte, []byte, error) {
	if conditions == nil {
		conditions = []model.Condition{}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode conditions: %w", err)
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode action config: %w", err)
	}
	return condJSON, configJSON, nil
}

func platformStrings(ps []model.Platform) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, string(p))
	}
	return out
}

func typeStrings(ts []model.InteractionType) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, string(t))
	}
	return out
}
