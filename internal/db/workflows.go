package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brandpulse/internal/engine"
	"brandpulse/internal/model"

	"github.com/jackc/pgx/v5"
)

// ErrSystemWorkflow is returned when a delete targets a system workflow
var ErrSystemWorkflow = errors.New("system workflows cannot be deleted")

const workflowColumns = `id, name, status, priority, view_ids, platforms, interaction_types,
	conditions, action_type, action_config, system_type, created_at, updated_at`

// evaluation order: system tier first (auto_moderator, then
// auto_archive), then user workflows ascending by priority
const workflowOrder = `ORDER BY (system_type IS NULL),
	CASE system_type WHEN 'auto_moderator' THEN 0 WHEN 'auto_archive' THEN 1 ELSE 2 END,
	priority ASC`

type workflowRow struct {
	ID               string
	Name             string
	Status           string
	Priority         int
	ViewIDs          []string
	Platforms        []string
	InteractionTypes []string
	Conditions       []byte
	ActionType       string
	ActionConfig     []byte
	SystemType       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func scanWorkflow(row pgx.Row) (*model.Workflow, error) {
	var r workflowRow
	if err := row.Scan(
		&r.ID, &r.Name, &r.Status, &r.Priority, &r.ViewIDs, &r.Platforms, &r.InteractionTypes,
		&r.Conditions, &r.ActionType, &r.ActionConfig, &r.SystemType, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return rowToWorkflow(r)
}

func rowToWorkflow(r workflowRow) (*model.Workflow, error) {
	w := &model.Workflow{
		ID:       r.ID,
		Name:     r.Name,
		Status:   model.WorkflowStatus(r.Status),
		Priority: r.Priority,
		ViewIDs:  r.ViewIDs,
	}
	for _, p := range r.Platforms {
		w.Platforms = append(w.Platforms, model.Platform(p))
	}
	for _, t := range r.InteractionTypes {
		w.InteractionTypes = append(w.InteractionTypes, model.InteractionType(t))
	}
	if len(r.Conditions) > 0 {
		if err := json.Unmarshal(r.Conditions, &w.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions for workflow %s: %w", r.ID, err)
		}
	}
	if w.Conditions == nil {
		w.Conditions = []model.Condition{}
	}
	w.ActionType = model.ActionType(r.ActionType)
	if len(r.ActionConfig) > 0 {
		if err := json.Unmarshal(r.ActionConfig, &w.ActionConfig); err != nil {
			return nil, fmt.Errorf("failed to decode action config for workflow %s: %w", r.ID, err)
		}
	}
	if r.SystemType != nil {
		st := model.SystemWorkflowType(*r.SystemType)
		w.SystemType = &st
	}
	w.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	w.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	return w, nil
}

type CreateWorkflowParams struct {
	ID               string
	Name             string
	Status           string
	ViewIDs          []string
	Platforms        []string
	InteractionTypes []string
	Conditions       []byte
	ActionType       string
	ActionConfig     []byte
}

// CreateWorkflow inserts a user workflow at the end of the user tier.
// The ordering row is locked for the duration of the insert so two
// concurrent creates cannot read the same MAX(priority) and collide;
// user-tier priorities stay unique.
func (q *Queries) CreateWorkflow(ctx context.Context, p CreateWorkflowParams) (*model.Workflow, error) {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT version FROM workflow_ordering WHERE id = 1 FOR UPDATE`); err != nil {
		return nil, fmt.Errorf("failed to lock ordering row: %w", err)
	}

	w, err := scanWorkflow(tx.QueryRow(ctx,
		`INSERT INTO workflows (
			id, name, status, priority, view_ids, platforms, interaction_types,
			conditions, action_type, action_config
		) VALUES (
			$1, $2, $3,
			(SELECT COALESCE(MAX(priority), 0) + 1 FROM workflows WHERE system_type IS NULL),
			$4, $5, $6, $7, $8, $9
		)
		RETURNING `+workflowColumns,
		p.ID, p.Name, p.Status, p.ViewIDs, p.Platforms, p.InteractionTypes,
		p.Conditions, p.ActionType, p.ActionConfig,
	))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (q *Queries) GetWorkflowByID(ctx context.Context, id string) (*model.Workflow, error) {
	return scanWorkflow(q.Pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = $1`, id))
}

// ListWorkflows returns every workflow in evaluation order
func (q *Queries) ListWorkflows(ctx context.Context) ([]model.Workflow, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT `+workflowColumns+` FROM workflows `+workflowOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

// ListActiveWorkflowsOrdered returns active workflows in evaluation
// order together with the ordering version, as one snapshot.
func (q *Queries) ListActiveWorkflowsOrdered(ctx context.Context) ([]model.Workflow, int64, error) {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	var version int64
	if err := tx.QueryRow(ctx,
		`SELECT version FROM workflow_ordering WHERE id = 1`).Scan(&version); err != nil {
		return nil, 0, fmt.Errorf("failed to read ordering version: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE status = 'active' `+workflowOrder)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	ws, err := collectWorkflows(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}
	return ws, version, nil
}

func collectWorkflows(rows pgx.Rows) ([]model.Workflow, error) {
	var ws []model.Workflow
	for rows.Next() {
		var r workflowRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Status, &r.Priority, &r.ViewIDs, &r.Platforms, &r.InteractionTypes,
			&r.Conditions, &r.ActionType, &r.ActionConfig, &r.SystemType, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		w, err := rowToWorkflow(r)
		if err != nil {
			return nil, err
		}
		ws = append(ws, *w)
	}
	return ws, rows.Err()
}

type UpdateWorkflowParams struct {
	ID               string
	Name             string
	ViewIDs          []string
	Platforms        []string
	InteractionTypes []string
	Conditions       []byte
	ActionType       string
	ActionConfig     []byte
}

// UpdateWorkflow replaces a user workflow's editable fields
func (q *Queries) UpdateWorkflow(ctx context.Context, p UpdateWorkflowParams) (*model.Workflow, error) {
	return scanWorkflow(q.Pool.QueryRow(ctx,
		`UPDATE workflows SET
			name = $2, view_ids = $3, platforms = $4, interaction_types = $5,
			conditions = $6, action_type = $7, action_config = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workflowColumns,
		p.ID, p.Name, p.ViewIDs, p.Platforms, p.InteractionTypes,
		p.Conditions, p.ActionType, p.ActionConfig,
	))
}

// UpdateWorkflowConditions updates only the condition list. System
// workflows expose nothing else for editing besides status.
func (q *Queries) UpdateWorkflowConditions(ctx context.Context, id string, conditions []byte) (*model.Workflow, error) {
	return scanWorkflow(q.Pool.QueryRow(ctx,
		`UPDATE workflows SET conditions = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+workflowColumns,
		id, conditions,
	))
}

func (q *Queries) UpdateWorkflowStatus(ctx context.Context, id, status string) error {
	result, err := q.Pool.Exec(ctx,
		`UPDATE workflows SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteWorkflow removes a user workflow. The system tier is guarded
// here as well as in the service layer.
func (q *Queries) DeleteWorkflow(ctx context.Context, id string) error {
	var isSystem bool
	err := q.Pool.QueryRow(ctx,
		`SELECT system_type IS NOT NULL FROM workflows WHERE id = $1`, id).Scan(&isSystem)
	if err != nil {
		return err
	}
	if isSystem {
		return ErrSystemWorkflow
	}
	result, err := q.Pool.Exec(ctx,
		`DELETE FROM workflows WHERE id = $1 AND system_type IS NULL`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// OrderingVersion reads the current reorder version
func (q *Queries) OrderingVersion(ctx context.Context) (int64, error) {
	var version int64
	err := q.Pool.QueryRow(ctx,
		`SELECT version FROM workflow_ordering WHERE id = 1`).Scan(&version)
	return version, err
}

// ReorderWorkflows applies a full user-tier ordering in one transaction
// with a compare-and-swap on the ordering version, so concurrent
// dispatch never observes a half-applied ordering.
func (q *Queries) ReorderWorkflows(ctx context.Context, ids []string, expectedVersion int64) error {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var version int64
	if err := tx.QueryRow(ctx,
		`SELECT version FROM workflow_ordering WHERE id = 1 FOR UPDATE`).Scan(&version); err != nil {
		return fmt.Errorf("failed to lock ordering version: %w", err)
	}
	if version != expectedVersion {
		return engine.ErrStaleOrdering
	}

	for i, id := range ids {
		result, err := tx.Exec(ctx,
			`UPDATE workflows SET priority = $2, updated_at = NOW()
			WHERE id = $1 AND system_type IS NULL`,
			id, i+1)
		if err != nil {
			return fmt.Errorf("failed to reorder workflow %s: %w", id, err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("workflow %s not found in user tier", id)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE workflow_ordering SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to bump ordering version: %w", err)
	}
	return tx.Commit(ctx)
}
