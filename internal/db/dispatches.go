package db

import (
	"context"
	"time"

	"brandpulse/internal/model"
)

// RecordDispatch writes the audit record of one dispatch pass
func (q *Queries) RecordDispatch(ctx context.Context, d *model.Dispatch) error {
	var workflowID *string
	if d.WorkflowID != nil {
		workflowID = d.WorkflowID
	}
	var actionType *string
	if d.ActionType != nil {
		s := string(*d.ActionType)
		actionType = &s
	}
	_, err := q.Pool.Exec(ctx,
		`INSERT INTO dispatches (id, interaction_id, workflow_id, action_type, outcome, evaluated, ai_calls, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))`,
		d.ID, d.InteractionID, workflowID, actionType, string(d.Outcome), d.Evaluated, d.AICalls, d.Error)
	return err
}

// OverviewStats aggregates the analytics overview for the last N days
type OverviewStats struct {
	TotalInteractions int64
	ByStatus          map[string]int64
	ByPlatform        map[string]int64
	Dispatched        int64
	Exhausted         int64
	Failed            int64
	AICalls           int64
}

func (q *Queries) GetOverviewStats(ctx context.Context, since time.Time) (*OverviewStats, error) {
	stats := &OverviewStats{
		ByStatus:   make(map[string]int64),
		ByPlatform: make(map[string]int64),
	}

	rows, err := q.Pool.Query(ctx,
		`SELECT status, COUNT(*) FROM interactions WHERE created_at >= $1 GROUP BY status`, since)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.TotalInteractions += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Pool.Query(ctx,
		`SELECT platform, COUNT(*) FROM interactions WHERE created_at >= $1 GROUP BY platform`, since)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var platform string
		var count int64
		if err := rows.Scan(&platform, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByPlatform[platform] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = q.Pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE outcome = 'dispatched'),
			COUNT(*) FILTER (WHERE outcome = 'exhausted'),
			COUNT(*) FILTER (WHERE outcome = 'failed'),
			COALESCE(SUM(ai_calls), 0)
		FROM dispatches WHERE created_at >= $1`,
		since).Scan(&stats.Dispatched, &stats.Exhausted, &stats.Failed, &stats.AICalls)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// WorkflowStats aggregates per-workflow dispatch activity
type WorkflowStats struct {
	WorkflowID string
	Name       string
	ActionType string
	Matches    int64
	Failures   int64
	AICalls    int64
}

func (q *Queries) GetWorkflowStats(ctx context.Context, since time.Time) ([]WorkflowStats, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT w.id, w.name, w.action_type,
			COUNT(d.id) FILTER (WHERE d.outcome = 'dispatched'),
			COUNT(d.id) FILTER (WHERE d.outcome = 'failed'),
			COALESCE(SUM(d.ai_calls), 0)
		FROM workflows w
		LEFT JOIN dispatches d ON d.workflow_id = w.id AND d.created_at >= $1
		GROUP BY w.id, w.name, w.action_type
		ORDER BY COUNT(d.id) FILTER (WHERE d.outcome = 'dispatched') DESC`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]WorkflowStats, 0)
	for rows.Next() {
		var s WorkflowStats
		if err := rows.Scan(&s.WorkflowID, &s.Name, &s.ActionType, &s.Matches, &s.Failures, &s.AICalls); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
