package service

import (
	"context"
	"fmt"

	"brandpulse/internal/db"
	"brandpulse/internal/engine"
)

// DBRuleSource feeds the dispatch engine its workflow snapshots straight
// from Postgres. Every snapshot is read transactionally together with
// the ordering version, so dispatch never evaluates against a
// half-applied reorder.
type DBRuleSource struct {
	queries *db.Queries
}

func NewDBRuleSource(queries *db.Queries) *DBRuleSource {
	return &DBRuleSource{queries: queries}
}

func (s *DBRuleSource) Snapshot(ctx context.Context) (*engine.RuleSet, error) {
	ws, version, err := s.queries.ListActiveWorkflowsOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow snapshot: %w", err)
	}
	engine.SortEvaluationOrder(ws)
	return &engine.RuleSet{Version: version, Workflows: ws}, nil
}
