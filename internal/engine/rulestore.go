package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"brandpulse/internal/model"
)

// ErrSystemWorkflowPinned is returned when a reorder would move a
// system workflow or place a user workflow ahead of one.
var ErrSystemWorkflowPinned = errors.New("system workflows are pinned ahead of user workflows")

// ErrStaleOrdering is returned when a reorder carries a version that no
// longer matches the stored ordering version.
var ErrStaleOrdering = errors.New("workflow ordering changed since it was loaded")

// RuleSet is one consistent snapshot of the active workflow list, taken
// once per dispatch pass. Workflows are in evaluation order.
type RuleSet struct {
	Version   int64
	Workflows []model.Workflow
}

// RuleSource produces rule set snapshots. The database-backed
// implementation lives in internal/db.
type RuleSource interface {
	Snapshot(ctx context.Context) (*RuleSet, error)
}

// systemRank fixes the evaluation order within the system tier:
// auto_moderator first, auto_archive second.
func systemRank(t model.SystemWorkflowType) int {
	switch t {
	case model.SystemAutoModerator:
		return 0
	case model.SystemAutoArchive:
		return 1
	}
	return 2
}

// SortEvaluationOrder orders workflows for matching: system workflows
// first (in their fixed rank), then user workflows ascending by
// priority. Stored priority never lets a user workflow jump the
// system tier.
func SortEvaluationOrder(ws []model.Workflow) {
	sort.SliceStable(ws, func(i, j int) bool {
		si, sj := ws[i].IsSystem(), ws[j].IsSystem()
		if si != sj {
			return si
		}
		if si {
			return systemRank(*ws[i].SystemType) < systemRank(*ws[j].SystemType)
		}
		return ws[i].Priority < ws[j].Priority
	})
}

// ValidateOrdering checks a requested full ordering of the user tier
// against the current workflow list. The request must cover exactly the
// user-defined workflows; naming a system workflow, an unknown id, or
// omitting a user workflow rejects the whole reorder.
func ValidateOrdering(current []model.Workflow, requested []string) error {
	byID := make(map[string]*model.Workflow, len(current))
	userCount := 0
	for i := range current {
		byID[current[i].ID] = &current[i]
		if !current[i].IsSystem() {
			userCount++
		}
	}

	seen := make(map[string]bool, len(requested))
	for _, id := range requested {
		w, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown workflow id %q in ordering", id)
		}
		if w.IsSystem() {
			return ErrSystemWorkflowPinned
		}
		if seen[id] {
			return fmt.Errorf("duplicate workflow id %q in ordering", id)
		}
		seen[id] = true
	}
	if len(requested) != userCount {
		return fmt.Errorf("ordering names %d workflows, user tier has %d", len(requested), userCount)
	}
	return nil
}
