package engine

import (
	"testing"

	"brandpulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflows() []model.Workflow {
	return []model.Workflow{
		{ID: "wf-b", Priority: 2},
		{ID: "system-auto-archive", Priority: 1, SystemType: sysType(model.SystemAutoArchive)},
		{ID: "wf-a", Priority: 1},
		{ID: "system-auto-moderator", Priority: 0, SystemType: sysType(model.SystemAutoModerator)},
		{ID: "wf-c", Priority: 3},
	}
}

func TestSortEvaluationOrder(t *testing.T) {
	ws := sampleWorkflows()
	SortEvaluationOrder(ws)

	ids := make([]string, len(ws))
	for i, w := range ws {
		ids[i] = w.ID
	}
	assert.Equal(t, []string{
		"system-auto-moderator", "system-auto-archive", "wf-a", "wf-b", "wf-c",
	}, ids)
}

func TestSortEvaluationOrderUserPriorityNeverBeatsSystemTier(t *testing.T) {
	ws := []model.Workflow{
		{ID: "wf-ambitious", Priority: -5},
		{ID: "system-auto-moderator", Priority: 100, SystemType: sysType(model.SystemAutoModerator)},
	}
	SortEvaluationOrder(ws)
	assert.Equal(t, "system-auto-moderator", ws[0].ID)
}

func TestValidateOrderingAcceptsFullUserTier(t *testing.T) {
	err := ValidateOrdering(sampleWorkflows(), []string{"wf-c", "wf-a", "wf-b"})
	assert.NoError(t, err)
}

func TestValidateOrderingRejectsSystemWorkflow(t *testing.T) {
	err := ValidateOrdering(sampleWorkflows(), []string{"system-auto-moderator", "wf-a", "wf-b", "wf-c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSystemWorkflowPinned)
}

func TestValidateOrderingRejectsUnknownID(t *testing.T) {
	err := ValidateOrdering(sampleWorkflows(), []string{"wf-a", "wf-b", "wf-nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown workflow id")
}

func TestValidateOrderingRejectsDuplicates(t *testing.T) {
	err := ValidateOrdering(sampleWorkflows(), []string{"wf-a", "wf-a", "wf-b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateOrderingRejectsPartialOrdering(t *testing.T) {
	err := ValidateOrdering(sampleWorkflows(), []string{"wf-a", "wf-b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user tier has 3")
}
