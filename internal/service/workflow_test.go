package service

import (
	"testing"

	"brandpulse/internal/engine"
	"brandpulse/internal/model"
	"brandpulse/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowServiceForValidation(t *testing.T) *WorkflowService {
	t.Helper()
	validator, err := schema.NewActionConfigValidator()
	require.NoError(t, err)
	return NewWorkflowService(nil, validator, nil)
}

func validWorkflowInput() WorkflowInput {
	return WorkflowInput{
		Name:      "Flag buying intent",
		Status:    model.WorkflowActive,
		Platforms: []model.Platform{model.PlatformInstagram},
		Conditions: []model.Condition{
			{Kind: model.ConditionField, Field: "content", Operator: model.OpContains, Value: "buy"},
		},
		ActionType:   model.ActionFlagForReview,
		ActionConfig: model.ActionConfig{ReviewPriority: "high"},
	}
}

func TestValidateInputAcceptsWellFormedWorkflow(t *testing.T) {
	s := newWorkflowServiceForValidation(t)
	assert.NoError(t, s.validateInput(validWorkflowInput()))
}

func TestValidateInputRequiresName(t *testing.T) {
	s := newWorkflowServiceForValidation(t)
	in := validWorkflowInput()
	in.Name = ""
	assert.ErrorContains(t, s.validateInput(in), "name is required")
}

func TestValidateInputRejectsBadEnums(t *testing.T) {
	s := newWorkflowServiceForValidation(t)

	in := validWorkflowInput()
	in.Status = "enabled"
	assert.ErrorContains(t, s.validateInput(in), "invalid workflow status")

	in = validWorkflowInput()
	in.Platforms = []model.Platform{"myspace"}
	assert.ErrorContains(t, s.validateInput(in), "invalid platform")

	in = validWorkflowInput()
	in.InteractionTypes = []model.InteractionType{"story"}
	assert.ErrorContains(t, s.validateInput(in), "invalid interaction type")

	in = validWorkflowInput()
	in.ActionType = "escalate"
	assert.ErrorContains(t, s.validateInput(in), "invalid action type")
}

func TestValidateInputReservesSystemActions(t *testing.T) {
	s := newWorkflowServiceForValidation(t)

	in := validWorkflowInput()
	in.ActionType = model.ActionModerate
	in.ActionConfig = model.ActionConfig{}
	assert.ErrorIs(t, s.validateInput(in), ErrSystemActionReserved)

	in.ActionType = model.ActionArchive
	assert.ErrorIs(t, s.validateInput(in), ErrSystemActionReserved)
}

func TestValidateInputRejectsMixedDialects(t *testing.T) {
	s := newWorkflowServiceForValidation(t)
	in := validWorkflowInput()
	in.Conditions = []model.Condition{
		{Kind: model.ConditionField, Field: "content", Operator: model.OpContains, Value: "buy"},
		{Kind: model.ConditionPrompt, Prompt: "Is this a purchase question?"},
	}
	assert.ErrorIs(t, s.validateInput(in), engine.ErrMixedConditionDialects)
}

func TestValidateInputRejectsInvalidActionConfig(t *testing.T) {
	s := newWorkflowServiceForValidation(t)
	in := validWorkflowInput()
	in.ActionType = model.ActionAutoRespond
	in.ActionConfig = model.ActionConfig{} // missing response_text
	assert.Error(t, s.validateInput(in))
}

func TestValidateInputAllowsEmptyConditions(t *testing.T) {
	s := newWorkflowServiceForValidation(t)
	in := validWorkflowInput()
	in.Conditions = nil
	assert.NoError(t, s.validateInput(in))
}
