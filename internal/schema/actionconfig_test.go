package schema

import (
	"testing"

	"brandpulse/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *ActionConfigValidator {
	t.Helper()
	v, err := NewActionConfigValidator()
	require.NoError(t, err)
	return v
}

func TestValidateAutoRespond(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionAutoRespond,
		model.ActionConfig{ResponseText: "Thanks for the kind words!"}))

	// response_text is required
	assert.Error(t, v.Validate(model.ActionAutoRespond, model.ActionConfig{}))

	// stale parameters from another action are rejected
	assert.Error(t, v.Validate(model.ActionAutoRespond,
		model.ActionConfig{ResponseText: "hi", Tags: []string{"x"}}))
}

func TestValidateGenerateResponse(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionGenerateResponse, model.ActionConfig{}))
	assert.NoError(t, v.Validate(model.ActionGenerateResponse,
		model.ActionConfig{Tone: "casual", AIInstructions: "offer a discount code"}))

	assert.Error(t, v.Validate(model.ActionGenerateResponse,
		model.ActionConfig{ResponseText: "fixed text"}))
}

func TestValidateAddTag(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionAddTag,
		model.ActionConfig{Tags: []string{"vip", "lead"}}))

	// tags must be present and non-empty
	assert.Error(t, v.Validate(model.ActionAddTag, model.ActionConfig{}))
	assert.Error(t, v.Validate(model.ActionAddTag, model.ActionConfig{Tags: []string{}}))
	assert.Error(t, v.Validate(model.ActionAddTag, model.ActionConfig{Tags: []string{"dup", "dup"}}))
}

func TestValidateModerate(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionModerate, model.ActionConfig{}))
	assert.NoError(t, v.Validate(model.ActionModerate, model.ActionConfig{
		Moderation: map[model.InteractionType]model.ModerationVerb{
			model.InteractionComment: model.VerbDeleteComment,
			model.InteractionDM:      model.VerbBlockAuthor,
		},
	}))

	assert.Error(t, v.Validate(model.ActionModerate, model.ActionConfig{
		Moderation: map[model.InteractionType]model.ModerationVerb{
			model.InteractionComment: "shadowban",
		},
	}))
}

func TestValidateFlagForReview(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionFlagForReview, model.ActionConfig{}))
	assert.NoError(t, v.Validate(model.ActionFlagForReview, model.ActionConfig{ReviewPriority: "medium"}))
	assert.Error(t, v.Validate(model.ActionFlagForReview, model.ActionConfig{ReviewPriority: "urgent"}))
}

func TestValidateArchiveRejectsAnyConfig(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(model.ActionArchive, model.ActionConfig{}))
	assert.Error(t, v.Validate(model.ActionArchive, model.ActionConfig{Tone: "calm"}))
}

func TestValidateUnknownAction(t *testing.T) {
	v := newValidator(t)
	assert.Error(t, v.Validate("escalate", model.ActionConfig{}))
}
