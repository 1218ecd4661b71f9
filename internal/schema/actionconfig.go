package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"brandpulse/internal/model"

	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// actionSchemas declares what each action type requires of its config.
// Unknown keys are rejected so a dialect change in the builder UI can't
// smuggle stale parameters past save.
var actionSchemas = map[model.ActionType]string{
	model.ActionAutoRespond: `{
		"type": "object",
		"properties": {
			"response_text": {"type": "string", "minLength": 1, "maxLength": 5000}
		},
		"required": ["response_text"],
		"additionalProperties": false
	}`,
	model.ActionGenerateResponse: `{
		"type": "object",
		"properties": {
			"tone": {"type": "string", "maxLength": 100},
			"ai_instructions": {"type": "string", "maxLength": 2000}
		},
		"additionalProperties": false
	}`,
	model.ActionModerate: `{
		"type": "object",
		"properties": {
			"moderation": {
				"type": "object",
				"propertyNames": {"enum": ["comment", "dm", "mention"]},
				"additionalProperties": {"enum": ["delete_comment", "block_author"]}
			}
		},
		"additionalProperties": false
	}`,
	model.ActionArchive: `{
		"type": "object",
		"additionalProperties": false
	}`,
	model.ActionFlagForReview: `{
		"type": "object",
		"properties": {
			"review_priority": {"enum": ["low", "medium", "high"]}
		},
		"additionalProperties": false
	}`,
	model.ActionAddTag: `{
		"type": "object",
		"properties": {
			"tags": {
				"type": "array",
				"items": {"type": "string", "minLength": 1, "maxLength": 64},
				"minItems": 1,
				"uniqueItems": true
			}
		},
		"required": ["tags"],
		"additionalProperties": false
	}`,
}

// ActionConfigValidator validates workflow action configs against the
// per-action JSON Schema at save time.
type ActionConfigValidator struct {
	compiled map[model.ActionType]*js.Schema
}

// NewActionConfigValidator compiles the built-in schemas
func NewActionConfigValidator() (*ActionConfigValidator, error) {
	compiled := make(map[model.ActionType]*js.Schema, len(actionSchemas))
	for action, src := range actionSchemas {
		c := js.NewCompiler()
		url := fmt.Sprintf("mem://actions/%s.json", action)
		if err := c.AddResource(url, bytes.NewReader([]byte(src))); err != nil {
			return nil, fmt.Errorf("failed to add schema for %s: %w", action, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", action, err)
		}
		compiled[action] = s
	}
	return &ActionConfigValidator{compiled: compiled}, nil
}

// Validate checks the config against the schema for the action type
func (v *ActionConfigValidator) Validate(action model.ActionType, config model.ActionConfig) error {
	s, ok := v.compiled[action]
	if !ok {
		return fmt.Errorf("unknown action type: %s", action)
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("failed to unmarshal action config: %w", err)
	}

	if err := s.Validate(value); err != nil {
		return fmt.Errorf("action config invalid for %s: %w", action, err)
	}
	return nil
}
