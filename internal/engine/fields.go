package engine

import (
	"fmt"
	"strconv"
	"strings"

	"brandpulse/internal/model"
)

// FieldType drives which operators a condition field accepts
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumeric FieldType = "numeric"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
)

// ConditionFields is the registry of fields a field-based condition may
// reference, with the type that determines its operator set.
var ConditionFields = map[string]FieldType{
	"content":          FieldText,
	"author_handle":    FieldText,
	"platform":         FieldSelect,
	"interaction_type": FieldSelect,
	"follower_count":   FieldNumeric,
	"like_count":       FieldNumeric,
	"author_verified":  FieldBoolean,
}

var operatorsByType = map[FieldType][]model.Operator{
	FieldText: {model.OpContains, model.OpNotContains, model.OpEquals, model.OpNotEquals},
	FieldNumeric: {model.OpEquals, model.OpNotEquals, model.OpGreaterThan, model.OpLessThan,
		model.OpGreaterOrEqual, model.OpLessOrEqual},
	FieldBoolean: {model.OpEquals, model.OpNotEquals},
	FieldSelect:  {model.OpEquals, model.OpNotEquals},
}

func operatorAllowed(t FieldType, op model.Operator) bool {
	for _, o := range operatorsByType[t] {
		if o == op {
			return true
		}
	}
	return false
}

// fieldValue extracts the condition field's value from an interaction.
// Numeric fields come back as float64, boolean as bool, rest as string.
func fieldValue(in *model.Interaction, field string) (interface{}, error) {
	switch field {
	case "content":
		return in.Content, nil
	case "author_handle":
		return in.AuthorHandle, nil
	case "platform":
		return string(in.Platform), nil
	case "interaction_type":
		return string(in.Type), nil
	case "follower_count":
		return float64(in.FollowerCount), nil
	case "like_count":
		return float64(in.LikeCount), nil
	case "author_verified":
		return in.AuthorVerified, nil
	}
	return nil, fmt.Errorf("unknown condition field: %s", field)
}

// evalFieldCondition applies one typed field predicate to an interaction
func evalFieldCondition(c model.Condition, in *model.Interaction) (bool, error) {
	ft, ok := ConditionFields[c.Field]
	if !ok {
		return false, fmt.Errorf("unknown condition field: %s", c.Field)
	}
	if !operatorAllowed(ft, c.Operator) {
		return false, fmt.Errorf("operator %s not valid for %s field %s", c.Operator, ft, c.Field)
	}

	val, err := fieldValue(in, c.Field)
	if err != nil {
		return false, err
	}

	switch ft {
	case FieldText:
		return evalText(val.(string), c.Operator, c.Value), nil
	case FieldSelect:
		eq := strings.EqualFold(val.(string), c.Value)
		if c.Operator == model.OpNotEquals {
			return !eq, nil
		}
		return eq, nil
	case FieldBoolean:
		want, err := strconv.ParseBool(c.Value)
		if err != nil {
			return false, fmt.Errorf("boolean condition value %q: %w", c.Value, err)
		}
		eq := val.(bool) == want
		if c.Operator == model.OpNotEquals {
			return !eq, nil
		}
		return eq, nil
	case FieldNumeric:
		want, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false, fmt.Errorf("numeric condition value %q: %w", c.Value, err)
		}
		return evalNumeric(val.(float64), c.Operator, want), nil
	}
	return false, fmt.Errorf("unhandled field type: %s", ft)
}

func evalText(have string, op model.Operator, want string) bool {
	switch op {
	case model.OpContains:
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	case model.OpNotContains:
		return !strings.Contains(strings.ToLower(have), strings.ToLower(want))
	case model.OpEquals:
		return strings.EqualFold(have, want)
	case model.OpNotEquals:
		return !strings.EqualFold(have, want)
	}
	return false
}

func evalNumeric(have float64, op model.Operator, want float64) bool {
	switch op {
	case model.OpEquals:
		return have == want
	case model.OpNotEquals:
		return have != want
	case model.OpGreaterThan:
		return have > want
	case model.OpLessThan:
		return have < want
	case model.OpGreaterOrEqual:
		return have >= want
	case model.OpLessOrEqual:
		return have <= want
	}
	return false
}
