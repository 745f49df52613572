package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names an editable attribute of a Question. Values are the JSON field
// names, so they double as keys in validation error maps.
type Field string

const (
	FieldQuestionTitle         Field = "questionTitle"
	FieldQuestionType          Field = "questionType"
	FieldIsRequired            Field = "isRequired"
	FieldIsHidden              Field = "isHidden"
	FieldHelperText            Field = "helperText"
	FieldNumberType            Field = "numberType"
	FieldMinValue              Field = "minValue"
	FieldMaxValue              Field = "maxValue"
	FieldDefaultValue          Field = "defaultValue"
	FieldDropdownOptions       Field = "dropdownOptions"
	FieldIsSpecialCharsAllowed Field = "isSpecialCharsAllowed"
	FieldIsDescription         Field = "isDescription"
)

// Fields lists every editable field in declaration order.
var Fields = []Field{
	FieldQuestionTitle,
	FieldQuestionType,
	FieldIsRequired,
	FieldIsHidden,
	FieldHelperText,
	FieldNumberType,
	FieldMinValue,
	FieldMaxValue,
	FieldDefaultValue,
	FieldDropdownOptions,
	FieldIsSpecialCharsAllowed,
	FieldIsDescription,
}

var (
	// ErrUnknownField is returned when editing a field that does not exist.
	ErrUnknownField = errors.New("unknown question field")

	// ErrInvalidFieldValue is returned when a value cannot be converted to
	// the field's type.
	ErrInvalidFieldValue = errors.New("invalid field value")
)

// ParseField converts a field name into a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// With returns a copy of q with field set to value. q is not modified.
//
// Values may be given in their native Go type or as strings, the way a form
// input delivers them: "true"/"false" for booleans, decimal text for numbers
// (empty clears the bound), and comma separated text for dropdown options.
func (q Question) With(field Field, value any) (Question, error) {
	out := q.Clone()
	var err error

	switch field {
	case FieldQuestionTitle:
		out.QuestionTitle, err = asString(value)
	case FieldHelperText:
		out.HelperText, err = asString(value)
	case FieldDefaultValue:
		out.DefaultValue, err = asString(value)
	case FieldQuestionType:
		var s string
		if s, err = asString(value); err == nil {
			t := QuestionType(s)
			if t != "" && !ValidQuestionTypes[t] {
				err = fmt.Errorf("question type %q", s)
			}
			out.QuestionType = t
		}
	case FieldNumberType:
		var s string
		if s, err = asString(value); err == nil {
			t := NumberType(s)
			if t != "" && !ValidNumberTypes[t] {
				err = fmt.Errorf("number type %q", s)
			}
			out.NumberType = t
		}
	case FieldIsRequired:
		out.IsRequired, err = asBool(value)
	case FieldIsHidden:
		out.IsHidden, err = asBool(value)
	case FieldIsSpecialCharsAllowed:
		out.IsSpecialCharsAllowed, err = asBool(value)
	case FieldIsDescription:
		out.IsDescription, err = asBool(value)
	case FieldMinValue:
		out.MinValue, err = asNumber(value)
	case FieldMaxValue:
		out.MaxValue, err = asNumber(value)
	case FieldDropdownOptions:
		var opts []string
		if opts, err = asOptions(value); err == nil {
			out.DropdownOptions = CleanOptions(opts)
		}
	default:
		return q, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if err != nil {
		return q, fmt.Errorf("%w: %s: %v", ErrInvalidFieldValue, field, err)
	}
	return out, nil
}

// CleanOptions drops empty options and repeated options, keeping the first
// occurrence of each. Order is otherwise preserved.
func CleanOptions(opts []string) []string {
	if len(opts) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(opts))
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case QuestionType:
		return string(val), nil
	case NumberType:
		return string(val), nil
	case nil:
		return "", nil
	case fmt.Stringer:
		return val.String(), nil
	default:
		return "", fmt.Errorf("expected text, got %T", v)
	}
}

func asBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(val))
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func asNumber(v any) (*float64, error) {
	var f float64
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *float64:
		if val == nil {
			return nil, nil
		}
		f = *val
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		f = parsed
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
	return &f, nil
}

func asOptions(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, o := range val {
			s, ok := o.(string)
			if !ok {
				return nil, fmt.Errorf("option %d: expected text, got %T", i, o)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("expected options, got %T", v)
	}
}
