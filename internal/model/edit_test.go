package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionWith_DoesNotModifyReceiver(t *testing.T) {
	q := Question{QuestionTitle: "Old", DropdownOptions: []string{"a"}}

	out, err := q.With(FieldQuestionTitle, "New")
	require.NoError(t, err)

	assert.Equal(t, "New", out.QuestionTitle)
	assert.Equal(t, "Old", q.QuestionTitle)

	out.DropdownOptions[0] = "changed"
	assert.Equal(t, "a", q.DropdownOptions[0])
}

func TestQuestionWith_Conversions(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value any
		check func(t *testing.T, q Question)
	}{
		{"type from string", FieldQuestionType, "number", func(t *testing.T, q Question) {
			assert.Equal(t, QuestionTypeNumber, q.QuestionType)
		}},
		{"type typed", FieldQuestionType, QuestionTypeEmail, func(t *testing.T, q Question) {
			assert.Equal(t, QuestionTypeEmail, q.QuestionType)
		}},
		{"empty type clears", FieldQuestionType, "", func(t *testing.T, q Question) {
			assert.Empty(t, q.QuestionType)
		}},
		{"number type", FieldNumberType, "range", func(t *testing.T, q Question) {
			assert.Equal(t, NumberTypeRange, q.NumberType)
		}},
		{"bool from string", FieldIsRequired, "true", func(t *testing.T, q Question) {
			assert.True(t, q.IsRequired)
		}},
		{"bool native", FieldIsHidden, true, func(t *testing.T, q Question) {
			assert.True(t, q.IsHidden)
		}},
		{"min from text", FieldMinValue, "10", func(t *testing.T, q Question) {
			require.NotNil(t, q.MinValue)
			assert.Equal(t, 10.0, *q.MinValue)
		}},
		{"max from int", FieldMaxValue, 20, func(t *testing.T, q Question) {
			require.NotNil(t, q.MaxValue)
			assert.Equal(t, 20.0, *q.MaxValue)
		}},
		{"empty min clears", FieldMinValue, "", func(t *testing.T, q Question) {
			assert.Nil(t, q.MinValue)
		}},
		{"options cleaned", FieldDropdownOptions, []string{"Red", "", "Blue", "Red"}, func(t *testing.T, q Question) {
			assert.Equal(t, []string{"Red", "Blue"}, q.DropdownOptions)
		}},
		{"options from text", FieldDropdownOptions, "Red, Blue,,Red", func(t *testing.T, q Question) {
			assert.Equal(t, []string{"Red", "Blue"}, q.DropdownOptions)
		}},
		{"special chars", FieldIsSpecialCharsAllowed, "false", func(t *testing.T, q Question) {
			assert.False(t, q.IsSpecialCharsAllowed)
		}},
		{"description", FieldIsDescription, true, func(t *testing.T, q Question) {
			assert.True(t, q.IsDescription)
		}},
		{"default value", FieldDefaultValue, "Blue", func(t *testing.T, q Question) {
			assert.Equal(t, "Blue", q.DefaultValue)
		}},
		{"helper", FieldHelperText, "help", func(t *testing.T, q Question) {
			assert.Equal(t, "help", q.HelperText)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Question{MinValue: ptr(1)}.With(tt.field, tt.value)
			require.NoError(t, err)
			tt.check(t, q)
		})
	}
}

func TestQuestionWith_Errors(t *testing.T) {
	q := Question{QuestionTitle: "Keep"}

	_, err := q.With(Field("nope"), "x")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = q.With(FieldIsRequired, "maybe")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = q.With(FieldQuestionType, "date")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	_, err = q.With(FieldMinValue, "ten")
	assert.ErrorIs(t, err, ErrInvalidFieldValue)

	out, err := q.With(FieldQuestionTitle, 42)
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
	assert.Equal(t, q, out)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("numberType")
	require.NoError(t, err)
	assert.Equal(t, FieldNumberType, f)

	_, err = ParseField("id")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestCleanOptions(t *testing.T) {
	assert.Nil(t, CleanOptions(nil))
	assert.Nil(t, CleanOptions([]string{"", ""}))
	assert.Equal(t, []string{"a", "b"}, CleanOptions([]string{"a", "b", "a", ""}))
}
