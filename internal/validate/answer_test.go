package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestAnswer(t *testing.T) {
	text := model.Question{QuestionTitle: "Name", QuestionType: model.QuestionTypeText, IsRequired: true}
	textAllowed := text
	textAllowed.IsSpecialCharsAllowed = true
	email := model.Question{QuestionTitle: "Email", QuestionType: model.QuestionTypeEmail}
	year := model.Question{QuestionTitle: "Born", QuestionType: model.QuestionTypeNumber, NumberType: model.NumberTypeYear}
	plain := model.Question{QuestionTitle: "Count", QuestionType: model.QuestionTypeNumber, NumberType: model.NumberTypePlain}
	rng := model.Question{
		QuestionTitle: "Score",
		QuestionType:  model.QuestionTypeNumber,
		NumberType:    model.NumberTypeRange,
		MinValue:      ptr(1),
		MaxValue:      ptr(10),
	}
	sel := model.Question{QuestionTitle: "Pick", QuestionType: model.QuestionTypeSelect, IsRequired: true}

	tests := []struct {
		name  string
		q     model.Question
		value string
		want  string
	}{
		{"required empty", text, "", MsgRequired},
		{"optional empty", email, "", ""},
		{"special char", text, "Jo!n", MsgSpecialChars},
		{"clean text", text, "John", ""},
		{"special chars allowed", textAllowed, "Jo!n", ""},
		{"valid email", email, "a.b+c@example.co", ""},
		{"email without tld", email, "a@example", MsgInvalidEmail},
		{"email one letter tld", email, "a@example.c", MsgInvalidEmail},
		{"email with space", email, "a b@example.com", MsgInvalidEmail},
		{"year 1900", year, "1900", ""},
		{"year 2099", year, "2099", ""},
		{"year 1899", year, "1899", MsgInvalidYear},
		{"year 2100", year, "2100", MsgInvalidYear},
		{"year five digits", year, "19000", MsgInvalidYear},
		{"range low edge", rng, "1", ""},
		{"range high edge", rng, "10", ""},
		{"range below", rng, "0", "Please set value between 1 and 10"},
		{"range above", rng, "10.5", "Please set value between 1 and 10"},
		{"range not numeric", rng, "abc", "Please set value between 1 and 10"},
		{"range surrounding spaces", rng, " 5 ", ""},
		{"range spaced out of range", rng, " 15 ", "Please set value between 1 and 10"},
		{"plain number unconstrained", plain, "-42", ""},
		{"select required empty", sel, "", MsgRequired},
		{"select any value", sel, "whatever", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Answer(tt.q, tt.value)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.q.QuestionTitle, fe.Key)
		})
	}
}

func TestAnswer_OpenRange(t *testing.T) {
	q := model.Question{
		QuestionTitle: "Min only",
		QuestionType:  model.QuestionTypeNumber,
		NumberType:    model.NumberTypeRange,
		MinValue:      ptr(0.5),
	}

	assert.NoError(t, Answer(q, "1000000"))
	err := Answer(q, "0.25")
	require.Error(t, err)
	assert.Equal(t, "Please set value between 0.5 and -", err.Error())
}

func TestPatterns(t *testing.T) {
	for _, c := range `!@#$%^&*()_+-=[]{};':"\|,.<>/?` {
		assert.True(t, HasSpecialCharacters("a"+string(c)+"b"), "char %q", c)
	}
	assert.False(t, HasSpecialCharacters("plain words 123"))
	assert.False(t, HasSpecialCharacters("tilde~backtick`"))

	assert.True(t, IsValidEmail("user_name%tag@sub.domain.org"))
	assert.False(t, IsValidEmail("@domain.com"))
}

func TestWholeForm(t *testing.T) {
	qs := []model.Question{
		{QuestionTitle: "Name", QuestionType: model.QuestionTypeText, IsRequired: true},
		{QuestionTitle: "Pick", QuestionType: model.QuestionTypeSelect, IsRequired: true},
		{QuestionTitle: "Email", QuestionType: model.QuestionTypeEmail},
	}

	errs, valid := WholeForm(qs, map[string]string{"Name": "John", "Email": "nope"})
	assert.False(t, valid)
	assert.Equal(t, map[string]string{
		"Pick":  MsgFieldRequired,
		"Email": MsgInvalidEmail,
	}, errs)

	errs, valid = WholeForm(qs, map[string]string{"Name": "John", "Pick": "a"})
	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestFormError(t *testing.T) {
	var err error = &FormError{Errors: map[string]string{"a": "x", "b": "y"}}
	assert.Equal(t, "form has 2 invalid answer(s)", err.Error())
}

func TestAnswer_Properties(t *testing.T) {
	email := model.Question{QuestionType: model.QuestionTypeEmail}
	assert.NoError(t, Answer(email, "a@b.co"))
	assert.Error(t, Answer(email, "a@b"))
	assert.Error(t, Answer(email, "a@@b.com"))

	year := model.Question{QuestionType: model.QuestionTypeNumber, NumberType: model.NumberTypeYear}
	for _, ok := range []string{"1999", "2023"} {
		assert.NoError(t, Answer(year, ok), ok)
	}
	for _, bad := range []string{"1899", "2100", "abcd"} {
		assert.Error(t, Answer(year, bad), bad)
	}

	rng := model.Question{
		QuestionType: model.QuestionTypeNumber,
		NumberType:   model.NumberTypeRange,
		MinValue:     ptr(10),
		MaxValue:     ptr(20),
	}
	for _, ok := range []string{"10", "20"} {
		assert.NoError(t, Answer(rng, ok), ok)
	}
	for _, bad := range []string{"9", "21"} {
		assert.Error(t, Answer(rng, bad), bad)
	}
}

func TestWholeForm_RequiredSelect(t *testing.T) {
	qs := []model.Question{{
		QuestionTitle:   "Color",
		QuestionType:    model.QuestionTypeSelect,
		IsRequired:      true,
		DropdownOptions: []string{"Red", "Blue"},
	}}

	errs, valid := WholeForm(qs, map[string]string{})
	assert.False(t, valid)
	assert.Equal(t, "Field is required", errs["Color"])
}
