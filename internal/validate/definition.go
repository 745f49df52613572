package validate

import (
	"fmt"
	"strings"

	"github.com/roach88/formsync/internal/model"
)

// QuestionDefinition checks a question at authoring time and returns every
// failing rule's message. An empty result means the definition is valid.
func QuestionDefinition(q model.Question) []string {
	var errs []string

	if strings.TrimSpace(q.QuestionTitle) == "" {
		errs = append(errs, MsgTitleRequired)
	}

	if q.QuestionType == "" {
		errs = append(errs, MsgTypeRequired)
	}

	if q.QuestionType == model.QuestionTypeNumber && q.NumberType == "" {
		errs = append(errs, MsgNumberTypeRequired)
	}

	return errs
}

// JoinDefinitionErrors renders QuestionDefinition output the way it is shown
// under a question.
func JoinDefinitionErrors(errs []string) string {
	return strings.Join(errs, definitionSeparator)
}

// AllQuestionsValid reports whether every question passes
// QuestionDefinition.
func AllQuestionsValid(qs []model.Question) bool {
	for _, q := range qs {
		if len(QuestionDefinition(q)) > 0 {
			return false
		}
	}
	return true
}

// FieldOnBlur gives immediate feedback when the user leaves a builder field.
// Only the title, type and number type fields are checked; every other field
// yields "". The title is only checked when isRequired is set.
func FieldOnBlur(field model.Field, q model.Question, isRequired bool) string {
	switch field {
	case model.FieldQuestionTitle:
		if isRequired && strings.TrimSpace(q.QuestionTitle) == "" {
			return MsgBlurTitleRequired
		}
	case model.FieldQuestionType:
		if q.QuestionType == "" {
			return MsgBlurTypeRequired
		}
	case model.FieldNumberType:
		if q.QuestionType == model.QuestionTypeNumber && q.NumberType == "" {
			return MsgBlurNumberTypeRequired
		}
	}
	return ""
}

// DuplicateTitles reports question titles that cannot serve as distinct
// answer keys: titles shared by several questions and titles equal to the
// reserved responses key. Blank titles are left to QuestionDefinition.
func DuplicateTitles(qs []model.Question) []string {
	positions := make(map[string][]int)
	var order []string
	for i, q := range qs {
		key := model.ResponseKey(strings.TrimSpace(q.QuestionTitle))
		if key == "" {
			continue
		}
		if _, seen := positions[key]; !seen {
			order = append(order, key)
		}
		positions[key] = append(positions[key], i)
	}

	var problems []string
	for _, key := range order {
		if key == model.ReservedSubmittedKey {
			problems = append(problems, fmt.Sprintf(msgReservedTitle, key))
		}
		if idx := positions[key]; len(idx) > 1 {
			problems = append(problems, fmt.Sprintf(msgDuplicateTitle, key, idx))
		}
	}
	return problems
}
