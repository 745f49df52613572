package model

import (
	"fmt"
	"time"
)

// DefaultFormTitle returns the title given to a new form when count forms
// already exist.
func DefaultFormTitle(count int) string {
	return fmt.Sprintf("Form %d", count+1)
}

// DefaultQuestion is the mandatory first question of a new form. It is a
// TEXT question with YEAR preselected as its number type, so switching it to
// NUMBER yields a valid definition.
func DefaultQuestion() Question {
	return Question{
		QuestionType: QuestionTypeText,
		NumberType:   NumberTypeYear,
	}
}

// NewQuestion is the question appended by "add question". Unlike
// DefaultQuestion it carries no number type.
func NewQuestion() Question {
	return Question{
		QuestionType: QuestionTypeText,
	}
}

// NewForm builds an unsubmitted form holding one default question.
func NewForm(id, title string, createdAt time.Time) Form {
	return Form{
		ID:        id,
		Title:     title,
		CreatedAt: createdAt.UTC(),
		Questions: []Question{DefaultQuestion()},
	}
}
