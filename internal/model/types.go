package model

import (
	"slices"
	"time"
)

// QuestionType is the variant of a question.
type QuestionType string

const (
	QuestionTypeText   QuestionType = "text"
	QuestionTypeNumber QuestionType = "number"
	QuestionTypeSelect QuestionType = "select"
	QuestionTypeEmail  QuestionType = "email"
)

// ValidQuestionTypes defines the allowed question types.
var ValidQuestionTypes = map[QuestionType]bool{
	QuestionTypeText:   true,
	QuestionTypeNumber: true,
	QuestionTypeSelect: true,
	QuestionTypeEmail:  true,
}

// NumberType refines a NUMBER question.
type NumberType string

const (
	// NumberTypePlain accepts any number.
	NumberTypePlain NumberType = "number"
	// NumberTypeRange accepts a number within [MinValue, MaxValue].
	NumberTypeRange NumberType = "range"
	// NumberTypeYear accepts a four digit year 1900-2099.
	NumberTypeYear NumberType = "year"
)

// ValidNumberTypes defines the allowed number types.
var ValidNumberTypes = map[NumberType]bool{
	NumberTypePlain: true,
	NumberTypeRange: true,
	NumberTypeYear:  true,
}

// Question is one field definition within a Form.
type Question struct {
	QuestionTitle string       `json:"questionTitle"`
	QuestionType  QuestionType `json:"questionType"`
	IsRequired    bool         `json:"isRequired"`
	IsHidden      bool         `json:"isHidden"`
	HelperText    string       `json:"helperText"`

	// NUMBER only.
	NumberType   NumberType `json:"numberType,omitempty"`
	MinValue     *float64   `json:"minValue,omitempty"`
	MaxValue     *float64   `json:"maxValue,omitempty"`
	DefaultValue string     `json:"defaultValue,omitempty"`

	// SELECT only.
	DropdownOptions []string `json:"dropdownOptions,omitempty"`

	// TEXT only.
	IsSpecialCharsAllowed bool `json:"isSpecialCharsAllowed,omitempty"`
	IsDescription         bool `json:"isDescription,omitempty"`
}

// Form is a named, ordered collection of questions plus builder and
// respondent submission state.
type Form struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"`
	IsSubmitted bool       `json:"isSubmitted"`
	Questions   []Question `json:"questions"`
	Responses   *Responses `json:"responses,omitempty"`
}

// Clone returns a deep copy of q. The copy shares no slices or pointers
// with q.
func (q Question) Clone() Question {
	out := q
	if q.MinValue != nil {
		v := *q.MinValue
		out.MinValue = &v
	}
	if q.MaxValue != nil {
		v := *q.MaxValue
		out.MaxValue = &v
	}
	if q.DropdownOptions != nil {
		out.DropdownOptions = slices.Clone(q.DropdownOptions)
	}
	return out
}

// CloneQuestions deep copies a question sequence, preserving order.
// A nil input yields nil.
func CloneQuestions(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

// Clone returns a deep copy of f.
func (f Form) Clone() Form {
	out := f
	out.Questions = CloneQuestions(f.Questions)
	if f.Responses != nil {
		r := f.Responses.Clone()
		out.Responses = &r
	}
	return out
}

// CloneForms deep copies a form sequence.
func CloneForms(forms []Form) []Form {
	if forms == nil {
		return nil
	}
	out := make([]Form, len(forms))
	for i, f := range forms {
		out[i] = f.Clone()
	}
	return out
}

// FindForm returns the index of the form with the given id, or -1.
func FindForm(forms []Form, id string) int {
	return slices.IndexFunc(forms, func(f Form) bool { return f.ID == id })
}

// ResponsesSubmitted reports whether the respondent side of f is final.
func (f Form) ResponsesSubmitted() bool {
	return f.Responses != nil && f.Responses.IsSubmitted
}
