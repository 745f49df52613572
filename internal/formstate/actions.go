package formstate

import "github.com/roach88/formsync/internal/model"

// Action is a state transition request.
type Action interface {
	// Type returns the action name used in logs.
	Type() string
}

// SetForms replaces the whole collection.
type SetForms struct {
	Forms []model.Form
}

// InitializeForms replaces the collection and selects its first form.
type InitializeForms struct {
	Forms []model.Form
}

// CreateForm appends a form and selects it.
type CreateForm struct {
	Form model.Form
}

// UpdateForm replaces a form's questions with a copy of Questions.
type UpdateForm struct {
	FormID    string
	Questions []model.Question
}

// UpdateFormTitle renames a form.
type UpdateFormTitle struct {
	FormID string
	Title  string
}

// UpdateFormResponses replaces a form's responses.
type UpdateFormResponses struct {
	FormID    string
	Responses model.Responses
}

// SubmitForm marks a form as builder-submitted.
type SubmitForm struct {
	FormID string
}

// SetSelectedForm selects a form. Unknown ids are ignored.
type SetSelectedForm struct {
	FormID string
}

// SetSubmittingForm records the form currently being submitted. An empty id
// clears it.
type SetSubmittingForm struct {
	FormID string
}

func (SetForms) Type() string            { return "SET_FORMS" }
func (InitializeForms) Type() string     { return "INITIALIZE_FORMS" }
func (CreateForm) Type() string          { return "CREATE_FORM" }
func (UpdateForm) Type() string          { return "UPDATE_FORM" }
func (UpdateFormTitle) Type() string     { return "UPDATE_FORM_TITLE" }
func (UpdateFormResponses) Type() string { return "UPDATE_FORM_RESPONSES" }
func (SubmitForm) Type() string          { return "SUBMIT_FORM" }
func (SetSelectedForm) Type() string     { return "SET_SELECTED_FORM" }
func (SetSubmittingForm) Type() string   { return "SET_SUBMITTING_FORM" }
