package formstate

import "github.com/roach88/formsync/internal/model"

// State is the form collection plus selection and submission bookkeeping.
type State struct {
	Forms            []model.Form
	SelectedFormID   string
	SubmittingFormID string

	// SelectedForm is a denormalized copy of the selected form.
	SelectedForm *model.Form
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Forms = model.CloneForms(s.Forms)
	if s.SelectedForm != nil {
		f := s.SelectedForm.Clone()
		out.SelectedForm = &f
	}
	return out
}

// Reduce returns the state that follows s after a. It does not modify s.
// Actions it does not recognize, and actions naming a form that does not
// exist, return s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetForms:
		next := s
		next.Forms = model.CloneForms(a.Forms)
		return project(next)

	case InitializeForms:
		next := s
		next.Forms = model.CloneForms(a.Forms)
		next.SelectedFormID = ""
		if len(next.Forms) > 0 {
			next.SelectedFormID = next.Forms[0].ID
		}
		return project(next)

	case CreateForm:
		next := s
		next.Forms = append(copyForms(s.Forms), a.Form.Clone())
		next.SelectedFormID = a.Form.ID
		return project(next)

	case UpdateForm:
		return updateForm(s, a.FormID, func(f *model.Form) {
			f.Questions = model.CloneQuestions(a.Questions)
		})

	case UpdateFormTitle:
		return updateForm(s, a.FormID, func(f *model.Form) {
			f.Title = a.Title
		})

	case UpdateFormResponses:
		return updateForm(s, a.FormID, func(f *model.Form) {
			r := a.Responses.Clone()
			f.Responses = &r
		})

	case SubmitForm:
		return updateForm(s, a.FormID, func(f *model.Form) {
			f.IsSubmitted = true
		})

	case SetSelectedForm:
		if model.FindForm(s.Forms, a.FormID) < 0 {
			return s
		}
		next := s
		next.SelectedFormID = a.FormID
		return project(next)

	case SetSubmittingForm:
		next := s
		next.SubmittingFormID = a.FormID
		return next

	default:
		return s
	}
}

func updateForm(s State, id string, mutate func(*model.Form)) State {
	i := model.FindForm(s.Forms, id)
	if i < 0 {
		return s
	}
	next := s
	next.Forms = copyForms(s.Forms)
	mutate(&next.Forms[i])
	return project(next)
}

// copyForms copies the slice header so the caller can replace elements
// without touching the previous state. Element contents are shared until a
// mutation replaces them.
func copyForms(forms []model.Form) []model.Form {
	out := make([]model.Form, len(forms), len(forms)+1)
	copy(out, forms)
	return out
}

func project(s State) State {
	s.SelectedForm = nil
	if i := model.FindForm(s.Forms, s.SelectedFormID); i >= 0 {
		f := s.Forms[i].Clone()
		s.SelectedForm = &f
	}
	return s
}
