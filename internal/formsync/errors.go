package formsync

import "errors"

var (
	// ErrFormNotFound is returned when an operation names an unknown form.
	ErrFormNotFound = errors.New("form not found")

	// ErrNotPublished is returned when collecting responses for a form the
	// builder has not submitted.
	ErrNotPublished = errors.New("form is not submitted by the builder")

	// ErrSubmissionInFlight is returned when another form is being
	// submitted.
	ErrSubmissionInFlight = errors.New("another form submission is in progress")

	// ErrAlreadySubmitted is returned when submitting or editing a form that
	// is already builder-submitted.
	ErrAlreadySubmitted = errors.New("form is already submitted")
)
