// Package formstate holds the authoritative in-memory model of all forms.
//
// Reduce is a pure, total transition function: it never mutates its input
// state and never fails. Store wraps it in a mutex so pipelines running on
// different goroutines observe a linear sequence of transitions.
//
// State invariants maintained by Reduce:
//   - SelectedForm is always a copy of the form in Forms whose id is
//     SelectedFormID, or nil when there is none
//   - at most one form id is recorded as submitting
//   - form-level IsSubmitted only moves from false to true
package formstate
