// Package builder implements the authoring pipeline for one form.
//
// A Session keeps a working copy of the form's questions. Every field edit is
// applied to the working copy immediately, validated, and, when the question
// definition is valid, written through a trailing-edge debounce: a burst of
// edits produces one write carrying the final question list.
//
// Questions are held in an arena of stable slots. Error and saving state are
// keyed by slot, so deleting a question never moves a flag onto its
// neighbour. Index based keys ("question_2", "numberType_2") exist only in
// the rendered Errors view.
//
// Submission follows a per-form state machine:
//
//	draft --submit--> submitting --succeed--> submitted
//	                      |
//	                      +-------fail------> draft
//
// The form is marked submitted in the store only after the write succeeds.
package builder
