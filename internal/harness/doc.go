// Package harness runs scripted editing sessions against a formsync
// service and checks the outcome.
//
// A scenario is a YAML file listing steps (builder edits, respondent
// answers, clock advances, injected storage failures) and assertions on the
// persisted document, the notifications and the sessions:
//
//	name: publish
//	description: Title the first question and publish the form
//	steps:
//	  - invoke: init
//	  - invoke: builder.change
//	    args: {index: 0, field: questionTitle, value: Name}
//	  - invoke: advance
//	    args: {by: 500ms}
//	  - invoke: builder.submit
//	assertions:
//	  - type: stored_form
//	    expect: {isSubmitted: true}
//
// Every run uses a fresh in-memory port, a manual clock starting at
// testutil.Epoch and sequential form ids ("form-1", "form-2", ...), so the
// trace and the final document are reproducible and can be compared with
// golden files. Debounced writes only happen when a step advances the clock
// or flushes a session. The builder's settle delay is zero.
package harness
