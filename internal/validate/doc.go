// Package validate implements the per-question-type rule set shared by the
// builder and the respondent flows.
//
// All functions are pure and stateless. Two families exist:
//
// Definition rules (authoring time):
//   - QuestionDefinition: title present, type present, NUMBER has a number type
//   - FieldOnBlur: immediate feedback for a single builder field
//
// Answer rules (response collection time):
//   - Answer: one value against one question
//   - WholeForm: every question against the values map
//
// Range bounds and dropdown completeness are checked only against answers,
// never at authoring time.
//
// Rules are evaluated in a fixed order and the first failing rule wins:
// required, email, special characters, number (range or year).
package validate
