// Package model defines the persisted form document: forms, their ordered
// questions and the respondent answers collected against them.
//
// This package contains type definitions and value helpers only. Every other
// internal package imports model; model imports nothing internal.
//
// Key design constraints:
//   - JSON field names are camelCase and match the persisted "forms" record
//   - Optional fields are omitted rather than written as null
//   - A question has no identity of its own; its position in Form.Questions is
//     its identity in the persisted document
//   - Form.IsSubmitted (builder side) and Responses.IsSubmitted (respondent
//     side) are distinct flags and are never merged
package model
