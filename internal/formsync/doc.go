// Package formsync is the provider layer between the form pipelines, the
// form state store and the persistence port.
//
// Service loads the forms document on start, creates and renames forms,
// replaces question lists and writes the whole document back after every
// change. Write failures never revert in-memory state: they are logged and
// surfaced through the Notifier, and the user retries by repeating the
// action.
//
// Writes are serialized and always send the store's latest state, so a slow
// write can never overwrite a newer one with stale data.
package formsync
