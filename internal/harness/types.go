package harness

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/formsync/internal/model"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int         `json:"seq"`
	At     string      `json:"at"` // clock time after the step, relative to the start
	Invoke string      `json:"invoke"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Writes int         `json:"writes"` // successful port writes so far
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step.
	Trace []TraceEvent `json:"trace"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Notifications lists every notification raised, as "severity: message".
	Notifications []string `json:"notifications"`

	// Document is the persisted forms document at the end of the run, or
	// null when nothing was written.
	Document json.RawMessage `json:"document"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		Notifications: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Forms decodes the final document.
func (r *Result) Forms() ([]model.Form, error) {
	if len(r.Document) == 0 {
		return nil, nil
	}
	var forms []model.Form
	if err := json.Unmarshal(r.Document, &forms); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	return forms, nil
}
