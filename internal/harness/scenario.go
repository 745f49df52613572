package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Setup prepares the port before the first step.
	Setup Setup `yaml:"setup,omitempty"`

	// Timing overrides the session delays. Zero values keep the defaults.
	Timing Timing `yaml:"timing,omitempty"`

	// Steps run in order. A step that fails without expecting to fails the
	// scenario, but later steps still run.
	Steps []Step `yaml:"steps"`

	// Assertions run after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Setup seeds storage.
type Setup struct {
	// Document is stored under the forms key before the run, as JSON.
	Document string `yaml:"document,omitempty"`
}

// Timing holds session delay overrides.
type Timing struct {
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	SavingGrace time.Duration `yaml:"saving_grace,omitempty"`
}

// Step is one action.
type Step struct {
	// Invoke names the action, e.g. "builder.change".
	Invoke string `yaml:"invoke"`

	// Args holds the action's arguments.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect checks the step's outcome. Nil expects success.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is a substring the step's error must contain. Empty expects
	// success.
	Error string `yaml:"error,omitempty"`

	// Result is compared with the step's return value, when set.
	Result interface{} `yaml:"result,omitempty"`
}

// Assertion checks the state after the run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Form selects the form for stored_form. Defaults to the selected form.
	Form string `yaml:"form,omitempty"`

	// Session is "builder" or "responder" for session_errors.
	Session string `yaml:"session,omitempty"`

	// Expect is a subset match for stored_form and session_errors.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is used by write_count and notification_count.
	Count int `yaml:"count,omitempty"`

	// Severity and Message are used by notification.
	Severity string `yaml:"severity,omitempty"`
	Message  string `yaml:"message,omitempty"`

	// State is used by session_state.
	State string `yaml:"state,omitempty"`
}

// Assertion types.
const (
	AssertStoredForm        = "stored_form"
	AssertWriteCount        = "write_count"
	AssertNotification      = "notification"
	AssertNotificationCount = "notification_count"
	AssertSessionErrors     = "session_errors"
	AssertSessionState      = "session_state"
)

var assertionTypes = map[string]bool{
	AssertStoredForm:        true,
	AssertWriteCount:        true,
	AssertNotification:      true,
	AssertNotificationCount: true,
	AssertSessionErrors:     true,
	AssertSessionState:      true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Invoke == "" {
			return fmt.Errorf("step[%d]: invoke is required", i)
		}
		if _, ok := actions[step.Invoke]; !ok {
			return fmt.Errorf("step[%d]: unknown action %q", i, step.Invoke)
		}
	}

	for i, a := range s.Assertions {
		if !assertionTypes[a.Type] {
			return fmt.Errorf("assertion[%d]: unknown type %q", i, a.Type)
		}
		switch a.Type {
		case AssertNotification:
			if a.Message == "" {
				return fmt.Errorf("assertion[%d]: notification requires message", i)
			}
		case AssertSessionErrors:
			if a.Session != sessionBuilder && a.Session != sessionResponder {
				return fmt.Errorf("assertion[%d]: session must be %q or %q", i, sessionBuilder, sessionResponder)
			}
		case AssertSessionState:
			if a.State == "" {
				return fmt.Errorf("assertion[%d]: session_state requires state", i)
			}
		}
	}
	return nil
}
