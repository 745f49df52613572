package harness

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

func (h *Harness) evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertStoredForm:
		return h.assertStoredForm(a, result.Document)
	case AssertWriteCount:
		if got := h.port.WriteCount(); got != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d writes", a.Count), Actual: fmt.Sprintf("%d", got)}
		}
		return nil
	case AssertNotification:
		return assertNotification(a, result.Notifications)
	case AssertNotificationCount:
		if got := len(result.Notifications); got != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d notifications", a.Count), Actual: fmt.Sprintf("%v", result.Notifications)}
		}
		return nil
	case AssertSessionErrors:
		return h.assertSessionErrors(a)
	case AssertSessionState:
		return h.assertSessionState(a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertStoredForm decodes the persisted document and subset-matches the
// form's JSON object against Expect.
func (h *Harness) assertStoredForm(a Assertion, doc json.RawMessage) error {
	if len(doc) == 0 {
		return &AssertionError{Type: a.Type, Expected: "a stored document", Actual: "nothing stored"}
	}

	var forms []map[string]interface{}
	if err := json.Unmarshal(doc, &forms); err != nil {
		return fmt.Errorf("decode stored document: %w", err)
	}

	id := a.Form
	if id == "" {
		id = h.selected()
	}
	for _, f := range forms {
		if f["id"] != id {
			continue
		}
		if !matchValue(a.Expect, f) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Expect), Actual: compact(f)}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("form %q stored", id), Actual: fmt.Sprintf("%d forms without it", len(forms))}
}

func assertNotification(a Assertion, got []string) error {
	for _, n := range got {
		severity, message, _ := strings.Cut(n, ": ")
		if message == a.Message && (a.Severity == "" || severity == a.Severity) {
			return nil
		}
	}
	want := a.Message
	if a.Severity != "" {
		want = a.Severity + ": " + a.Message
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("notification %q", want), Actual: fmt.Sprintf("%q", got)}
}

// assertSessionErrors subset-matches a session's error map. An empty Expect
// requires no errors at all.
func (h *Harness) assertSessionErrors(a Assertion) error {
	var errs map[string]string
	switch a.Session {
	case sessionBuilder:
		if h.builder == nil {
			return fmt.Errorf("no builder session was opened")
		}
		errs = h.builder.Errors()
	case sessionResponder:
		if h.responder == nil {
			return fmt.Errorf("no responder session was opened")
		}
		errs = h.responder.Errors()
	}

	if len(a.Expect) == 0 {
		if len(errs) > 0 {
			return &AssertionError{Type: a.Type, Expected: "no errors", Actual: formatErrors(errs)}
		}
		return nil
	}
	if !matchValue(a.Expect, errs) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%v", a.Expect), Actual: formatErrors(errs)}
	}
	return nil
}

func (h *Harness) assertSessionState(a Assertion) error {
	if h.builder == nil {
		return fmt.Errorf("no builder session was opened")
	}
	if got := h.builder.State(); got != a.State {
		return &AssertionError{Type: a.Type, Expected: a.State, Actual: got}
	}
	return nil
}

func formatErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, errs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func compact(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
