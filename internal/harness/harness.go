package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/formsync/internal/builder"
	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/port"
	"github.com/roach88/formsync/internal/responder"
	"github.com/roach88/formsync/internal/testutil"
)

const (
	sessionBuilder   = "builder"
	sessionResponder = "responder"
)

// Harness executes one scenario.
type Harness struct {
	clock  *testutil.ManualClock
	port   *testutil.RecordingPort
	inbox  *formsync.Inbox
	svc    *formsync.Service
	logger *slog.Logger
	timing Timing

	builder   *builder.Session
	responder *responder.Session
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger used by the service and sessions. Runs are
// silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory port. A non-nil error means
// the scenario could not be run at all; failed expectations are reported
// in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		clock:  testutil.NewManualClock(),
		port:   testutil.NewRecordingPort(),
		inbox:  formsync.NewInbox(),
		logger: testutil.DiscardLogger(),
		timing: scenario.Timing,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.svc = formsync.New(h.port,
		formsync.WithClock(h.clock),
		formsync.WithIDGenerator(testutil.NewSequentialIDs("form")),
		formsync.WithNotifier(h.inbox),
		formsync.WithLogger(h.logger),
	)
	defer h.closeSessions()

	if doc := strings.TrimSpace(scenario.Setup.Document); doc != "" {
		if !json.Valid([]byte(doc)) {
			return nil, fmt.Errorf("setup document is not valid JSON")
		}
		h.port.Seed(port.FormsKey, []byte(doc))
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		value, err := actions[step.Invoke](h, ctx, step.Args)

		event := TraceEvent{
			Seq:    i + 1,
			At:     h.clock.Now().Sub(testutil.Epoch).String(),
			Invoke: step.Invoke,
			Result: value,
			Writes: h.port.WriteCount(),
		}
		if err != nil {
			event.Error = err.Error()
		}
		result.Trace = append(result.Trace, event)

		checkStep(result, i, step, value, err)
	}

	doc, err := h.port.Get(ctx, port.FormsKey)
	if err != nil {
		return nil, fmt.Errorf("read final document: %w", err)
	}
	result.Document = doc

	for _, n := range h.inbox.Open() {
		result.Notifications = append(result.Notifications, fmt.Sprintf("%s: %s", n.Severity, n.Message))
	}

	for i, a := range scenario.Assertions {
		if err := h.evaluate(a, result); err != nil {
			result.AddError(fmt.Sprintf("assertion[%d] %s: %v", i, a.Type, err))
		}
	}
	return result, nil
}

func checkStep(result *Result, i int, step Step, value interface{}, err error) {
	want := step.Expect
	if want == nil {
		want = &ExpectClause{}
	}

	switch {
	case want.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("step[%d] %s: unexpected error: %v", i, step.Invoke, err))
	case want.Error != "" && err == nil:
		result.AddError(fmt.Sprintf("step[%d] %s: expected error containing %q", i, step.Invoke, want.Error))
	case want.Error != "" && !strings.Contains(err.Error(), want.Error):
		result.AddError(fmt.Sprintf("step[%d] %s: error %q does not contain %q", i, step.Invoke, err.Error(), want.Error))
	}

	if want.Result != nil && !matchValue(want.Result, value) {
		result.AddError(fmt.Sprintf("step[%d] %s: result %v, want %v", i, step.Invoke, value, want.Result))
	}
}

// action runs one step.
type action func(h *Harness, ctx context.Context, args map[string]interface{}) (interface{}, error)

var actions = map[string]action{
	"init": func(h *Harness, ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		return nil, h.svc.Initialize(ctx)
	},
	"create_form": func(h *Harness, ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		h.closeSessions()
		form, err := h.svc.CreateForm(ctx)
		return form.ID, err
	},
	"select": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		id, err := argString(args, "form")
		if err != nil {
			return nil, err
		}
		h.closeSessions()
		return h.svc.SelectForm(id), nil
	},
	"set_title": func(h *Harness, ctx context.Context, args map[string]interface{}) (interface{}, error) {
		title, err := argString(args, "title")
		if err != nil {
			return nil, err
		}
		return nil, h.svc.UpdateFormTitle(ctx, h.selected(), title)
	},
	"builder.change": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		index, field, err := indexAndField(args)
		if err != nil {
			return nil, err
		}
		value, ok := args["value"]
		if !ok {
			return nil, fmt.Errorf("missing arg %q", "value")
		}
		return nil, b.HandleChange(index, field, value)
	},
	"builder.blur": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		index, field, err := indexAndField(args)
		if err != nil {
			return nil, err
		}
		required, _ := args["required"].(bool)
		b.HandleBlur(index, field, required)
		return nil, nil
	},
	"builder.add": func(h *Harness, _ context.Context, _ map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		return b.AddQuestion(), nil
	},
	"builder.delete": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		index, err := argInt(args, "index")
		if err != nil {
			return nil, err
		}
		return b.DeleteQuestion(index), nil
	},
	"builder.flush": func(h *Harness, _ context.Context, _ map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		return b.Flush(), nil
	},
	"builder.submit": func(h *Harness, ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		b, err := h.builderSession()
		if err != nil {
			return nil, err
		}
		return nil, b.Submit(ctx)
	},
	"respond.change": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		r, err := h.responderSession()
		if err != nil {
			return nil, err
		}
		title, err := argString(args, "title")
		if err != nil {
			return nil, err
		}
		value, ok := args["value"]
		if !ok {
			return nil, fmt.Errorf("missing arg %q", "value")
		}
		return nil, r.HandleChange(title, fmt.Sprint(value))
	},
	"respond.blur": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		r, err := h.responderSession()
		if err != nil {
			return nil, err
		}
		title, err := argString(args, "title")
		if err != nil {
			return nil, err
		}
		r.HandleBlur(title)
		return nil, nil
	},
	"respond.flush": func(h *Harness, _ context.Context, _ map[string]interface{}) (interface{}, error) {
		r, err := h.responderSession()
		if err != nil {
			return nil, err
		}
		return r.Flush(), nil
	},
	"respond.submit": func(h *Harness, ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		r, err := h.responderSession()
		if err != nil {
			return nil, err
		}
		return nil, r.Submit(ctx)
	},
	"advance": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		by, err := argString(args, "by")
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(by)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", "by", err)
		}
		h.clock.Advance(d)
		return nil, nil
	},
	"fail_puts": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		n, err := argInt(args, "count")
		if err != nil {
			return nil, err
		}
		h.port.FailPuts(n)
		return nil, nil
	},
	"fail_gets": func(h *Harness, _ context.Context, args map[string]interface{}) (interface{}, error) {
		n, err := argInt(args, "count")
		if err != nil {
			return nil, err
		}
		h.port.FailGets(n)
		return nil, nil
	},
}

func (h *Harness) selected() string {
	return h.svc.Store().State().SelectedFormID
}

// builderSession returns the builder for the selected form, opening it on
// first use.
func (h *Harness) builderSession() (*builder.Session, error) {
	id := h.selected()
	if h.builder != nil && h.builder.FormID() == id {
		return h.builder, nil
	}
	if h.builder != nil {
		h.builder.Close()
		h.builder = nil
	}

	opts := []builder.Option{
		builder.WithSettleDelay(0),
		builder.WithLogger(h.logger),
	}
	if h.timing.Debounce > 0 {
		opts = append(opts, builder.WithDebounce(h.timing.Debounce))
	}
	if h.timing.SavingGrace > 0 {
		opts = append(opts, builder.WithSavingGrace(h.timing.SavingGrace))
	}
	b, err := builder.Open(h.svc, id, opts...)
	if err != nil {
		return nil, err
	}
	h.builder = b
	return b, nil
}

// responderSession returns the responder for the selected form, opening it
// on first use.
func (h *Harness) responderSession() (*responder.Session, error) {
	id := h.selected()
	if h.responder != nil && h.responder.FormID() == id {
		return h.responder, nil
	}
	if h.responder != nil {
		h.responder.Close()
		h.responder = nil
	}

	opts := []responder.Option{responder.WithLogger(h.logger)}
	if h.timing.Debounce > 0 {
		opts = append(opts, responder.WithDebounce(h.timing.Debounce))
	}
	r, err := responder.Open(h.svc, id, opts...)
	if err != nil {
		return nil, err
	}
	h.responder = r
	return r, nil
}

// closeSessions drops both sessions. Pending writes are discarded.
func (h *Harness) closeSessions() {
	if h.builder != nil {
		h.builder.Close()
		h.builder = nil
	}
	if h.responder != nil {
		h.responder.Close()
		h.responder = nil
	}
}

func argString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing arg %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("arg %q: want string, got %T", name, v)
	}
	return s, nil
}

func argInt(args map[string]interface{}, name string) (int, error) {
	v, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", name)
	}
	n, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("arg %q: want integer, got %T", name, v)
	}
	return n, nil
}

func indexAndField(args map[string]interface{}) (int, model.Field, error) {
	index, err := argInt(args, "index")
	if err != nil {
		return 0, "", err
	}
	name, err := argString(args, "field")
	if err != nil {
		return 0, "", err
	}
	field, err := model.ParseField(name)
	if err != nil {
		return 0, "", err
	}
	return index, field, nil
}

// matchValue reports whether actual matches expected. Maps match as
// subsets, lists element by element, and numbers by value regardless of
// their Go type.
func matchValue(expected, actual interface{}) bool {
	switch want := expected.(type) {
	case map[string]interface{}:
		got, ok := actual.(map[string]interface{})
		if !ok {
			if s, isStrMap := actual.(map[string]string); isStrMap {
				got = make(map[string]interface{}, len(s))
				for k, v := range s {
					got[k] = v
				}
			} else {
				return false
			}
		}
		for k, w := range want {
			g, ok := got[k]
			if !ok || !matchValue(w, g) {
				return false
			}
		}
		return true
	case []interface{}:
		got, ok := actual.([]interface{})
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !matchValue(want[i], got[i]) {
				return false
			}
		}
		return true
	}

	if w, ok := toFloat(expected); ok {
		g, ok := toFloat(actual)
		return ok && w == g
	}
	return reflect.DeepEqual(expected, actual)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
