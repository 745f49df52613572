// Package responder implements response collection for a builder-submitted
// form.
//
// Each answer is validated on its own as it changes and written through a
// trailing-edge debounce. A write reads the persisted forms document,
// replaces the form's responses and writes the document back. That
// read-modify-write is not atomic across processes: a concurrent writer of
// the same document between the read and the write loses its update.
//
// Final submission validates the whole form and writes the responses with
// the respondent-side submitted flag set. Submitting again is allowed.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/roach88/formsync/internal/clock"
	"github.com/roach88/formsync/internal/debounce"
	"github.com/roach88/formsync/internal/formstate"
	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/validate"
)

// DefaultDebounce is the trailing-edge write delay.
const DefaultDebounce = 500 * time.Millisecond

// ErrUnknownQuestion is returned when an answer names no question of the
// form.
var ErrUnknownQuestion = errors.New("no question with that title")

// Session collects answers for one form.
//
// Thread-safety: all methods are safe for concurrent use.
type Session struct {
	svc       *formsync.Service
	formID    string
	clock     clock.Clock
	debouncer *debounce.Debouncer
	logger    *slog.Logger
	wait      time.Duration

	mu        sync.Mutex
	questions []model.Question
	values    map[string]string
	errs      map[string]string
	formValid bool
	saving    bool
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets the trailing-edge write delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		s.wait = d
	}
}

// WithLogger sets the logger. It defaults to the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// Open starts collecting answers for formID, seeded from its persisted
// responses. The form must be builder-submitted.
func Open(svc *formsync.Service, formID string, opts ...Option) (*Session, error) {
	form, ok := svc.Form(formID)
	if !ok {
		return nil, fmt.Errorf("open responder %q: %w", formID, formsync.ErrFormNotFound)
	}
	if !form.IsSubmitted {
		return nil, fmt.Errorf("open responder %q: %w", formID, formsync.ErrNotPublished)
	}

	s := &Session{
		svc:       svc,
		formID:    formID,
		clock:     svc.Clock(),
		logger:    svc.Logger(),
		wait:      DefaultDebounce,
		questions: form.Questions,
		values:    make(map[string]string),
		errs:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if form.Responses != nil {
		maps.Copy(s.values, form.Responses.Values)
	}
	_, s.formValid = validate.WholeForm(s.questions, s.values)
	s.debouncer = debounce.New(s.clock, s.wait)
	return s, nil
}

// FormID returns the id of the form being answered.
func (s *Session) FormID() string { return s.formID }

// Questions returns a copy of the form's questions.
func (s *Session) Questions() []model.Question {
	return model.CloneQuestions(s.questions)
}

// HandleChange records value as the answer to the question titled title,
// validates it and schedules a debounced write of all answers.
func (s *Session) HandleChange(title, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.ResponseKey(title)
	q, ok := s.questionLocked(key)
	if !ok {
		return fmt.Errorf("answer %q: %w", title, ErrUnknownQuestion)
	}

	s.values[key] = value
	s.checkLocked(key, q)
	_, s.formValid = validate.WholeForm(s.questions, s.values)

	values := maps.Clone(s.values)
	s.debouncer.Schedule(s.formID, func() { s.save(values) })
	return nil
}

// HandleBlur validates the current answer to the question titled title.
func (s *Session) HandleBlur(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.ResponseKey(title)
	if q, ok := s.questionLocked(key); ok {
		s.checkLocked(key, q)
	}
}

// Values returns a copy of the current answers.
func (s *Session) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

// Errors returns a copy of the current answer errors, keyed by response key.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.errs)
}

// IsFormValid reports whether every answer passes whole-form validation.
func (s *Session) IsFormValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formValid
}

// Saving reports whether a write of the answers is in progress.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// IsSubmitted reports whether the responses were finally submitted.
func (s *Session) IsSubmitted() bool {
	form, ok := s.svc.Form(s.formID)
	return ok && form.ResponsesSubmitted()
}

// Pending reports whether a debounced write is waiting.
func (s *Session) Pending() bool {
	return s.debouncer.Pending(s.formID)
}

// Flush runs the pending debounced write now.
func (s *Session) Flush() bool {
	return s.debouncer.Flush(s.formID)
}

// Close drops the pending write without running it.
func (s *Session) Close() {
	s.debouncer.Stop()
}

// Submit validates every answer and writes the responses marked submitted.
// A *validate.FormError is returned when answers are invalid.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	errs, valid := validate.WholeForm(s.questions, s.values)
	s.formValid = valid
	if !valid {
		s.errs = errs
		s.mu.Unlock()
		return &validate.FormError{Errors: maps.Clone(errs)}
	}
	values := maps.Clone(s.values)
	s.mu.Unlock()

	hadPending := s.debouncer.Cancel(s.formID)

	err := s.write(ctx, values, func(*model.Form) bool { return true })
	if err != nil {
		s.logger.Error("failed to submit responses", "form_id", s.formID, "error", err)
		s.svc.Notify(formsync.SeverityError, formsync.MsgSubmitFailed)
		if hadPending {
			s.debouncer.Schedule(s.formID, func() { s.save(values) })
		}
		return fmt.Errorf("submit responses %q: %w", s.formID, err)
	}

	s.svc.Notify(formsync.SeveritySuccess, formsync.MsgResponseSubmitted)
	s.logger.Info("responses submitted", "form_id", s.formID)
	return nil
}

// save writes values, keeping the stored respondent-side flag.
func (s *Session) save(values map[string]string) {
	s.setSaving(true)
	defer s.setSaving(false)

	err := s.write(context.Background(), values, (*model.Form).ResponsesSubmitted)
	if err != nil {
		s.logger.Error("failed to save responses", "form_id", s.formID, "error", err)
		s.svc.Notify(formsync.SeverityError, formsync.MsgSaveFailed)
	}
}

// write replaces the stored responses with values. submitted decides the
// respondent-side flag from the stored form.
func (s *Session) write(ctx context.Context, values map[string]string, submitted func(*model.Form) bool) error {
	form, err := s.svc.ModifyStored(ctx, s.formID, func(f *model.Form) {
		f.Responses = &model.Responses{
			Values:      maps.Clone(values),
			IsSubmitted: submitted(f),
		}
	})
	if err != nil {
		return err
	}
	s.svc.Store().Dispatch(formstate.UpdateFormResponses{
		FormID:    s.formID,
		Responses: *form.Responses,
	})
	return nil
}

func (s *Session) setSaving(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = v
}

func (s *Session) questionLocked(key string) (model.Question, bool) {
	for _, q := range s.questions {
		if model.ResponseKey(q.QuestionTitle) == key {
			return q, true
		}
	}
	return model.Question{}, false
}

func (s *Session) checkLocked(key string, q model.Question) {
	if err := validate.Answer(q, s.values[key]); err != nil {
		s.errs[key] = err.Error()
		return
	}
	delete(s.errs, key)
}
