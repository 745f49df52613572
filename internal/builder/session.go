package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/roach88/formsync/internal/clock"
	"github.com/roach88/formsync/internal/debounce"
	"github.com/roach88/formsync/internal/formstate"
	"github.com/roach88/formsync/internal/formsync"
	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/validate"
)

// Pipeline timing defaults.
const (
	DefaultDebounce    = 500 * time.Millisecond
	DefaultSavingGrace = 300 * time.Millisecond
	DefaultSettleDelay = time.Second
)

// questionKey is the per-slot error key for whole-question messages. It
// renders as "question_<index>".
const questionKey = "question"

// ErrQuestionIndex is returned when an edit names a question that does not
// exist.
var ErrQuestionIndex = errors.New("question index out of range")

type slot struct {
	id int64
	q  model.Question
}

// Session is the authoring pipeline for one form.
//
// Thread-safety: all methods are safe for concurrent use.
type Session struct {
	svc       *formsync.Service
	formID    string
	clock     clock.Clock
	debouncer *debounce.Debouncer
	machine   *fsm.FSM
	logger    *slog.Logger

	debounceWait time.Duration
	grace        time.Duration
	settle       time.Duration

	mu        sync.Mutex
	slots     []slot
	nextSlot  int64
	errs      map[int64]map[string]string
	saving    map[int64]uint64
	savingGen uint64
	expanded  int
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets the trailing-edge write delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		s.debounceWait = d
	}
}

// WithSavingGrace sets how long a question shows as saving after an edit.
func WithSavingGrace(d time.Duration) Option {
	return func(s *Session) {
		s.grace = d
	}
}

// WithSettleDelay sets the pause between entering submitting and writing.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// WithLogger sets the logger. It defaults to the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// Open starts a session over the stored form with formID.
func Open(svc *formsync.Service, formID string, opts ...Option) (*Session, error) {
	form, ok := svc.Form(formID)
	if !ok {
		return nil, fmt.Errorf("open builder %q: %w", formID, formsync.ErrFormNotFound)
	}

	s := &Session{
		svc:          svc,
		formID:       formID,
		clock:        svc.Clock(),
		logger:       svc.Logger(),
		debounceWait: DefaultDebounce,
		grace:        DefaultSavingGrace,
		settle:       DefaultSettleDelay,
		errs:         make(map[int64]map[string]string),
		saving:       make(map[int64]uint64),
		expanded:     -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, q := range form.Questions {
		s.appendSlot(q)
	}
	if len(s.slots) == 1 {
		s.expanded = 0
	}

	initial := StateDraft
	if form.IsSubmitted {
		initial = StateSubmitted
	}
	s.machine = newMachine(initial, formID, s.logger)
	s.debouncer = debounce.New(s.clock, s.debounceWait)
	return s, nil
}

// FormID returns the id of the form being edited.
func (s *Session) FormID() string { return s.formID }

// State returns the submission state.
func (s *Session) State() string { return s.machine.Current() }

// Questions returns a copy of the working question list.
func (s *Session) Questions() []model.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionsLocked()
}

// HandleChange sets field of the question at index to value.
//
// The edit is applied to the working copy, prior errors for the field and the
// question are cleared and the question shows as saving for the grace
// period. A valid question schedules a debounced write of the whole list; an
// invalid one records its messages under "question_<index>" instead.
func (s *Session) HandleChange(index int, field model.Field, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.slots) {
		return fmt.Errorf("change %d: %w", index, ErrQuestionIndex)
	}

	sl := &s.slots[index]
	updated, err := sl.q.With(field, value)
	if err != nil {
		return fmt.Errorf("change %d: %w", index, err)
	}
	sl.q = updated

	s.clearErrorLocked(sl.id, questionKey)
	s.clearErrorLocked(sl.id, string(field))
	s.markSavingLocked(sl.id)

	if msgs := validate.QuestionDefinition(updated); len(msgs) > 0 {
		s.setErrorLocked(sl.id, questionKey, validate.JoinDefinitionErrors(msgs))
		return nil
	}
	s.scheduleSaveLocked()
	return nil
}

// HandleBlur gives immediate feedback when the user leaves a field. A
// failing field also replaces the question's message.
func (s *Session) HandleBlur(index int, field model.Field, isRequired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.slots) {
		return
	}
	sl := s.slots[index]
	msg := validate.FieldOnBlur(field, sl.q, isRequired)
	if msg == "" {
		s.clearErrorLocked(sl.id, string(field))
		return
	}
	s.setErrorLocked(sl.id, string(field), msg)
	s.setErrorLocked(sl.id, questionKey, msg)
}

// AreAllQuestionsValid reports whether every working question has a valid
// definition.
func (s *Session) AreAllQuestionsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return validate.AllQuestionsValid(s.questionsLocked())
}

// AddQuestion appends an empty TEXT question and expands it. It is refused
// while any question is invalid, while the form is being submitted and once
// it is submitted. It reports whether the question was added.
func (s *Session) AddQuestion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != StateDraft {
		return false
	}
	if s.svc.Store().SubmittingFormID() == s.formID {
		return false
	}
	if !validate.AllQuestionsValid(s.questionsLocked()) {
		return false
	}

	s.appendSlot(model.NewQuestion())
	s.expanded = len(s.slots) - 1
	return true
}

// DeleteQuestion removes the question at index and schedules a write. The
// first question can never be removed, and nothing is removed once the form
// or its responses are submitted. It reports whether a question was removed.
func (s *Session) DeleteQuestion(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index <= 0 || index >= len(s.slots) {
		return false
	}
	if s.machine.Current() != StateDraft {
		return false
	}
	if form, ok := s.svc.Form(s.formID); ok && form.ResponsesSubmitted() {
		return false
	}

	id := s.slots[index].id
	s.slots = append(s.slots[:index], s.slots[index+1:]...)
	delete(s.errs, id)
	delete(s.saving, id)

	switch {
	case s.expanded == index:
		s.expanded = -1
	case s.expanded > index:
		s.expanded--
	}

	s.scheduleSaveLocked()
	return true
}

// ToggleExpanded opens the question at index, or closes it when it is
// already open.
func (s *Session) ToggleExpanded(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == index {
		s.expanded = -1
		return
	}
	if index >= 0 && index < len(s.slots) {
		s.expanded = index
	}
}

// Expanded returns the index of the open question, or -1.
func (s *Session) Expanded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded
}

// Saving reports whether the question at index is within its saving grace
// period.
func (s *Session) Saving(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.slots) {
		return false
	}
	_, ok := s.saving[s.slots[index].id]
	return ok
}

// Errors renders the error map with index based keys: "question_<i>" for
// whole-question messages and "<field>_<i>" for field messages.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorsLocked()
}

// Pending reports whether a debounced write is waiting.
func (s *Session) Pending() bool {
	return s.debouncer.Pending(s.formID)
}

// Flush runs the pending debounced write now. It reports whether there was
// one.
func (s *Session) Flush() bool {
	return s.debouncer.Flush(s.formID)
}

// Close drops the pending write without running it.
func (s *Session) Close() {
	s.debouncer.Stop()
}

// Submit validates every question and, when all are valid, submits the form.
//
// Only one form may be submitting at a time across the store. After the
// settle delay the form list is written with this form marked submitted and
// carrying the working questions. On success the store is updated and the
// session moves to submitted; on failure it returns to draft and the user is
// notified.
//
// A *validate.FormError is returned when questions are invalid.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}

	invalid := false
	for _, sl := range s.slots {
		if msgs := validate.QuestionDefinition(sl.q); len(msgs) > 0 {
			s.setErrorLocked(sl.id, questionKey, validate.JoinDefinitionErrors(msgs))
			invalid = true
		}
	}
	if invalid {
		errs := s.errorsLocked()
		s.mu.Unlock()
		return &validate.FormError{Errors: errs}
	}

	free := func(st formstate.State) bool { return st.SubmittingFormID == "" }
	if !s.svc.Store().DispatchIf(free, formstate.SetSubmittingForm{FormID: s.formID}) {
		s.mu.Unlock()
		return fmt.Errorf("submit %q: %w", s.formID, formsync.ErrSubmissionInFlight)
	}
	defer s.svc.Store().Dispatch(formstate.SetSubmittingForm{})

	if err := s.machine.Event(context.WithoutCancel(ctx), eventSubmit); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("submit %q: %w", s.formID, err)
	}
	questions := s.questionsLocked()
	s.mu.Unlock()

	if err := s.submit(ctx, questions); err != nil {
		_ = s.machine.Event(context.WithoutCancel(ctx), eventFail)
		s.logger.Error("failed to submit form", "form_id", s.formID, "error", err)
		s.svc.Notify(formsync.SeverityError, formsync.MsgSubmitFailed)
		return fmt.Errorf("submit %q: %w", s.formID, err)
	}

	_ = s.machine.Event(context.WithoutCancel(ctx), eventSucceed)
	s.svc.Notify(formsync.SeveritySuccess, formsync.MsgFormSubmitted)
	s.logger.Info("form submitted", "form_id", s.formID)
	return nil
}

func (s *Session) submit(ctx context.Context, questions []model.Question) error {
	if err := s.clock.Sleep(ctx, s.settle); err != nil {
		return err
	}

	// The submitted document carries the working questions, so a pending
	// save is superseded.
	hadPending := s.debouncer.Cancel(s.formID)

	forms := s.svc.Forms()
	i := model.FindForm(forms, s.formID)
	if i < 0 {
		return formsync.ErrFormNotFound
	}
	forms[i].Questions = model.CloneQuestions(questions)
	forms[i].IsSubmitted = true

	if err := s.svc.SaveForms(ctx, forms); err != nil {
		if hadPending {
			s.debouncer.Schedule(s.formID, s.saveTask(questions))
		}
		return err
	}

	store := s.svc.Store()
	store.Dispatch(formstate.UpdateForm{FormID: s.formID, Questions: questions})
	store.Dispatch(formstate.SubmitForm{FormID: s.formID})
	return nil
}

func (s *Session) editableLocked() error {
	switch s.machine.Current() {
	case StateSubmitted:
		return fmt.Errorf("form %q: %w", s.formID, formsync.ErrAlreadySubmitted)
	case StateSubmitting:
		return fmt.Errorf("form %q: %w", s.formID, formsync.ErrSubmissionInFlight)
	}
	return nil
}

func (s *Session) scheduleSaveLocked() {
	s.debouncer.Schedule(s.formID, s.saveTask(s.questionsLocked()))
}

func (s *Session) saveTask(questions []model.Question) func() {
	return func() {
		// Failures are logged and surfaced by the service.
		if err := s.svc.UpdateForm(context.Background(), s.formID, questions); err != nil {
			s.logger.Debug("debounced save failed", "form_id", s.formID, "error", err)
		}
	}
}

func (s *Session) markSavingLocked(id int64) {
	s.savingGen++
	gen := s.savingGen
	s.saving[id] = gen
	s.clock.AfterFunc(s.grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.saving[id] == gen {
			delete(s.saving, id)
		}
	})
}

func (s *Session) appendSlot(q model.Question) {
	s.nextSlot++
	s.slots = append(s.slots, slot{id: s.nextSlot, q: q.Clone()})
}

func (s *Session) questionsLocked() []model.Question {
	out := make([]model.Question, len(s.slots))
	for i, sl := range s.slots {
		out[i] = sl.q.Clone()
	}
	return out
}

func (s *Session) setErrorLocked(id int64, key, msg string) {
	m, ok := s.errs[id]
	if !ok {
		m = make(map[string]string)
		s.errs[id] = m
	}
	m[key] = msg
}

func (s *Session) clearErrorLocked(id int64, key string) {
	if m, ok := s.errs[id]; ok {
		delete(m, key)
		if len(m) == 0 {
			delete(s.errs, id)
		}
	}
}

func (s *Session) errorsLocked() map[string]string {
	out := make(map[string]string)
	for i, sl := range s.slots {
		for key, msg := range s.errs[sl.id] {
			out[key+"_"+strconv.Itoa(i)] = msg
		}
	}
	return out
}
