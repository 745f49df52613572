package formsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/formsync/internal/clock"
	"github.com/roach88/formsync/internal/formstate"
	"github.com/roach88/formsync/internal/model"
	"github.com/roach88/formsync/internal/port"
)

// Service owns the form state store and the persistence port.
//
// Thread-safety: all methods are safe for concurrent use.
type Service struct {
	store    *formstate.Store
	port     port.Port
	clock    clock.Clock
	ids      IDGenerator
	notifier Notifier
	logger   *slog.Logger

	// saveMu serializes document writes.
	saveMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for creation timestamps and by pipelines
// built on this service.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithIDGenerator sets the form id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// WithNotifier sets where user notifications go.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithStore sets the state store. By default the service creates an empty
// one.
func WithStore(st *formstate.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// New creates a service writing through p.
func New(p port.Port, opts ...Option) *Service {
	s := &Service{
		port:   p,
		clock:  clock.Real{},
		ids:    UUIDGenerator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	if s.store == nil {
		s.store = formstate.NewStore(formstate.State{}, formstate.WithLogger(s.logger))
	}
	return s
}

// Store returns the state store.
func (s *Service) Store() *formstate.Store { return s.store }

// Clock returns the service clock.
func (s *Service) Clock() clock.Clock { return s.clock }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// Notify forwards n to the configured notifier.
func (s *Service) Notify(severity Severity, message string) {
	s.notifier.Notify(Notification{Severity: severity, Message: message})
}

// Initialize loads the forms document. When it holds forms, they replace
// the store's collection and the first one is selected. Otherwise a default
// form is created and persisted.
func (s *Service) Initialize(ctx context.Context) error {
	forms, _, err := port.GetJSON[[]model.Form](ctx, s.port, port.FormsKey)
	if err != nil {
		s.logger.Error("failed to initialize forms", "key", port.FormsKey, "error", err)
		s.Notify(SeverityError, MsgLoadFailed)
		return fmt.Errorf("initialize: %w", err)
	}

	if len(forms) > 0 {
		s.store.Dispatch(formstate.InitializeForms{Forms: forms})
		s.logger.Debug("forms loaded", "count", len(forms))
		return nil
	}

	if _, err := s.CreateForm(ctx); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return nil
}

// CreateForm appends a new form titled "Form N+1", selects it and persists
// the collection. The form stays in memory when the write fails.
func (s *Service) CreateForm(ctx context.Context) (model.Form, error) {
	count := len(s.store.Forms())
	form := model.NewForm(s.ids.Generate(), model.DefaultFormTitle(count), s.clock.Now())

	s.store.Dispatch(formstate.CreateForm{Form: form})
	s.logger.Info("form created", "form_id", form.ID, "title", form.Title)

	return form, s.persist(ctx, form.ID)
}

// UpdateForm replaces a form's questions and persists the collection.
func (s *Service) UpdateForm(ctx context.Context, formID string, questions []model.Question) error {
	if _, ok := s.store.Form(formID); !ok {
		return fmt.Errorf("update form %q: %w", formID, ErrFormNotFound)
	}
	s.store.Dispatch(formstate.UpdateForm{FormID: formID, Questions: questions})
	return s.persist(ctx, formID)
}

// UpdateFormTitle renames a form and persists the collection.
func (s *Service) UpdateFormTitle(ctx context.Context, formID, title string) error {
	if _, ok := s.store.Form(formID); !ok {
		return fmt.Errorf("update title %q: %w", formID, ErrFormNotFound)
	}
	s.store.Dispatch(formstate.UpdateFormTitle{FormID: formID, Title: title})
	return s.persist(ctx, formID)
}

// SelectForm selects a form. It reports false for an unknown id and leaves
// the selection unchanged.
func (s *Service) SelectForm(formID string) bool {
	if _, ok := s.store.Form(formID); !ok {
		return false
	}
	s.store.Dispatch(formstate.SetSelectedForm{FormID: formID})
	return true
}

// Form returns a copy of the form with id.
func (s *Service) Form(formID string) (model.Form, bool) {
	return s.store.Form(formID)
}

// Forms returns a copy of every form.
func (s *Service) Forms() []model.Form {
	return s.store.Forms()
}

// SaveForms writes forms as the whole document. Failures are returned, not
// logged or surfaced; callers decide how to report them.
func (s *Service) SaveForms(ctx context.Context, forms []model.Form) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.put(ctx, forms)
}

// persist writes the store's current collection. A failure is logged and
// surfaced, and returned to the caller.
func (s *Service) persist(ctx context.Context, formID string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.put(ctx, s.store.Forms()); err != nil {
		s.logger.Error("failed to save forms", "form_id", formID, "key", port.FormsKey, "error", err)
		s.Notify(SeverityError, MsgSaveFailed)
		return err
	}
	return nil
}

func (s *Service) put(ctx context.Context, forms []model.Form) error {
	if forms == nil {
		forms = []model.Form{}
	}
	if err := port.PutJSON(ctx, s.port, port.FormsKey, forms); err != nil {
		return fmt.Errorf("save forms: %w", err)
	}
	return nil
}

// ModifyStored reads the persisted document, applies mutate to the form with
// formID and writes the document back. It returns the mutated form.
//
// The read and the write are separate port calls. Writes from this service
// are serialized, but another process writing the same key between the two
// calls loses its update.
func (s *Service) ModifyStored(ctx context.Context, formID string, mutate func(*model.Form)) (model.Form, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	forms, _, err := port.GetJSON[[]model.Form](ctx, s.port, port.FormsKey)
	if err != nil {
		return model.Form{}, fmt.Errorf("load forms: %w", err)
	}
	i := model.FindForm(forms, formID)
	if i < 0 {
		return model.Form{}, fmt.Errorf("modify %q: %w", formID, ErrFormNotFound)
	}
	mutate(&forms[i])
	if err := s.put(ctx, forms); err != nil {
		return model.Form{}, err
	}
	return forms[i].Clone(), nil
}
