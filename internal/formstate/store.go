package formstate

import (
	"log/slog"
	"sync"

	"github.com/roach88/formsync/internal/model"
)

// Store is the single mutable container for State. All mutation goes
// through Dispatch.
//
// Thread-safety: all methods are safe for concurrent use. Readers receive
// deep copies and cannot alias the stored state.
type Store struct {
	mu     sync.Mutex
	state  State
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store holding initial.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{
		state:  project(initial.Clone()),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch applies a and returns a copy of the resulting state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, a)
	s.logger.Debug("dispatch", "action", a.Type(), "forms", len(s.state.Forms))
	return s.state.Clone()
}

// DispatchIf applies a only when pred holds for the current state. The check
// and the transition are atomic. It reports whether a was applied.
func (s *Store) DispatchIf(pred func(State) bool, a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !pred(s.state) {
		return false
	}
	s.state = Reduce(s.state, a)
	s.logger.Debug("dispatch", "action", a.Type(), "forms", len(s.state.Forms))
	return true
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Forms returns a copy of every form.
func (s *Store) Forms() []model.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneForms(s.state.Forms)
}

// Form returns a copy of the form with id.
func (s *Store) Form(id string) (model.Form, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := model.FindForm(s.state.Forms, id)
	if i < 0 {
		return model.Form{}, false
	}
	return s.state.Forms[i].Clone(), true
}

// SubmittingFormID returns the id of the form being submitted, or "".
func (s *Store) SubmittingFormID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SubmittingFormID
}
