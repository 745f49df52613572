package formsync

import (
	"context"
	"log/slog"
	"sync"
)

// User-facing notification messages.
const (
	MsgFormSubmitted     = "Form is submitted successfully."
	MsgSubmitFailed      = "Failed to submit form. Please try again."
	MsgResponseSubmitted = "Your response is submitted successfully."
	MsgSaveFailed        = "Failed to save changes. Please try again."
	MsgLoadFailed        = "Failed to load forms. Please try again."
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a transient, dismissible message for the user.
type Notification struct {
	ID       int64    `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Inbox collects notifications until they are dismissed.
//
// Thread-safety: safe for concurrent use.
type Inbox struct {
	mu    sync.Mutex
	seq   int64
	items []Notification
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{}
}

// Notify implements Notifier. The notification is assigned the next id.
func (b *Inbox) Notify(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	n.ID = b.seq
	b.items = append(b.items, n)
}

// Open returns the notifications not yet dismissed, oldest first.
func (b *Inbox) Open() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.items))
	copy(out, b.items)
	return out
}

// Last returns the most recent open notification.
func (b *Inbox) Last() (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return Notification{}, false
	}
	return b.items[len(b.items)-1], true
}

// Dismiss removes the notification with id. It reports whether it was open.
func (b *Inbox) Dismiss(id int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.items {
		if n.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if n.Severity == SeverityError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, n.Message, "severity", string(n.Severity))
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}
