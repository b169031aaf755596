// Package notify delivers short user-facing messages about completed or failed operations.
package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
	"todoclient/internal/logging"
)

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is one message for the user
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier receives notifications
type Notifier interface {
	Notify(Notification)
}

// Func adapts a function to Notifier
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Success is shorthand for a success notification
func Success(n Notifier, title, message string) {
	n.Notify(Notification{Level: LevelSuccess, Title: title, Message: message})
}

// Error is shorthand for an error notification
func Error(n Notifier, title, message string) {
	n.Notify(Notification{Level: LevelError, Title: title, Message: message})
}

// LogNotifier writes notifications to the global logger
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	entry := logging.Component("notify").WithFields(logrus.Fields{"title": n.Title})
	switch n.Level {
	case LevelError:
		entry.Error(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Discard drops everything
type Discard struct{}

func (Discard) Notify(Notification) {}

// Recorder keeps notifications in memory
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of everything recorded
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Errors returns only the error notifications
func (r *Recorder) Errors() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.items {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset forgets everything recorded
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
