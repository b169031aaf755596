package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"todoclient/internal/models"
	"todoclient/internal/notify"
	"todoclient/internal/session"
)

type cacheChangedMsg struct{ key models.QueryKey }

type notificationMsg notify.Notification

type sessionEndedMsg struct{}

// Bridge forwards events from background goroutines into the bubbletea loop.
// It implements notify.Notifier and can be subscribed to the cache and session manager.
type Bridge struct {
	ch chan tea.Msg
}

// NewBridge creates a bridge with a small buffer; events beyond it are dropped
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan tea.Msg, 64)}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

// Notify implements notify.Notifier
func (b *Bridge) Notify(n notify.Notification) {
	b.send(notificationMsg(n))
}

// CacheChanged is a querycache subscriber
func (b *Bridge) CacheChanged(key models.QueryKey) {
	b.send(cacheChangedMsg{key: key})
}

// SessionChanged is a session.Manager subscriber; losing the session ends the program
func (b *Bridge) SessionChanged(_ models.Credential, state session.State) {
	if state == session.StateUnauthenticated {
		b.send(sessionEndedMsg{})
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
