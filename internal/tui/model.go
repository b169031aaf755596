// Package tui is the interactive terminal host for the todo list renderers.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"todoclient/internal/apiclient"
	"todoclient/internal/models"
	"todoclient/internal/notify"
	"todoclient/internal/querycache"
	"todoclient/internal/render"
	"todoclient/internal/todos"
)

// Mode selects the render strategy
type Mode string

const (
	ModeAppend Mode = "append"
	ModeWindow Mode = "window"
)

type focus int

const (
	focusList focus = iota
	focusSearch
	focusCreate
)

// chrome is the number of lines used by header, search bar and footer
const chrome = 5

type fetchDoneMsg struct{ err error }

type mutationDoneMsg struct{ err error }

type activatedMsg struct{}

// Options configure the model
type Options struct {
	Mode        Mode
	Overscan    int
	RowEstimate int
	User        string
}

// Model is the bubbletea model of the browse screen
type Model struct {
	ctx    context.Context
	ctrl   *todos.Controller
	bridge *Bridge

	mode   Mode
	user   string
	focus  focus
	search textinput.Model
	create textinput.Model

	appendList *render.AppendList
	window     *render.WindowList

	width, height int
	cursor        int
	scroll        int // append mode line offset

	fetchInFlight bool
	wantFetch     bool

	view        querycache.ListView
	frame       render.Frame
	rows        []string // rendered windowed rows
	rowStart    int      // scroll position of rows[0]
	status      notify.Notification
	quitting    bool
	sessionGone bool
}

// New creates the model. Wire bridge as the cache notifier and subscriber before running it.
func New(ctx context.Context, ctrl *todos.Controller, bridge *Bridge, opts Options) *Model {
	if opts.Mode == "" {
		opts.Mode = ModeWindow
	}
	if opts.RowEstimate <= 0 {
		opts.RowEstimate = 4
	}

	search := textinput.New()
	search.Placeholder = "Search todos"
	search.Prompt = "/ "
	search.CharLimit = 100

	create := textinput.New()
	create.Placeholder = "What needs doing?"
	create.Prompt = "+ "
	create.CharLimit = 200

	m := &Model{
		ctx:    ctx,
		ctrl:   ctrl,
		bridge: bridge,
		mode:   opts.Mode,
		user:   opts.User,
		search: search,
		create: create,
		width:  80,
		height: 24,
	}
	m.appendList = render.NewAppendList(m.requestFetch)
	virt := render.NewVirtualizer(render.VirtualizerOptions{
		Estimate:    opts.RowEstimate,
		Overscan:    opts.Overscan,
		Breakpoints: TerminalBreakpoints,
	})
	m.window = render.NewWindowList(virt, m.requestFetch)
	m.refresh()
	return m
}

func (m *Model) requestFetch() { m.wantFetch = true }

// Init starts the cursor blink, the notification listener and the first page load
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.wait(), m.loadCmd())
}

func (m *Model) loadCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return fetchDoneMsg{err: ctrl.Load(ctx)}
	}
}

func (m *Model) fetchNextCmd() tea.Cmd {
	m.fetchInFlight = true
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return fetchDoneMsg{err: ctrl.FetchNextPage(ctx)}
	}
}

// flushCmd activates pending search or filter input off the UI goroutine
func (m *Model) flushCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Flush()
		return activatedMsg{}
	}
}

func (m *Model) mutationCmd(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return mutationDoneMsg{err: fn(ctx)}
	}
}

func (m *Model) bodyHeight() int {
	return max(m.height-chrome, 1)
}

// Update handles one message and returns the commands it schedules
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case cacheChangedMsg:
		cmds = append(cmds, m.bridge.wait())

	case notificationMsg:
		m.status = notify.Notification(msg)
		cmds = append(cmds, m.bridge.wait())

	case sessionEndedMsg:
		m.sessionGone = true
		m.quitting = true
		return m, tea.Quit

	case fetchDoneMsg:
		m.fetchInFlight = false
		m.noteError(msg.err)

	case activatedMsg:
		m.scroll = 0
		m.window.Virtualizer().ScrollTo(0)

	case mutationDoneMsg:
		// the cache already reported the failure through the bridge
		if apiclient.IsUnauthenticated(msg.err) {
			m.noteError(msg.err)
		}

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.quitting {
			return m, tea.Quit
		}
	}

	m.refresh()
	if m.wantFetch {
		m.wantFetch = false
		if !m.fetchInFlight {
			cmds = append(cmds, m.fetchNextCmd())
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) noteError(err error) {
	if err == nil {
		return
	}
	if apiclient.IsUnauthenticated(err) {
		m.status = notify.Notification{Level: notify.LevelError, Message: "Session expired. Please log in again."}
		return
	}
	m.status = notify.Notification{Level: notify.LevelError, Message: apiclient.Message(err)}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.focus {
	case focusSearch:
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.focus = focusList
			m.search.Blur()
			if msg.Type == tea.KeyEnter {
				return m.flushCmd()
			}
			return nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.ctrl.SetSearch(m.search.Value())
		return cmd

	case focusCreate:
		switch msg.Type {
		case tea.KeyEsc:
			m.focus = focusList
			m.create.Blur()
			m.create.Reset()
			return nil
		case tea.KeyEnter:
			title := strings.TrimSpace(m.create.Value())
			m.focus = focusList
			m.create.Blur()
			m.create.Reset()
			if title == "" {
				return nil
			}
			ctrl := m.ctrl
			m.cursor = 0
			return m.mutationCmd(func(ctx context.Context) error {
				_, err := ctrl.Create(ctx, models.CreateTodoRequest{Title: title})
				return err
			})
		}
		var cmd tea.Cmd
		m.create, cmd = m.create.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return nil
	case "/":
		m.focus = focusSearch
		return m.search.Focus()
	case "n":
		m.focus = focusCreate
		return m.create.Focus()
	case "j", "down":
		m.move(m.rowStep())
	case "k", "up":
		m.move(-m.rowStep())
	case "l", "right":
		if m.mode == ModeWindow {
			m.move(1)
		}
	case "h", "left":
		if m.mode == ModeWindow {
			m.move(-1)
		}
	case "pgdown", "ctrl+d":
		m.move(m.bodyHeight())
	case "pgup", "ctrl+u":
		m.move(-m.bodyHeight())
	case "tab":
		if m.mode == ModeAppend {
			m.mode = ModeWindow
		} else {
			m.mode = ModeAppend
		}
	case "f":
		f := m.ctrl.Filter()
		f.Status = nextStatus(f.Normalize().Status)
		m.ctrl.SetFilter(f)
		m.cursor = 0
		return m.flushCmd()
	case "x", " ":
		if t, ok := m.selected(); ok {
			ctrl, id, done := m.ctrl, t.ID, !t.Completed
			return m.mutationCmd(func(ctx context.Context) error {
				_, err := ctrl.Toggle(ctx, id, done)
				return err
			})
		}
	case "d":
		if t, ok := m.selected(); ok {
			ctrl, id := m.ctrl, t.ID
			return m.mutationCmd(func(ctx context.Context) error {
				return ctrl.Delete(ctx, id)
			})
		}
	case "r":
		if m.frame.Retry && m.view.PagesLoaded > 0 && !m.fetchInFlight {
			return m.fetchNextCmd()
		}
		ctx, ctrl := m.ctx, m.ctrl
		return func() tea.Msg { return fetchDoneMsg{err: ctrl.Refresh(ctx)} }
	}
	return nil
}

func nextStatus(s models.Status) models.Status {
	switch s {
	case models.StatusPending:
		return models.StatusCompleted
	case models.StatusCompleted:
		return models.StatusAll
	default:
		return models.StatusPending
	}
}

func (m *Model) selected() (models.Todo, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Todos) {
		return models.Todo{}, false
	}
	return m.view.Todos[m.cursor], true
}

func (m *Model) move(delta int) {
	m.cursor = max(min(m.cursor+delta, len(m.view.Todos)-1), 0)
}

// rowStep is how far j/k move: one item in the list, one grid row in the windowed view
func (m *Model) rowStep() int {
	if m.mode == ModeWindow {
		return m.window.Virtualizer().Columns()
	}
	return 1
}

// refresh re-reads the cache and lays out the active renderer
func (m *Model) refresh() {
	m.view = m.ctrl.View()
	m.view.IsFetchingNextPage = m.view.IsFetchingNextPage || m.fetchInFlight
	m.cursor = max(min(m.cursor, len(m.view.Todos)-1), 0)

	switch m.mode {
	case ModeAppend:
		m.layoutAppend()
	default:
		m.layoutWindow()
	}
}

func (m *Model) layoutAppend() {
	m.frame = m.appendList.Frame(m.view)
	h := m.bodyHeight()

	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+h {
		m.scroll = m.cursor - h + 1
	}
	m.scroll = max(min(m.scroll, len(m.frame.Items)+1-h), 0)

	if m.frame.State != render.StateItems {
		return
	}
	// the sentinel is the line right after the last item
	ratio := 0.0
	if sentinel := len(m.frame.Items); sentinel >= m.scroll && sentinel < m.scroll+h {
		ratio = 1
	}
	m.appendList.OnSentinel(ratio, m.view)
}

func (m *Model) layoutWindow() {
	m.frame = m.appendList.Frame(m.view)
	virt := m.window.Virtualizer()
	virt.SetViewport(m.width, m.bodyHeight())

	cols := virt.Columns()
	cardWidth := max(m.width/cols, 12)

	// keep the cursor's row in view
	virt.SetCount(len(m.view.Todos))
	if rows := virt.Rows(); len(rows) > 0 && len(m.view.Todos) > 0 {
		row := m.cursor / cols
		for _, r := range rows {
			if r.Index != row {
				continue
			}
			if r.Start < virt.Offset() {
				virt.ScrollTo(r.Start)
			} else if r.Start+r.Size > virt.Offset()+m.bodyHeight() {
				virt.ScrollTo(r.Start + r.Size - m.bodyHeight())
			}
		}
	}

	win, _ := m.window.Sync(m.view)
	m.renderRows(win, cardWidth)
	// measured heights replace the estimate; lay out again with them
	win, _ = m.window.Sync(m.view)
	m.renderRows(win, cardWidth)
}

func (m *Model) renderRows(win render.Window, cardWidth int) {
	virt := m.window.Virtualizer()
	m.rows = m.rows[:0]
	m.rowStart = 0
	if len(win.Rows) > 0 {
		m.rowStart = win.Rows[0].Start
	}
	for _, r := range win.Rows {
		cards := make([]string, 0, len(r.Items))
		for i, t := range r.Items {
			cards = append(cards, renderCard(t, r.First+i == m.cursor, cardWidth))
		}
		row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
		virt.Measure(r.Index, lipgloss.Height(row))
		m.rows = append(m.rows, row)
	}
}

func (m *Model) View() string {
	if m.quitting {
		if m.sessionGone {
			return "Session expired. Please log in again.\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header() + "\n")
	switch m.focus {
	case focusCreate:
		b.WriteString(m.create.View() + "\n")
	default:
		b.WriteString(m.search.View() + "\n")
	}

	body := m.body()
	lines := strings.Split(body, "\n")
	h := m.bodyHeight()
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines, "\n") + "\n")

	b.WriteString(renderNotification(m.status) + "\n")
	b.WriteString(faintStyle.Render(m.help()))
	return b.String()
}

func (m *Model) header() string {
	s := m.view.Stats
	title := titleStyle.Render("Todos")
	if m.user != "" {
		title += faintStyle.Render(" · " + m.user)
	}
	filter := m.view.Key.Filter.Normalize()
	info := fmt.Sprintf("%d total · %d done · %d pending · %s", s.Total, s.Completed, s.Pending, filter.Status)
	if filter.Date != "" {
		info += " · " + filter.Date
	}
	if m.view.IsCreating {
		info += " · creating…"
	}
	return title + "  " + faintStyle.Render(info)
}

func (m *Model) help() string {
	return fmt.Sprintf("[%s] / search · n new · x toggle · d delete · f filter · r refresh · tab mode · q quit", m.mode)
}

func (m *Model) body() string {
	switch m.frame.State {
	case render.StateLoading:
		return strings.Join(renderSkeletons(m.frame.Skeletons, m.width), "\n")
	case render.StateError:
		return errorStyle.Render(m.frame.Message) + "\n" + faintStyle.Render("Press r to retry.")
	case render.StateNoResults, render.StateEmpty:
		return titleStyle.Render(m.frame.Title) + "\n" + m.frame.Message
	}

	if m.mode == ModeAppend {
		return m.appendBody()
	}
	return m.windowBody()
}

func (m *Model) appendBody() string {
	lines := make([]string, 0, len(m.frame.Items)+1)
	for i, t := range m.frame.Items {
		lines = append(lines, renderLine(t, i == m.cursor, m.width))
	}
	switch {
	case m.frame.Spinner:
		lines = append(lines, faintStyle.Render("Loading more…"))
	case m.frame.Retry:
		lines = append(lines, errorStyle.Render("Failed to load more. Press r to retry."))
	default:
		lines = append(lines, "")
	}

	end := min(m.scroll+m.bodyHeight(), len(lines))
	return strings.Join(lines[min(m.scroll, end):end], "\n")
}

func (m *Model) windowBody() string {
	if len(m.rows) == 0 {
		return ""
	}
	lines := strings.Split(strings.Join(m.rows, "\n"), "\n")
	skip := max(m.window.Virtualizer().Offset()-m.rowStart, 0)
	if skip >= len(lines) {
		return ""
	}
	lines = lines[skip:]
	if m.frame.Spinner {
		lines = append(lines, faintStyle.Render("Loading more…"))
	}
	return strings.Join(lines, "\n")
}
