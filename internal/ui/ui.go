package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shelfsync/internal/bookmarks"
	"github.com/desertthunder/shelfsync/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BookmarkListView ViewState = iota
	ConfirmDeleteView
)

// BookmarkLister reads the local bookmark table for display.
type BookmarkLister interface {
	All() ([]*models.Bookmark, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	queue        *bookmarks.SyncQueue
	store        BookmarkLister
	width        int
	height       int
	bookmarkList list.Model
	selected     *models.Bookmark
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	delete key.Binding
	sync   key.Binding
	back   key.Binding
	yes    key.Binding
	no     key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		sync:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.delete},
		{k.sync, k.back},
		{k.yes, k.no, k.quit},
	}
}

// bookmarkItem wraps [models.Bookmark] to implement list.Item.
type bookmarkItem struct {
	bookmark *models.Bookmark
}

func (i bookmarkItem) FilterValue() string { return i.bookmark.Title }

func (i bookmarkItem) Title() string {
	title := i.bookmark.Title
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf("%s %s", title, statusBadge(i.bookmark.Status))
}

func (i bookmarkItem) Description() string {
	position := time.Duration(i.bookmark.Time) * time.Second
	return fmt.Sprintf("%s • %s", i.bookmark.BookID, position)
}

func statusBadge(status models.BookmarkStatus) string {
	switch status {
	case models.BookmarkSynced:
		return styles.ok.Render("✓")
	case models.BookmarkFailed:
		return styles.err.Render("✗")
	default:
		return styles.warn.Render("…")
	}
}

type bookmarksLoadedMsg struct {
	bookmarks []*models.Bookmark
	err       error
}

type sweepDoneMsg struct {
	err error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, queue *bookmarks.SyncQueue, store BookmarkLister) *Model {
	return &Model{
		ctx:   ctx,
		view:  BookmarkListView,
		queue: queue,
		store: store,
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// Init initializes the TUI by loading the local bookmark table.
func (m *Model) Init() tea.Cmd {
	return m.loadBookmarks()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.bookmarkList.Width() == 0 {
			m.bookmarkList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BookmarkListView:
			return m.handleListKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		}

	case bookmarksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(msg.bookmarks))
		for i, bookmark := range msg.bookmarks {
			items[i] = bookmarkItem{bookmark: bookmark}
		}
		m.bookmarkList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.bookmarkList.Title = "Bookmarks"
		m.bookmarkList.SetSize(m.width-4, m.height-8)
		return m, nil

	case sweepDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("sync failed: %v", msg.err)
		} else {
			m.status = "sync complete"
		}
		return m, m.loadBookmarks()
	}

	var cmd tea.Cmd
	m.bookmarkList, cmd = m.bookmarkList.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case BookmarkListView:
		return m.renderList()
	case ConfirmDeleteView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		m.status = "syncing..."
		return m, m.runSweep()
	case "d":
		selected := m.bookmarkList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(bookmarkItem); ok {
				m.selected = item.bookmark
				m.view = ConfirmDeleteView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.bookmarkList, cmd = m.bookmarkList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.selected = nil
		m.view = BookmarkListView
		return m, nil
	case "y":
		bookmark := m.selected
		m.selected = nil
		m.view = BookmarkListView
		if bookmark == nil {
			return m, nil
		}
		if err := m.queue.Delete(bookmark.BookID, bookmark.Time); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			return m, nil
		}
		m.status = "bookmark deleted"
		return m, m.loadBookmarks()
	}
	return m, nil
}

func (m *Model) loadBookmarks() tea.Cmd {
	return func() tea.Msg {
		all, err := m.store.All()
		return bookmarksLoadedMsg{bookmarks: all, err: err}
	}
}

func (m *Model) runSweep() tea.Cmd {
	return func() tea.Msg {
		err := m.queue.SyncPending(m.ctx)
		m.queue.Flush()
		return sweepDoneMsg{err: err}
	}
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.sync, m.keys.delete, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	status := ""
	if m.status != "" {
		status = styles.help.Render(m.status) + "\n"
	}

	return fmt.Sprintf("%s\n%s\n%s", m.bookmarkList.View(), status, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Delete bookmark?")
	info := ""
	if m.selected != nil {
		position := time.Duration(m.selected.Time) * time.Second
		info = fmt.Sprintf("\n%s at %s\n", m.selected.Title, position)
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
