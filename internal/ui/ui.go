package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LandingView ViewState = iota
	DashboardView
	ShelfView
	PickerView
)

// pane is the focused part of the landing and dashboard views.
type pane int

const (
	paneInput pane = iota
	paneResults
	paneLibrary
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	manager *session.Manager
	search  *session.Search
	shelf   *session.ShelfView

	view       ViewState
	focus      pane
	input      textinput.Model
	searchType models.SearchType
	results    list.Model
	library    list.Model
	volumes    list.Model
	picker     list.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap

	events      <-chan session.Event
	unsubscribe func()

	snap       session.Snapshot
	searchSnap session.SearchSnapshot
	shelfSnap  session.ShelfSnapshot
	searching  bool
	loggingIn  bool
	picking    *models.BookSummary
	width      int
	height     int
}

// NewModel creates a TUI model over the given session objects. It subscribes to the manager right away so no event
// is missed before [Model.Init] runs; call [Model.Close] when the program exits.
func NewModel(ctx context.Context, manager *session.Manager, search *session.Search, shelf *session.ShelfView) *Model {
	input := textinput.New()
	input.Placeholder = "Search books…"
	input.CharLimit = 200
	input.Focus()

	newList := func(title string) list.Model {
		l := list.New(nil, list.NewDefaultDelegate(), defaultWidth, defaultHeight)
		l.Title = title
		l.SetShowHelp(false)
		l.SetFilteringEnabled(false)
		return l
	}

	events, unsubscribe := manager.Subscribe()

	m := &Model{
		ctx:         ctx,
		manager:     manager,
		search:      search,
		shelf:       shelf,
		view:        LandingView,
		input:       input,
		searchType:  models.SearchGeneral,
		results:     newList("Results"),
		library:     newList("My Library"),
		volumes:     newList("Shelf"),
		picker:      newList("Add to shelf"),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:        help.New(),
		keys:        newKeyMap(),
		events:      events,
		unsubscribe: unsubscribe,
		width:       defaultWidth,
		height:      defaultHeight,
	}
	m.refresh()
	return m
}

// Close ends the session subscription.
func (m *Model) Close() {
	m.unsubscribe()
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Init starts listening for session events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spinner.Tick, textinput.Blink)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case LandingView, DashboardView:
			return m.handleHomeKeys(msg)
		case ShelfView:
			return m.handleShelfKeys(msg)
		case PickerView:
			return m.handlePickerKeys(msg)
		}
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionEvent:
		ev := msg.data.(sessionEvent)
		if !ev.open {
			return m, nil
		}
		m.refresh()
		cmds := []tea.Cmd{m.waitForEvent()}
		if ev.event.Kind != session.EventMutation {
			cmds = append(cmds, m.syncShelf(ev.event))
		}
		return m, tea.Batch(cmds...)

	case MsgSearchDone:
		m.searching = false
		m.results.ResetSelected()

	case MsgShelfLoaded:
		if m.view == ShelfView && m.shelf.Snapshot().Active == nil && msg.err() != nil {
			m.view = DashboardView
			m.setFocus(paneLibrary)
		}

	case MsgLoginDone:
		m.loggingIn = false
	}

	m.refresh()
	return m, nil
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.focus) {
		m.cycleFocus()
		return m, nil
	}

	if m.focus == paneInput {
		switch {
		case msg.Type == tea.KeyEnter:
			return m, m.runSearch()
		case key.Matches(msg, m.keys.searchType):
			m.searchType = m.searchType.Next()
			return m, nil
		case key.Matches(msg, m.keys.back):
			m.input.SetValue("")
			m.search.Clear()
			m.refresh()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.search):
		m.setFocus(paneInput)
		return m, nil
	case key.Matches(msg, m.keys.login) && m.view == LandingView:
		return m, m.login()
	case key.Matches(msg, m.keys.logout) && m.view == DashboardView:
		return m, m.logout()
	}

	switch m.focus {
	case paneResults:
		if key.Matches(msg, m.keys.add) {
			return m, m.openPicker()
		}
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd

	case paneLibrary:
		switch {
		case msg.Type == tea.KeyEnter:
			if item, ok := m.library.SelectedItem().(shelfItem); ok {
				return m, m.openShelf(item.shelf)
			}
			return m, nil
		case key.Matches(msg, m.keys.refresh):
			return m, m.fetchLibrary()
		}
		var cmd tea.Cmd
		m.library, cmd = m.library.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleShelfKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.shelf.Close()
		m.view = DashboardView
		m.setFocus(paneLibrary)
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.volumes.SelectedItem().(volumeItem); ok {
			return m, m.removeVolume(item.volume.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.refreshShelf()
	}

	var cmd tea.Cmd
	m.volumes, cmd = m.volumes.Update(msg)
	return m, cmd
}

func (m *Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.picking = nil
		m.view = DashboardView
		m.setFocus(paneResults)
		return m, nil
	case msg.Type == tea.KeyEnter:
		item, ok := m.picker.SelectedItem().(shelfItem)
		if !ok || m.picking == nil {
			return m, nil
		}
		book := *m.picking
		m.picking = nil
		m.view = DashboardView
		m.setFocus(paneResults)
		return m, m.addToShelf(book.GoogleID, item.shelf.Key())
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *Model) cycleFocus() {
	next := m.focus + 1
	if next == paneLibrary && m.view != DashboardView {
		next++
	}
	if next > paneLibrary {
		next = paneInput
	}
	m.setFocus(next)
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	if p == paneInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	listWidth := max(w-6, 20)
	m.results.SetSize(listWidth, max(h/2-4, 6))
	m.library.SetSize(listWidth, max(h/3, 6))
	m.volumes.SetSize(listWidth, max(h-10, 6))
	m.picker.SetSize(listWidth, max(h-10, 6))
	m.input.Width = max(w-24, 10)
	m.help.Width = w
}

// refresh copies session state into the model and rebuilds the list items.
func (m *Model) refresh() {
	m.snap = m.manager.Snapshot()
	m.searchSnap = m.search.Snapshot()
	m.shelfSnap = m.shelf.Snapshot()

	switch {
	case m.snap.SignedIn() && m.view == LandingView:
		m.view = DashboardView
	case !m.snap.SignedIn() && m.view != LandingView:
		m.view = LandingView
		m.picking = nil
		if m.focus == paneLibrary {
			m.setFocus(paneInput)
		}
	}

	results := make([]list.Item, 0, len(m.searchSnap.Results))
	for _, b := range m.searchSnap.Results {
		results = append(results, bookItem{book: b, state: m.snap.Mutations[b.GoogleID].Normalized()})
	}
	m.results.SetItems(results)

	shelves := make([]list.Item, 0, len(m.snap.Shelves))
	for _, s := range m.snap.Shelves {
		shelves = append(shelves, shelfItem{shelf: s})
	}
	m.library.SetItems(shelves)

	volumes := make([]list.Item, 0, len(m.shelfSnap.Volumes))
	for _, v := range m.shelfSnap.Volumes {
		if v.Renderable() {
			volumes = append(volumes, volumeItem{volume: v, state: m.snap.Mutations[v.ID].Normalized()})
		}
	}
	m.volumes.SetItems(volumes)
	if m.shelfSnap.Active != nil {
		m.volumes.Title = m.shelfSnap.Active.Label()
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		return sessionEventMsg(ev, ok)
	}
}

func (m *Model) syncShelf(ev session.Event) tea.Cmd {
	return func() tea.Msg {
		m.shelf.Sync(m.ctx, ev)
		return shelfLoadedMsg(nil)
	}
}

func (m *Model) runSearch() tea.Cmd {
	req := models.SearchRequest{Type: m.searchType, Query: strings.TrimSpace(m.input.Value())}
	m.searching = true
	m.setFocus(paneResults)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		_, err := m.search.Run(m.ctx, req)
		return searchDoneMsg(err)
	})
}

func (m *Model) login() tea.Cmd {
	m.loggingIn = true
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		m.manager.Login(m.ctx)
		return loginDoneMsg()
	})
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		m.manager.Logout(m.ctx)
		return loginDoneMsg()
	}
}

func (m *Model) fetchLibrary() tea.Cmd {
	return func() tea.Msg {
		_ = m.manager.FetchLibrary(m.ctx)
		return shelfLoadedMsg(nil)
	}
}

func (m *Model) openShelf(s models.Shelf) tea.Cmd {
	m.view = ShelfView
	m.volumes.Title = s.Label()
	m.volumes.SetItems(nil)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return shelfLoadedMsg(m.shelf.Open(m.ctx, s))
	})
}

func (m *Model) refreshShelf() tea.Cmd {
	return func() tea.Msg {
		return shelfLoadedMsg(m.shelf.Refresh(m.ctx))
	}
}

func (m *Model) removeVolume(volumeID string) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg(volumeID, m.shelf.Remove(m.ctx, volumeID))
	}
}

func (m *Model) addToShelf(bookID, shelfID string) tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg(bookID, m.manager.AddBookToShelf(m.ctx, bookID, shelfID))
	}
}

// openPicker shows the addable shelves for the selected result. Signed out, it records the log in prompt instead.
func (m *Model) openPicker() tea.Cmd {
	item, ok := m.results.SelectedItem().(bookItem)
	if !ok {
		return nil
	}
	if !m.snap.SignedIn() {
		return m.addToShelf(item.book.GoogleID, "0")
	}

	book := item.book
	m.picking = &book
	m.picker.Title = fmt.Sprintf("Add %q to", book.Title)

	shelves := m.manager.AddableShelves()
	items := make([]list.Item, 0, len(shelves))
	for _, s := range shelves {
		items = append(items, shelfItem{shelf: s})
	}
	m.picker.SetItems(items)
	m.picker.ResetSelected()
	m.view = PickerView
	return nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LandingView:
		body = m.renderLanding()
	case DashboardView:
		body = m.renderDashboard()
	case ShelfView:
		body = m.renderShelf()
	case PickerView:
		body = m.renderPicker()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderBanners(), body, m.renderHelp())
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("bkx · Book Search")
	if m.snap.Identity == nil {
		return title
	}
	return title + "  " + styles.help.Render("Signed in as "+m.snap.Identity.DisplayName())
}

func (m *Model) renderBanners() string {
	var banners []string
	if m.snap.AuthError != "" {
		banners = append(banners, styles.banner.Render("Login / Access Error: "+m.snap.AuthError))
	}
	if m.snap.LibraryError != "" {
		banners = append(banners, styles.banner.Render("Library Error: "+m.snap.LibraryError))
	}
	if m.shelfSnap.Error != "" && m.view != ShelfView {
		banners = append(banners, styles.banner.Render(m.shelfSnap.Error))
	}
	return strings.Join(banners, "\n")
}

func (m *Model) renderSearchPane() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", styles.ok.Render("["+m.searchType.Label()+"]"), m.input.View())

	switch {
	case m.searching:
		fmt.Fprintf(&b, "\n%s Searching…", m.spinner.View())
	case m.searchSnap.Error != "":
		fmt.Fprintf(&b, "\n%s", styles.warn.Render(m.searchSnap.Error))
	case len(m.results.Items()) > 0:
		fmt.Fprintf(&b, "\n%s", m.results.View())
	}
	return paneStyle(m.focus != paneLibrary).Render(b.String())
}

func (m *Model) renderLanding() string {
	prompt := "Sign in with Google to manage your bookshelves. Press l to log in."
	if m.loggingIn {
		prompt = m.spinner.View() + " Waiting for Google login in your browser…"
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderSearchPane(), styles.pane.Render(prompt))
}

func (m *Model) renderDashboard() string {
	var library string
	switch {
	case m.snap.LibraryLoading && m.snap.Shelves == nil:
		library = m.spinner.View() + " Loading library…"
	case m.snap.Shelves != nil && len(m.snap.Shelves) == 0:
		library = styles.warn.Render("No shelves found in your library.")
	case m.snap.Shelves == nil:
		library = styles.help.Render("Library not loaded. Press r to refresh.")
	default:
		library = m.library.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderSearchPane(), paneStyle(m.focus == paneLibrary).Render(library))
}

func (m *Model) renderShelf() string {
	var body string
	switch {
	case m.shelfSnap.Loading && m.shelfSnap.Volumes == nil:
		body = m.spinner.View() + " Loading shelf…"
	case m.shelfSnap.Error != "":
		body = styles.err.Render(m.shelfSnap.Error)
	case len(m.volumes.Items()) == 0:
		body = styles.help.Render(session.MsgShelfEmpty)
	default:
		body = m.volumes.View()
	}
	return styles.active.Render(body)
}

func (m *Model) renderPicker() string {
	if len(m.picker.Items()) == 0 {
		return styles.active.Render(styles.warn.Render("No shelves available to add to."))
	}
	return styles.active.Render(m.picker.View())
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case LandingView:
		keys = []key.Binding{m.keys.focus, m.keys.searchType, m.keys.login, m.keys.quit}
	case DashboardView:
		switch m.focus {
		case paneResults:
			keys = []key.Binding{m.keys.add, m.keys.focus, m.keys.search, m.keys.logout, m.keys.quit}
		case paneLibrary:
			keys = []key.Binding{m.keys.enter, m.keys.refresh, m.keys.focus, m.keys.logout, m.keys.quit}
		default:
			keys = []key.Binding{m.keys.enter, m.keys.searchType, m.keys.focus}
		}
	case ShelfView:
		keys = []key.Binding{m.keys.remove, m.keys.refresh, m.keys.back, m.keys.quit}
	case PickerView:
		keys = []key.Binding{m.keys.enter, m.keys.back}
	}
	return styles.help.Render(m.help.ShortHelpView(keys))
}
