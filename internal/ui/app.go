package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/focus"
	"github.com/five82/lattice/internal/grid"
	"github.com/five82/lattice/internal/logtail"
	"github.com/five82/lattice/internal/render"
	"github.com/five82/lattice/internal/rows"
	"github.com/five82/lattice/internal/theme"
)

// Poller refreshes the row count in the background.
type Poller interface {
	Start(ctx context.Context)
	Refresh(ctx context.Context) error
	OnChange(fn func(count int)) func()
	OnError(fn func(error)) func()
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Grid      *grid.Grid
	Poller    Poller
	StoreID   string
	ThemeName string
	PageRows  int
	Viewport  focus.Viewport
	OnTheme   func(name string)
	LogPath   string // log file shown by the log panel; empty disables it
}

// chrome is the number of lines that are not grid body: title bar, column
// header and status bar.
const chrome = 3

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	grid     *grid.Grid
	poller   Poller
	storeID  string
	pageRows int
	base     focus.Viewport
	onTheme  func(string)
	logPath  string

	// UI state
	keys      keyMap
	help      help.Model
	themeName string
	width     int
	height    int
	ready     bool
	showHelp  bool
	showLogs  bool

	// Data state
	rowCount    int
	countKnown  bool
	top         int
	colOffset   int
	page        []render.Output
	pageSeq     int
	lastErr     error
	lastUpdated time.Time
	logs        []logtail.Entry
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = theme.Names()[0]
	}

	pageRows := opts.PageRows
	if pageRows <= 0 {
		pageRows = 200
	}

	keys := DefaultKeyMap()
	keys.Logs.SetEnabled(opts.LogPath != "")

	return Model{
		ctx:       ctx,
		grid:      opts.Grid,
		poller:    opts.Poller,
		storeID:   opts.StoreID,
		pageRows:  pageRows,
		base:      opts.Viewport,
		onTheme:   opts.OnTheme,
		logPath:   opts.LogPath,
		keys:      keys,
		help:      help.New(),
		themeName: themeName,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	m.grid.Focus()
	return fetchCountCmd(m.ctx, m.grid)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.applyViewport()
		return m, m.loadPage()

	case countMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.rowCount = msg.count
		m.countKnown = true
		if m.top >= m.rowCount {
			m.top = max(m.rowCount-1, 0)
		}
		return m, m.loadPage()

	case pageMsg:
		if msg.seq != m.pageSeq {
			return m, nil
		}
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		if msg.page != nil {
			m.page = msg.page
			m.lastErr = nil
			m.lastUpdated = time.Now()
		}
		return m, nil

	case pollErrMsg:
		m.lastErr = msg.err
		return m, nil

	case refreshMsg:
		if m.showLogs {
			return m, tea.Batch(m.loadPage(), loadLogsCmd(m.logPath, m.bodyHeight()))
		}
		return m, m.loadPage()

	case logsMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.logs = msg.entries
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showLogs {
		return m.renderLogs()
	}
	return m.renderMain()
}

func (m Model) bodyHeight() int {
	return max(m.height-chrome, 1)
}

// applyViewport pushes the terminal geometry and scroll position into the
// grid so the focus overlay tracks what is drawn.
func (m *Model) applyViewport() {
	vp := m.base
	vp.Width = m.width
	vp.Height = m.bodyHeight() + vp.HeaderHeight
	vp.ScrollX = m.scrollX()
	vp.ScrollY = m.grid.Overlay().RowTop(m.top)
	m.grid.SetViewport(vp)
}

// loadPage requests the rows visible from m.top. Results of older requests
// are dropped by sequence number.
func (m *Model) loadPage() tea.Cmd {
	m.pageSeq++
	first := m.top
	last := first + min(m.bodyHeight(), m.pageRows) - 1
	if m.countKnown {
		if m.rowCount == 0 {
			m.page = nil
			return nil
		}
		last = min(last, m.rowCount-1)
	}
	return fetchPageCmd(m.ctx, m.grid, m.pageSeq, first, last)
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.showLogs {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Logs, m.keys.Escape) {
			m.showLogs = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.grid.Invalidate()
		return m, tea.Batch(refreshCountCmd(m.ctx, m.grid, m.poller), m.loadPage())
	case key.Matches(msg, m.keys.Logs):
		m.showLogs = true
		return m, loadLogsCmd(m.logPath, m.bodyHeight())
	case key.Matches(msg, m.keys.Escape):
		m.grid.ClearSelection()
		m.grid.SetEditing(nil, nil)
	case key.Matches(msg, m.keys.Up):
		m.grid.MoveFocus(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.grid.MoveFocus(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.grid.MoveFocus(0, -1)
	case key.Matches(msg, m.keys.Right):
		m.grid.MoveFocus(0, 1)
	case key.Matches(msg, m.keys.PageUp):
		m.grid.MoveFocus(-m.bodyHeight(), 0)
	case key.Matches(msg, m.keys.PageDown):
		m.grid.MoveFocus(m.bodyHeight(), 0)
	case key.Matches(msg, m.keys.Top):
		cur, _ := m.grid.Focused()
		m.grid.MoveFocus(-cur.Row, 0)
	case key.Matches(msg, m.keys.Bottom):
		m.grid.MoveFocus(max(m.rowCount, 1), 0)
	case key.Matches(msg, m.keys.Select):
		if cur, ok := m.grid.Focused(); ok {
			m.grid.Select(cur.Row, !m.grid.View().Selected[cur.Row])
		}
	case key.Matches(msg, m.keys.Edit):
		m.toggleEditing()
	case key.Matches(msg, m.keys.Toggle):
		m.toggleBoolean()
	case key.Matches(msg, m.keys.Sort):
		m.sortFocused()
	case key.Matches(msg, m.keys.ClearSort):
		m.grid.Columns().ClearSort()
	case key.Matches(msg, m.keys.Narrow):
		m.resizeFocused(-2)
	case key.Matches(msg, m.keys.Widen):
		m.resizeFocused(2)
	case key.Matches(msg, m.keys.MoveLeft):
		m.moveFocused(-1)
	case key.Matches(msg, m.keys.MoveRight):
		m.moveFocused(1)
	case key.Matches(msg, m.keys.Hide):
		m.hideFocused()
	case key.Matches(msg, m.keys.ShowAll):
		m.showAllColumns()
	default:
		return m, nil
	}

	m.ensureVisible()
	m.applyViewport()
	return m, m.loadPage()
}

func (m *Model) cycleTheme() {
	m.themeName = theme.Next(m.themeName)
	m.grid.SetTheme(theme.NewStaticRepository(theme.Builtin(m.themeName)))
	if m.onTheme != nil {
		m.onTheme(m.themeName)
	}
}

// focusedColumn returns the descriptor of the focused column.
func (m Model) focusedColumn() (columns.Descriptor, render.Coord, bool) {
	cur, ok := m.grid.Focused()
	if !ok {
		return columns.Descriptor{}, cur, false
	}
	col, err := m.grid.Columns().Get(columns.HandleFor(cur.Col))
	if err != nil {
		return columns.Descriptor{}, cur, false
	}
	return col, cur, true
}

func (m *Model) sortFocused() {
	col, _, ok := m.focusedColumn()
	if !ok {
		return
	}
	ascending := col.SortOrder != columns.SortAscending
	if err := m.grid.Columns().SortBy(columns.HandleFor(col.Index), ascending); err != nil {
		m.lastErr = err
	}
}

func (m *Model) resizeFocused(delta int) {
	col, _, ok := m.focusedColumn()
	if !ok {
		return
	}
	width := max(col.Width+delta, 1)
	if err := m.grid.Columns().Update(columns.HandleFor(col.Index), columns.Patch{Width: &width}); err != nil {
		m.lastErr = err
	}
}

func (m *Model) moveFocused(delta int) {
	col, _, ok := m.focusedColumn()
	if !ok {
		return
	}
	if err := m.grid.Columns().Reorder(columns.HandleFor(col.Index), max(col.Position+delta, 0)); err != nil {
		m.lastErr = err
	}
}

func (m *Model) hideFocused() {
	col, _, ok := m.focusedColumn()
	if !ok || len(m.grid.Columns().Visible()) <= 1 {
		return
	}
	hidden := false
	if err := m.grid.Columns().Update(columns.HandleFor(col.Index), columns.Patch{Visible: &hidden}); err != nil {
		m.lastErr = err
		return
	}
	// Hiding the column cleared the overlay; land on a neighbor.
	m.grid.MoveFocus(0, 0)
}

func (m *Model) showAllColumns() {
	visible := true
	for _, col := range m.grid.Columns().Columns() {
		if col.Visible {
			continue
		}
		if err := m.grid.Columns().Update(columns.HandleFor(col.Index), columns.Patch{Visible: &visible}); err != nil {
			m.lastErr = err
		}
	}
}

func (m *Model) toggleEditing() {
	cur, ok := m.grid.Focused()
	if !ok {
		return
	}
	if ed := m.grid.View().Editing; ed != nil && *ed == cur {
		m.grid.SetEditing(nil, nil)
		return
	}
	m.grid.SetEditing(&cur.Col, &cur.Row)
}

// toggleBoolean flips a resident boolean cell locally.
func (m *Model) toggleBoolean() {
	col, cur, ok := m.focusedColumn()
	if !ok || col.Kind != columns.KindBoolean {
		return
	}
	rec, ok := m.grid.Cache().Row(cur.Row)
	if !ok {
		return
	}
	m.grid.Cache().SetCellValue(cur.Row, cur.Col, !truthy(rec.Data[cur.Col]))
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		return b == "1" || b == "true"
	default:
		return false
	}
}

// ensureVisible scrolls so the focused cell is inside the body.
func (m *Model) ensureVisible() {
	cur, ok := m.grid.Focused()
	if !ok {
		return
	}
	overlay := m.grid.Overlay()
	if cur.Row < m.top {
		m.top = cur.Row
	}
	for m.top < cur.Row && overlay.RowTop(cur.Row+1)-overlay.RowTop(m.top) > m.bodyHeight() {
		m.top++
	}

	frozen, scrollable := m.splitColumns()
	for _, col := range frozen {
		if col.Index == cur.Col {
			return
		}
	}
	pos := -1
	for i, col := range scrollable {
		if col.Index == cur.Col {
			pos = i
			break
		}
	}
	if pos < 0 {
		return
	}
	if pos < m.colOffset {
		m.colOffset = pos
	}
	for m.colOffset < pos && !m.fits(frozen, scrollable[m.colOffset:pos+1]) {
		m.colOffset++
	}
}

// Messages

type countMsg struct {
	count int
	err   error
}

type pageMsg struct {
	seq  int
	page []render.Output
	err  error
}

type pollErrMsg struct{ err error }

type refreshMsg struct{}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func fetchCountCmd(ctx context.Context, g *grid.Grid) tea.Cmd {
	return func() tea.Msg {
		n, err := g.RowCount(ctx)
		return countMsg{count: n, err: err}
	}
}

func refreshCountCmd(ctx context.Context, g *grid.Grid, p Poller) tea.Cmd {
	if p == nil {
		return fetchCountCmd(ctx, g)
	}
	return func() tea.Msg {
		if err := p.Refresh(ctx); err != nil {
			return pollErrMsg{err: err}
		}
		n, err := g.RowCount(ctx)
		return countMsg{count: n, err: err}
	}
}

func loadLogsCmd(path string, lines int) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, lines)
		return logsMsg{entries: entries, err: err}
	}
}

func fetchPageCmd(ctx context.Context, g *grid.Grid, seq, first, last int) tea.Cmd {
	return func() tea.Msg {
		page, err := g.Page(ctx, first, last)
		return pageMsg{seq: seq, page: page, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts.Context = ctx

	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Listeners can fire inside Update; Send would block the event loop.
	send := func(msg tea.Msg) { go p.Send(msg) }
	unsubscribe := []func(){
		opts.Grid.OnStyleInvalidated(func(uint64) { send(refreshMsg{}) }),
		opts.Grid.OnDataChanged(func(rows.DataChanged) { send(refreshMsg{}) }),
		opts.Grid.OnRowHeightChanged(func(rows.RowHeightChanged) { send(refreshMsg{}) }),
	}
	if opts.Poller != nil {
		unsubscribe = append(unsubscribe,
			opts.Poller.OnChange(func(n int) { send(countMsg{count: n}) }),
			opts.Poller.OnError(func(err error) { send(pollErrMsg{err: err}) }),
		)
		opts.Poller.Start(ctx)
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}
