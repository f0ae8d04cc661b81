// Command inspect is a terminal debug tool for poking at engine state:
// the tables registered in the catalog, the rows and on-disk pages
// backing a chosen table, and the buffer pool / lock manager's
// occupancy. It opens its own Database over the data directory; that
// catalog starts empty and the tool registers no tables itself, so the
// table menu is empty. The row view runs its scan under its own
// transaction, committed before the next screen loads; the raw scan and
// page views read the heap file directly, without a transaction. It does
// not replace a SQL client, since there is no SQL front-end to replace.
package main

import (
	"fmt"
	"os"
	"strings"

	"storemy/pkg/buffer"
	"storemy/pkg/concurrency/lock"
	"storemy/pkg/database"
	"storemy/pkg/debug/ui"
	"storemy/pkg/execution"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type inspectKeyMap struct {
	ui.CommonKeyMap
	ui.NavigationKeyMap
}

var inspectKeys = inspectKeyMap{
	CommonKeyMap:     ui.CommonKeys,
	NavigationKeyMap: ui.NavigationKeys,
}

// view names the screen currently rendered.
type view string

const (
	viewLoading   view = "loading"
	viewMenu      view = "menu"
	viewTableData view = "table_data"
	viewPageView  view = "page_view"
	viewRuntime   view = "runtime"
)

type tableInfo struct {
	tableID primitives.TableID
	name    string
	schema  *tuple.TupleDescription
}

// menuEntry is one selectable row on the main menu: either a table or
// the runtime (buffer pool / lock manager) screen.
type menuEntry struct {
	label   string
	isTable bool
	table   tableInfo
}

type model struct {
	db      *database.Database
	dataDir string

	currentView view
	err         error

	entries []menuEntry
	cursor  int

	selected      *tableInfo
	columnHeaders []string
	tableData     [][]string
	rawScan       bool
	rowCursor     int
	scrollOffset  int

	currentPage primitives.PageNumber
	totalPages  int
	pageRows    [][]string

	cacheSnapshot []buffer.CachedPageSnapshot
	cacheCap      int
	lockSnapshot  []lock.PageLockSnapshot

	width, height int
}

func initialModel(dataDir string) model {
	return model{dataDir: dataDir, currentView: viewLoading}
}

func (m model) Init() tea.Cmd {
	return openDatabase(m.dataDir)
}

type dbOpenedMsg struct {
	db      *database.Database
	entries []menuEntry
	err     error
}

func openDatabase(dataDir string) tea.Cmd {
	return func() tea.Msg {
		db, err := database.NewDatabase(database.Config{DataDir: dataDir})
		if err != nil {
			return dbOpenedMsg{err: err}
		}

		names := db.Catalog().TableNames()
		entries := make([]menuEntry, 0, len(names)+1)
		for _, name := range names {
			id, err := db.Catalog().GetTableID(name)
			if err != nil {
				continue
			}
			desc, err := db.Catalog().GetTupleDesc(id)
			if err != nil {
				continue
			}
			entries = append(entries, menuEntry{
				label:   name,
				isTable: true,
				table:   tableInfo{tableID: id, name: name, schema: desc},
			})
		}
		entries = append(entries, menuEntry{label: "buffer pool & locks", isTable: false})

		return dbOpenedMsg{db: db, entries: entries}
	}
}

type tableDataMsg struct {
	headers []string
	rows    [][]string
	pages   int
	raw     bool
	err     error
}

func loadTableData(db *database.Database, info tableInfo) tea.Cmd {
	return func() tea.Msg {
		file, err := db.Catalog().GetDbFile(info.tableID)
		if err != nil {
			return tableDataMsg{err: err}
		}

		headers := make([]string, info.schema.NumFields())
		for i := 0; i < info.schema.NumFields(); i++ {
			name, _ := info.schema.GetFieldName(i)
			headers[i] = name
		}

		numPages, err := file.NumPages()
		if err != nil {
			return tableDataMsg{err: err}
		}

		ctx, err := db.BeginTransaction()
		if err != nil {
			return tableDataMsg{err: err}
		}

		scan, err := execution.NewSeqScan(ctx.ID, info.tableID, "", db.Catalog(), db.BufferPool())
		if err != nil {
			return tableDataMsg{err: err}
		}
		if err := scan.Open(); err != nil {
			return tableDataMsg{err: err}
		}
		defer scan.Close()

		var rows [][]string
		for {
			hasNext, err := scan.HasNext()
			if err != nil || !hasNext {
				break
			}
			t, err := scan.Next()
			if err != nil {
				break
			}
			row := make([]string, len(headers))
			for i := range row {
				field, err := t.GetField(i)
				if err != nil {
					row[i] = "ERROR"
					continue
				}
				row[i] = formatField(field)
			}
			rows = append(rows, row)
		}

		if err := db.CommitTransaction(ctx.ID); err != nil {
			return tableDataMsg{err: err}
		}

		return tableDataMsg{headers: headers, rows: rows, pages: numPages}
	}
}

// loadRawTableData scans a table's heap file directly through
// HeapFileIterator, bypassing the buffer pool and lock manager
// entirely. It never sees another transaction's uncommitted writes the
// way loadTableData's SeqScan does, which makes it useful for
// comparing what's actually durable on disk against what a live
// transaction observes.
func loadRawTableData(db *database.Database, info tableInfo) tea.Cmd {
	return func() tea.Msg {
		file, err := db.Catalog().GetDbFile(info.tableID)
		if err != nil {
			return tableDataMsg{err: err}
		}
		hf, ok := file.(*heap.HeapFile)
		if !ok {
			return tableDataMsg{err: fmt.Errorf("table %q is not a heap file", info.name)}
		}

		headers := make([]string, info.schema.NumFields())
		for i := 0; i < info.schema.NumFields(); i++ {
			name, _ := info.schema.GetFieldName(i)
			headers[i] = name
		}

		numPages, err := hf.NumPages()
		if err != nil {
			return tableDataMsg{err: err}
		}

		iter := heap.NewHeapFileIterator(hf, nil)
		if err := iter.Open(); err != nil {
			return tableDataMsg{err: err}
		}
		defer iter.Close()

		var rows [][]string
		for {
			hasNext, err := iter.HasNext()
			if err != nil || !hasNext {
				break
			}
			t, err := iter.Next()
			if err != nil {
				break
			}
			row := make([]string, len(headers))
			for i := range row {
				field, err := t.GetField(i)
				if err != nil {
					row[i] = "ERROR"
					continue
				}
				row[i] = formatField(field)
			}
			rows = append(rows, row)
		}

		return tableDataMsg{headers: headers, rows: rows, pages: numPages, raw: true}
	}
}

type pageDataMsg struct {
	page primitives.PageNumber
	rows [][]string
	err  error
}

func loadPageData(db *database.Database, info tableInfo, pageNo primitives.PageNumber) tea.Cmd {
	return func() tea.Msg {
		file, err := db.Catalog().GetDbFile(info.tableID)
		if err != nil {
			return pageDataMsg{err: err}
		}
		hf, ok := file.(*heap.HeapFile)
		if !ok {
			return pageDataMsg{err: fmt.Errorf("table %q is not a heap file", info.name)}
		}

		pid := heap.NewHeapPageID(info.tableID, pageNo)
		p, err := hf.ReadPage(pid)
		if err != nil {
			return pageDataMsg{err: err}
		}
		hp, ok := p.(*heap.HeapPage)
		if !ok {
			return pageDataMsg{err: fmt.Errorf("unexpected page type for table %q", info.name)}
		}

		iter := heap.NewHeapPageIterator(hp)
		if err := iter.Open(); err != nil {
			return pageDataMsg{err: err}
		}
		defer iter.Close()

		var rows [][]string
		for {
			hasNext, err := iter.HasNext()
			if err != nil || !hasNext {
				break
			}
			t, err := iter.Next()
			if err != nil {
				break
			}
			row := make([]string, info.schema.NumFields())
			for i := range row {
				field, err := t.GetField(i)
				if err != nil {
					row[i] = "ERROR"
					continue
				}
				row[i] = formatField(field)
			}
			rows = append(rows, row)
		}

		return pageDataMsg{page: pageNo, rows: rows}
	}
}

type runtimeSnapshotMsg struct {
	cache    []buffer.CachedPageSnapshot
	cacheCap int
	locks    []lock.PageLockSnapshot
}

func loadRuntimeSnapshot(db *database.Database) tea.Cmd {
	return func() tea.Msg {
		pool := db.BufferPool()
		return runtimeSnapshotMsg{
			cache:    pool.CacheSnapshot(),
			cacheCap: pool.CacheCapacity(),
			locks:    pool.LockSnapshot(),
		}
	}
}

func formatField(field types.Field) string {
	if field == nil {
		return "NULL"
	}
	switch f := field.(type) {
	case *types.IntField:
		return fmt.Sprintf("%d", f.Value)
	case *types.StringField:
		return strings.TrimSpace(f.Value)
	default:
		return field.String()
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dbOpenedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.db = msg.db
		m.entries = msg.entries
		m.currentView = viewMenu
		return m, nil

	case tableDataMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.columnHeaders = msg.headers
		m.tableData = msg.rows
		m.totalPages = msg.pages
		m.rawScan = msg.raw
		m.currentPage = 0
		m.rowCursor = 0
		m.currentView = viewTableData
		return m, nil

	case pageDataMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.currentPage = msg.page
		m.pageRows = msg.rows
		m.currentView = viewPageView
		return m, nil

	case runtimeSnapshotMsg:
		m.cacheSnapshot = msg.cache
		m.cacheCap = msg.cacheCap
		m.lockSnapshot = msg.locks
		m.currentView = viewRuntime
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case viewMenu:
		switch {
		case key.Matches(msg, inspectKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, inspectKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, inspectKeys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case key.Matches(msg, inspectKeys.Select):
			if m.cursor >= len(m.entries) {
				return m, nil
			}
			entry := m.entries[m.cursor]
			if entry.isTable {
				info := entry.table
				m.selected = &info
				return m, loadTableData(m.db, info)
			}
			return m, loadRuntimeSnapshot(m.db)
		}

	case viewTableData:
		switch {
		case key.Matches(msg, inspectKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, inspectKeys.Back):
			m.currentView = viewMenu
			m.tableData, m.columnHeaders, m.selected = nil, nil, nil
			return m, nil
		case key.Matches(msg, inspectKeys.Up):
			if m.rowCursor > 0 {
				m.rowCursor--
			}
		case key.Matches(msg, inspectKeys.Down):
			if m.rowCursor < len(m.tableData)-1 {
				m.rowCursor++
			}
		case key.Matches(msg, inspectKeys.Left):
			if m.scrollOffset > 0 {
				m.scrollOffset--
			}
		case key.Matches(msg, inspectKeys.Right):
			m.scrollOffset++
		case key.Matches(msg, inspectKeys.Select):
			if m.selected != nil {
				return m, loadPageData(m.db, *m.selected, m.currentPage)
			}
		case key.Matches(msg, inspectKeys.NextPage):
			if m.selected != nil && int(m.currentPage) < m.totalPages-1 {
				return m, loadPageData(m.db, *m.selected, m.currentPage+1)
			}
		case key.Matches(msg, inspectKeys.PrevPage):
			if m.selected != nil && m.currentPage > 0 {
				return m, loadPageData(m.db, *m.selected, m.currentPage-1)
			}
		case msg.String() == "r":
			if m.selected != nil {
				return m, loadRawTableData(m.db, *m.selected)
			}
		}

	case viewPageView:
		switch {
		case key.Matches(msg, inspectKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, inspectKeys.Back):
			m.currentView = viewTableData
			return m, nil
		case key.Matches(msg, inspectKeys.NextPage):
			if m.selected != nil && int(m.currentPage) < m.totalPages-1 {
				return m, loadPageData(m.db, *m.selected, m.currentPage+1)
			}
		case key.Matches(msg, inspectKeys.PrevPage):
			if m.selected != nil && m.currentPage > 0 {
				return m, loadPageData(m.db, *m.selected, m.currentPage-1)
			}
		}

	case viewRuntime:
		switch {
		case key.Matches(msg, inspectKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, inspectKeys.Back):
			m.currentView = viewMenu
			return m, nil
		case key.Matches(msg, inspectKeys.Select):
			return m, loadRuntimeSnapshot(m.db)
		}
	}

	return m, nil
}

func (m model) View() string {
	if m.err != nil {
		return ui.RenderError(m.err)
	}

	var b strings.Builder
	b.WriteString(ui.RenderTitle("\U0001F50D", "Engine Inspector"))
	b.WriteString("\n\n")

	switch m.currentView {
	case viewLoading:
		b.WriteString("Opening database...\n")
	case viewMenu:
		b.WriteString(m.renderMenu())
	case viewTableData:
		b.WriteString(m.renderTableData())
	case viewPageView:
		b.WriteString(m.renderPageView())
	case viewRuntime:
		b.WriteString(m.renderRuntime())
	}

	b.WriteString("\n" + m.renderStatusBar())
	return b.String()
}

func (m model) renderMenu() string {
	var b strings.Builder
	b.WriteString(ui.RenderHeaderWithCount("Tables & runtime", len(m.entries)))
	b.WriteString("\n\n")

	for i, entry := range m.entries {
		label := entry.label
		if entry.isTable {
			label = fmt.Sprintf("%s (id=%d, fields=%d)", entry.label, entry.table.tableID, entry.table.schema.NumFields())
		}
		if i == m.cursor {
			b.WriteString(ui.SelectedItemStyle.Render("▶ "+label) + "\n")
		} else {
			b.WriteString(ui.ItemStyle.Render("  "+label) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("up/down: navigate | enter: open | q: quit"))
	return b.String()
}

const maxColWidth = 30

func (m model) renderTableData() string {
	if m.selected == nil {
		return "No table selected.\n"
	}
	if len(m.tableData) == 0 {
		return "No rows in this table.\n\n" + ui.HelpStyle.Render("esc: back | q: quit")
	}

	mode := "transactional scan"
	if m.rawScan {
		mode = "raw file scan, bypasses buffer pool"
	}

	var b strings.Builder
	b.WriteString(ui.RenderHeaderWithCount(fmt.Sprintf("%s (%d rows, %d pages, %s)", m.selected.name, len(m.tableData), m.totalPages, mode), -1))
	b.WriteString("\n\n")

	colWidths := make([]int, len(m.columnHeaders))
	for i, h := range m.columnHeaders {
		colWidths[i] = ui.Max(len(h), 4)
	}
	for _, row := range m.tableData {
		for i, cell := range row {
			if i < len(colWidths) {
				colWidths[i] = ui.Max(colWidths[i], ui.Min(len(cell), maxColWidth))
			}
		}
	}

	visibleCols := make([]int, 0, len(m.columnHeaders))
	for i := range m.columnHeaders {
		if i >= m.scrollOffset && len(visibleCols) < 10 {
			visibleCols = append(visibleCols, i)
		}
	}

	headers := make([]string, len(visibleCols))
	widths := make([]int, len(visibleCols))
	for j, i := range visibleCols {
		headers[j] = m.columnHeaders[i]
		widths[j] = colWidths[i]
	}

	visibleStart := ui.Max(0, m.rowCursor-10)
	visibleEnd := ui.Min(len(m.tableData), visibleStart+20)
	data := make([][]string, 0, visibleEnd-visibleStart)
	selectedRow := -1
	for r := visibleStart; r < visibleEnd; r++ {
		row := make([]string, len(visibleCols))
		for j, i := range visibleCols {
			if i < len(m.tableData[r]) {
				row[j] = ui.TruncateString(m.tableData[r][i], maxColWidth)
			}
		}
		data = append(data, row)
		if r == m.rowCursor {
			selectedRow = len(data) - 1
		}
	}

	b.WriteString(ui.RenderTable(headers, data, widths, selectedRow))
	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("up/down: rows | left/right: scroll cols | n/p: page | enter: view page | r: raw scan | esc: back"))
	return b.String()
}

func (m model) renderPageView() string {
	var b strings.Builder
	b.WriteString(ui.RenderHeaderWithCount(fmt.Sprintf("page %d/%d", m.currentPage+1, m.totalPages), len(m.pageRows)))
	b.WriteString("\n\n")

	if len(m.pageRows) == 0 {
		b.WriteString("No live tuples on this page.\n")
	} else {
		widths := make([]int, len(m.columnHeaders))
		for i, h := range m.columnHeaders {
			widths[i] = ui.Max(len(h), 4)
		}
		for _, row := range m.pageRows {
			for i, cell := range row {
				if i < len(widths) {
					widths[i] = ui.Max(widths[i], len(cell))
				}
			}
		}
		b.WriteString(ui.RenderTable(m.columnHeaders, m.pageRows, widths, -1))
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("n/p: next/prev page | esc: back | q: quit"))
	return b.String()
}

func (m model) renderRuntime() string {
	var b strings.Builder
	b.WriteString(ui.RenderHeaderWithCount(fmt.Sprintf("buffer pool (%d/%d pages resident)", len(m.cacheSnapshot), m.cacheCap), -1))
	b.WriteString("\n\n")

	for _, c := range m.cacheSnapshot {
		dirty := "clean"
		if c.Dirty != nil {
			dirty = "dirty by " + c.Dirty.String()
		}
		b.WriteString(ui.ItemStyle.Render(fmt.Sprintf("  %v  [%s]", c.PageID, dirty)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.RenderHeaderWithCount(fmt.Sprintf("lock table (%d pages held)", len(m.lockSnapshot)), -1))
	b.WriteString("\n\n")

	for _, l := range m.lockSnapshot {
		holders := make([]string, len(l.Holders))
		for i, h := range l.Holders {
			holders[i] = h.String()
		}
		b.WriteString(ui.ItemStyle.Render(fmt.Sprintf("  %v  %s held by [%s], %d waiting",
			l.PageID, l.LockType, strings.Join(holders, ", "), l.Waiters)) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.HelpStyle.Render("enter: refresh | esc: back | q: quit"))
	return b.String()
}

func (m model) renderStatusBar() string {
	var status string
	switch m.currentView {
	case viewMenu:
		status = fmt.Sprintf(" Data directory: %s | entries: %d ", m.dataDir, len(m.entries))
	case viewTableData:
		if m.selected != nil {
			status = fmt.Sprintf(" %s | row %d/%d | page %d/%d ",
				m.selected.name, m.rowCursor+1, len(m.tableData), m.currentPage+1, m.totalPages)
		}
	case viewPageView:
		status = fmt.Sprintf(" page %d/%d | %d tuples ", m.currentPage+1, m.totalPages, len(m.pageRows))
	case viewRuntime:
		status = " buffer pool & lock manager snapshot "
	default:
		status = " loading... "
	}
	return ui.RenderStatusBar(status)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: inspect <data-directory>")
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(os.Args[1]), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}
