// Package reader implements the bubbletea model for the reading surface:
// page navigation in both numbering modes, resize-safe position restore,
// mouse text selection backed by per-frame line geometry, and transient
// toasts for clipboard feedback.
package reader

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/keys"
	"github.com/folioterm/folio/internal/log"
	"github.com/folioterm/folio/internal/pagecache"
	"github.com/folioterm/folio/internal/paginate"
	"github.com/folioterm/folio/internal/selection"
	"github.com/folioterm/folio/internal/ui/toaster"
)

// Clipboard abstracts the system clipboard so selection copy is testable
// and OS integration stays outside the core.
type Clipboard interface {
	Copy(text string) error
}

// statusBarRows is the screen rows reserved below the text area.
const statusBarRows = 1

type tickMsg time.Time

type reloadMsg struct{}

// Model is the reader's bubbletea model.
type Model struct {
	doc   *epub.Document
	svc   *format.Service
	calc  *paginate.Calculator
	store *pagecache.Store
	cfg   config.Config
	keys  keys.KeyMap

	clipboard Clipboard
	reload    <-chan struct{}

	width  int
	height int
	ready  bool

	// Dynamic mode position.
	pageIndex int

	// Absolute mode position.
	chapter    int
	lineOffset int
	pageCounts []int

	frame     *selection.FrameBuffer
	selStart  *selection.Anchor
	selEnd    *selection.Anchor
	selecting bool

	toast    toaster.Model
	showHelp bool
}

// Option configures a Model.
type Option func(*Model)

// WithClipboard injects a clipboard implementation.
func WithClipboard(c Clipboard) Option {
	return func(m *Model) { m.clipboard = c }
}

// WithStore enables position persistence and the on-disk pagination cache.
func WithStore(s *pagecache.Store) Option {
	return func(m *Model) { m.store = s }
}

// WithReloadChannel wires the book file watcher's change signal.
func WithReloadChannel(ch <-chan struct{}) Option {
	return func(m *Model) { m.reload = ch }
}

// New creates a reader model for an opened document.
func New(doc *epub.Document, svc *format.Service, cfg config.Config, opts ...Option) Model {
	m := Model{
		doc:   doc,
		svc:   svc,
		cfg:   cfg,
		keys:  keys.DefaultKeyMap(),
		frame: selection.NewFrameBuffer(),
		toast: toaster.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.calc = paginate.NewCalculator(svc, m.store)
	return m
}

// Init starts the frame tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.listenReload())
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) listenReload() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	ch := m.reload
	return func() tea.Msg {
		if _, ok := <-ch; ok {
			return reloadMsg{}
		}
		return nil
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg.Width, msg.Height)

	case tickMsg:
		m.toast = m.toast.Tick(time.Time(msg))
		return m, tick()

	case reloadMsg:
		// The book file changed on disk. Drop every derived artifact and
		// repaginate at the current position.
		m.svc.Flush(context.Background())
		m.toast = m.toast.Show("Book changed on disk, reloading", toaster.StyleInfo, m.toastDuration())
		next, cmd := m.rebuild()
		return next, tea.Batch(cmd, m.listenReload())

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

func (m Model) toastDuration() time.Duration {
	d := m.cfg.UI.ToastDurationSeconds
	if d <= 0 {
		d = 2
	}
	return time.Duration(d) * time.Second
}

// textArea returns the usable text region.
func (m Model) textArea() (width, height int) {
	return m.width, m.height - statusBarRows
}

func (m Model) handleResize(w, h int) (tea.Model, tea.Cmd) {
	m.width = w
	m.height = h
	if w <= 0 || h <= statusBarRows {
		return m, nil
	}

	first := !m.ready
	m.ready = true
	next, cmd := m.rebuild()
	if first {
		nm := next.(Model)
		nm.restorePersisted()
		return nm, cmd
	}
	return next, cmd
}

// rebuild recomputes the page map for the current geometry and restores the
// reading position. The exact line offset wins over the page estimate: the
// page index only means something under the old layout.
func (m Model) rebuild() (tea.Model, tea.Cmd) {
	chapter, offset := m.currentPosition()
	return m.rebuildAt(chapter, offset)
}

// rebuildAt rebuilds for the current geometry and mode, then seeks to the
// given chapter and line offset. Callers that switch modes capture the
// position under the old mode first.
func (m Model) rebuildAt(chapter, offset int) (tea.Model, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	w, h := m.textArea()
	ctx := context.Background()

	if m.dynamicMode() {
		if err := m.calc.BuildPageMap(ctx, w, h, m.doc, m.cfg.Layout, nil); err != nil {
			log.ErrorErr(log.CatPage, "page map build failed", err)
			return m, nil
		}
		m.pageIndex = m.calc.FindPageIndex(chapter, offset)
		return m, nil
	}

	layout := paginate.DeriveLayout(w, h, m.cfg.Layout)
	all := m.svc.WrapAll(ctx, m.doc, layout.ColumnWidth, m.variant())
	m.pageCounts = paginate.BuildAbsolute(func(ch int) []content.DisplayLine {
		return all[ch]
	}, m.doc.ChapterCount(), layout.LinesPerPage, nil)
	m.chapter, m.lineOffset = chapter, offset
	m.clampAbsolute()
	return m, nil
}

// currentPosition reports the chapter and first visible line offset.
func (m Model) currentPosition() (chapter, lineOffset int) {
	if m.dynamicMode() {
		if p := m.calc.GetPage(context.Background(), m.pageIndex); p != nil {
			return p.ChapterIndex, p.StartLine
		}
		return 0, 0
	}
	return m.chapter, m.lineOffset
}

// restorePersisted applies the saved reading position, preferring the exact
// line offset over the stale page index estimate.
func (m *Model) restorePersisted() {
	if m.store == nil {
		return
	}
	pos, err := m.store.LoadPosition(m.doc.CanonicalPath())
	if err != nil || pos == nil {
		return
	}

	if m.dynamicMode() {
		if pos.LineOffset >= 0 {
			m.pageIndex = m.calc.FindPageIndex(pos.ChapterIndex, pos.LineOffset)
		} else {
			m.pageIndex = pos.PageIndex
			if m.pageIndex >= m.calc.TotalPages() {
				m.pageIndex = m.calc.TotalPages() - 1
			}
			if m.pageIndex < 0 {
				m.pageIndex = 0
			}
		}
		return
	}

	m.chapter = pos.ChapterIndex
	m.lineOffset = pos.LineOffset
	m.clampAbsolute()
}

// persistPosition saves the current position for the next session.
func (m Model) persistPosition() {
	if m.store == nil {
		return
	}
	chapter, offset := m.currentPosition()
	err := m.store.SavePosition(m.doc.CanonicalPath(), pagecache.Position{
		ChapterIndex: chapter,
		LineOffset:   offset,
		PageIndex:    m.pageIndex,
	})
	if err != nil {
		log.ErrorErr(log.CatUI, "failed to persist position", err)
	}
}

func (m Model) dynamicMode() bool {
	return m.cfg.Layout.PageNumbering == config.PageNumberingDynamic
}

func (m Model) variant() format.Variant {
	return format.Variant{
		Images:       m.cfg.Layout.ShowImages,
		MaxImageRows: m.cfg.Layout.MaxImageRows,
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.persistPosition()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		return m.movePages(1), nil

	case key.Matches(msg, m.keys.PrevPage):
		return m.movePages(-1), nil

	case key.Matches(msg, m.keys.FirstPage):
		return m.gotoEdge(false), nil

	case key.Matches(msg, m.keys.LastPage):
		return m.gotoEdge(true), nil

	case key.Matches(msg, m.keys.NextChapter):
		return m.moveChapter(1), nil

	case key.Matches(msg, m.keys.PrevChapter):
		return m.moveChapter(-1), nil

	case key.Matches(msg, m.keys.ToggleSplit):
		if m.cfg.Layout.ViewMode == config.ViewModeSplit {
			m.cfg.Layout.ViewMode = config.ViewModeSingle
		} else {
			m.cfg.Layout.ViewMode = config.ViewModeSplit
		}
		m.svc.Flush(context.Background())
		return m.rebuild()

	case key.Matches(msg, m.keys.ToggleNumbering):
		// Resolve the position under the outgoing mode; afterwards
		// currentPosition would read the wrong state.
		chapter, offset := m.currentPosition()
		if m.dynamicMode() {
			m.cfg.Layout.PageNumbering = config.PageNumberingAbsolute
		} else {
			m.cfg.Layout.PageNumbering = config.PageNumberingDynamic
		}
		return m.rebuildAt(chapter, offset)

	case key.Matches(msg, m.keys.ToggleImages):
		m.cfg.Layout.ShowImages = !m.cfg.Layout.ShowImages
		m.svc.Flush(context.Background())
		return m.rebuild()

	case key.Matches(msg, m.keys.Yank):
		return m.copySelection(), nil

	case key.Matches(msg, m.keys.ClearSel):
		m.selStart = nil
		m.selEnd = nil
		m.selecting = false
		return m, nil
	}

	return m, nil
}

func (m Model) movePages(delta int) Model {
	if m.dynamicMode() {
		m.pageIndex += delta
		if m.pageIndex < 0 {
			m.pageIndex = 0
		}
		if total := m.calc.TotalPages(); total > 0 && m.pageIndex >= total {
			m.pageIndex = total - 1
		}
		return m
	}

	w, h := m.textArea()
	layout := paginate.DeriveLayout(w, h, m.cfg.Layout)
	m.lineOffset += delta * layout.LinesPerPage

	if m.lineOffset < 0 {
		// Back over a chapter boundary lands on the previous chapter's
		// last page.
		if m.chapter > 0 {
			m.chapter--
			m.lineOffset = m.lastPageOffset(layout)
		} else {
			m.lineOffset = 0
		}
		return m
	}

	lineCount := m.chapterLineCount(layout)
	if m.lineOffset >= lineCount {
		if m.chapter < m.doc.ChapterCount()-1 {
			m.chapter++
			m.lineOffset = 0
		} else {
			m.lineOffset = m.lastPageOffset(layout)
		}
	}
	return m
}

func (m Model) chapterLineCount(layout paginate.Layout) int {
	lines := m.svc.FormattedOrFallback(context.Background(), m.doc, m.chapter, layout.ColumnWidth, m.variant())
	return len(lines)
}

// lastPageOffset returns the line offset of the current chapter's last page.
func (m Model) lastPageOffset(layout paginate.Layout) int {
	count := m.chapterLineCount(layout)
	if count == 0 {
		return 0
	}
	lastPage := (count - 1) / layout.LinesPerPage
	return lastPage * layout.LinesPerPage
}

func (m *Model) clampAbsolute() {
	if m.chapter < 0 {
		m.chapter = 0
	}
	if m.chapter >= m.doc.ChapterCount() {
		m.chapter = m.doc.ChapterCount() - 1
	}
	if m.lineOffset < 0 {
		m.lineOffset = 0
	}
	if m.ready {
		w, h := m.textArea()
		layout := paginate.DeriveLayout(w, h, m.cfg.Layout)
		if last := m.lastPageOffset(layout); m.lineOffset > last {
			m.lineOffset = last
		}
	}
}

func (m Model) gotoEdge(end bool) Model {
	if m.dynamicMode() {
		if end {
			m.pageIndex = m.calc.TotalPages() - 1
			if m.pageIndex < 0 {
				m.pageIndex = 0
			}
		} else {
			m.pageIndex = 0
		}
		return m
	}

	if end {
		m.chapter = m.doc.ChapterCount() - 1
		w, h := m.textArea()
		m.lineOffset = m.lastPageOffset(paginate.DeriveLayout(w, h, m.cfg.Layout))
	} else {
		m.chapter = 0
		m.lineOffset = 0
	}
	return m
}

func (m Model) moveChapter(delta int) Model {
	if m.dynamicMode() {
		if p := m.calc.GetPage(context.Background(), m.pageIndex); p != nil {
			target := p.ChapterIndex + delta
			if target < 0 {
				target = 0
			}
			if target >= m.doc.ChapterCount() {
				target = m.doc.ChapterCount() - 1
			}
			m.pageIndex = m.calc.FindPageIndex(target, 0)
		}
		return m
	}

	m.chapter += delta
	m.lineOffset = 0
	m.clampAbsolute()
	return m
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if a, ok := selection.AnchorFromPoint(selection.Point{X: msg.X, Y: msg.Y}, m.frame, selection.BiasLeading); ok {
			m.selStart = &a
			m.selEnd = &a
			m.selecting = true
		}
		return m, nil

	case tea.MouseActionMotion:
		if !m.selecting {
			return m, nil
		}
		if a, ok := selection.AnchorFromPoint(selection.Point{X: msg.X, Y: msg.Y}, m.frame, selection.BiasNearest); ok {
			m.selEnd = &a
		}
		return m, nil

	case tea.MouseActionRelease:
		m.selecting = false
		return m, nil
	}

	return m, nil
}

// copySelection extracts the selected text and hands it to the clipboard.
func (m Model) copySelection() Model {
	if m.selStart == nil || m.selEnd == nil {
		m.toast = m.toast.Show("Nothing selected", toaster.StyleInfo, m.toastDuration())
		return m
	}

	start, end := selection.NormalizeRange(*m.selStart, *m.selEnd)
	text := selection.ExtractText(start, end, m.frame)
	if text == "" {
		m.toast = m.toast.Show("Nothing selected", toaster.StyleInfo, m.toastDuration())
		return m
	}

	if m.clipboard == nil {
		m.toast = m.toast.Show("No clipboard available", toaster.StyleError, m.toastDuration())
		return m
	}
	if err := m.clipboard.Copy(text); err != nil {
		log.ErrorErr(log.CatUI, "clipboard copy failed", err)
		m.toast = m.toast.Show("Copy failed", toaster.StyleError, m.toastDuration())
		return m
	}

	m.toast = m.toast.Show("Copied selection", toaster.StyleInfo, m.toastDuration())
	return m
}
