package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/pagecache"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

const readerTestOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Reader Book</dc:title>
    <dc:creator>Tester</dc:creator>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

type fakeClipboard struct {
	copied []string
}

func (f *fakeClipboard) Copy(text string) error {
	f.copied = append(f.copied, text)
	return nil
}

func openReaderBook(t *testing.T) *epub.Document {
	t.Helper()

	p := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"mimetype":    "application/epub+zip",
		"content.opf": readerTestOPF,
		"ch1.xhtml":   "<html><body><p>alpha line</p><p>bravo line</p><p>charlie line</p></body></html>",
		"ch2.xhtml":   "<html><body><p>delta line</p></body></html>",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	doc, err := epub.Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })

	return doc
}

// newTestReader sets up a reader sized so chapter 1's five wrapped lines
// (three paragraphs plus two spacers) split across multiple pages.
func newTestReader(t *testing.T, opts ...Option) Model {
	doc := openReaderBook(t)
	m := New(doc, format.NewService(), config.Default(), opts...)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 3})
	return next.(Model)
}

func keyMsg(s string) tea.KeyMsg {
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestView_RendersCurrentPage(t *testing.T) {
	m := newTestReader(t)

	view := m.View()
	assert.Contains(t, view, "alpha line")
	assert.Contains(t, view, "Reader Book")

	// Geometry was committed for the drawn lines.
	assert.Positive(t, m.frame.Len())
}

func TestNavigation_NextPrevClamped(t *testing.T) {
	m := newTestReader(t)
	require.Equal(t, 0, m.pageIndex)

	m = update(t, m, keyMsg("l"))
	assert.Equal(t, 1, m.pageIndex)

	m = update(t, m, keyMsg("h"))
	assert.Equal(t, 0, m.pageIndex)

	// Clamped at the first page.
	m = update(t, m, keyMsg("h"))
	assert.Equal(t, 0, m.pageIndex)

	// G jumps to the last page, l stays clamped there.
	m = update(t, m, keyMsg("G"))
	last := m.pageIndex
	m = update(t, m, keyMsg("l"))
	assert.Equal(t, last, m.pageIndex)
}

func TestNavigation_ChapterJump(t *testing.T) {
	m := newTestReader(t)

	m = update(t, m, keyMsg("]"))
	view := m.View()
	assert.Contains(t, view, "delta line")

	m = update(t, m, keyMsg("["))
	view = m.View()
	assert.Contains(t, view, "alpha line")
}

func TestResize_RestoresPositionByLineOffset(t *testing.T) {
	m := newTestReader(t)

	// Move to the page starting at chapter 0, line 2 ("bravo line").
	m = update(t, m, keyMsg("l"))
	view := m.View()
	require.Contains(t, view, "bravo line")

	// A taller window merges pages; the restored page must still contain
	// the previously visible first line.
	m = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 7})
	view = m.View()
	assert.Contains(t, view, "bravo line")
}

func TestMouseSelection_CopyToClipboard(t *testing.T) {
	clip := &fakeClipboard{}
	m := newTestReader(t, WithClipboard(clip))

	// Render to commit geometry, then drag across "alpha" on row 0.
	m.View()
	m = update(t, m, tea.MouseMsg{
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 0, Y: 0,
	})
	m = update(t, m, tea.MouseMsg{Action: tea.MouseActionMotion, X: 4, Y: 0})
	m = update(t, m, tea.MouseMsg{Action: tea.MouseActionRelease, X: 4, Y: 0})

	m = update(t, m, keyMsg("y"))
	require.Len(t, clip.copied, 1)
	assert.Equal(t, "alpha", clip.copied[0])
	assert.True(t, m.toast.Visible())
}

func TestYank_WithoutSelectionShowsToast(t *testing.T) {
	clip := &fakeClipboard{}
	m := newTestReader(t, WithClipboard(clip))

	m = update(t, m, keyMsg("y"))
	assert.Empty(t, clip.copied)
	assert.True(t, m.toast.Visible())
}

func TestClearSelection(t *testing.T) {
	m := newTestReader(t)
	m.View()
	m = update(t, m, tea.MouseMsg{
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 0, Y: 0,
	})
	require.NotNil(t, m.selStart)

	m = update(t, m, keyMsg("esc"))
	assert.Nil(t, m.selStart)
	assert.Nil(t, m.selEnd)
}

func TestToggleNumbering_SwitchesToAbsolute(t *testing.T) {
	m := newTestReader(t)
	require.True(t, m.dynamicMode())

	m = update(t, m, keyMsg("n"))
	assert.False(t, m.dynamicMode())
	assert.NotEmpty(t, m.pageCounts)

	view := m.View()
	assert.Contains(t, view, "alpha line")
	assert.Contains(t, view, "ch 1/2")
}

func TestToggleNumbering_KeepsReadingPosition(t *testing.T) {
	m := newTestReader(t)

	// Dynamic page 2 begins at chapter 0, line 4 ("charlie line").
	m = update(t, m, keyMsg("l"))
	m = update(t, m, keyMsg("l"))
	require.Equal(t, 2, m.pageIndex)

	m = update(t, m, keyMsg("n"))
	require.False(t, m.dynamicMode())
	assert.Equal(t, 0, m.chapter)
	assert.Equal(t, 4, m.lineOffset)
	assert.Contains(t, m.View(), "charlie line")

	m = update(t, m, keyMsg("n"))
	require.True(t, m.dynamicMode())
	assert.Equal(t, 2, m.pageIndex)
	assert.Contains(t, m.View(), "charlie line")
}

func TestAbsoluteMode_PagingAcrossChapterBoundary(t *testing.T) {
	m := newTestReader(t)
	m = update(t, m, keyMsg("n")) // absolute mode

	// Chapter 0 has 5 lines at 2 lines per page: pages start at 0, 2, 4.
	m = update(t, m, keyMsg("l"))
	assert.Equal(t, 2, m.lineOffset)
	m = update(t, m, keyMsg("l"))
	assert.Equal(t, 4, m.lineOffset)

	// Next page crosses into chapter 1.
	m = update(t, m, keyMsg("l"))
	assert.Equal(t, 1, m.chapter)
	assert.Equal(t, 0, m.lineOffset)

	// And back.
	m = update(t, m, keyMsg("h"))
	assert.Equal(t, 0, m.chapter)
	assert.Equal(t, 4, m.lineOffset)
}

func TestSplitView_RendersTwoPages(t *testing.T) {
	doc := openReaderBook(t)
	cfg := config.Default()
	cfg.Layout.ViewMode = config.ViewModeSplit
	m := New(doc, format.NewService(), cfg)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 4})
	m = next.(Model)

	// Two pages side by side: at three lines per page the left column holds
	// the first paragraph pair and the right column starts with "charlie".
	view := m.View()
	assert.Contains(t, view, "alpha line")
	assert.Contains(t, view, "charlie line")

	// Geometry from both columns was committed.
	cols := map[int]bool{}
	for _, g := range m.frame.Geometries() {
		cols[g.ColumnID] = true
	}
	assert.True(t, cols[0])
	assert.True(t, cols[1])
}

func TestSplitView_RightColumnSelection(t *testing.T) {
	doc := openReaderBook(t)
	clip := &fakeClipboard{}
	cfg := config.Default()
	cfg.Layout.ViewMode = config.ViewModeSplit
	m := New(doc, format.NewService(), cfg, WithClipboard(clip))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 4})
	m = next.(Model)

	// The right column starts after the left column width plus the gutter,
	// regardless of how short the left column's lines render. "charlie
	// line" sits on its second row at screen column 32.
	rows := strings.Split(m.View(), "\n")
	require.Greater(t, len(rows), 2)
	assert.Equal(t, 32, strings.Index(rows[1], "charlie line"))
	m = update(t, m, tea.MouseMsg{
		Action: tea.MouseActionPress, Button: tea.MouseButtonLeft, X: 32, Y: 1,
	})
	m = update(t, m, tea.MouseMsg{Action: tea.MouseActionMotion, X: 38, Y: 1})
	m = update(t, m, tea.MouseMsg{Action: tea.MouseActionRelease, X: 38, Y: 1})

	m = update(t, m, keyMsg("y"))
	require.Len(t, clip.copied, 1)
	assert.Equal(t, "charlie", clip.copied[0])
}

func TestPersistPosition_RoundTrip(t *testing.T) {
	store, err := pagecache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	doc := openReaderBook(t)
	m := New(doc, format.NewService(), config.Default(), WithStore(store))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 3})
	m = next.(Model)

	m = update(t, m, keyMsg("l"))
	m.persistPosition()

	// A fresh model restores to the page covering the saved line offset.
	m2 := New(doc, format.NewService(), config.Default(), WithStore(store))
	next, _ = m2.Update(tea.WindowSizeMsg{Width: 40, Height: 3})
	m2 = next.(Model)
	assert.Equal(t, m.pageIndex, m2.pageIndex)
}
