package paginate

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/pagecache"
)

const calcTestOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Calc Book</dc:title>
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

// openCalcBook opens a two-chapter book: chapter 0 wraps to 5 lines at any
// reasonable width (3 one-line paragraphs plus 2 spacers), chapter 1 to 1.
func openCalcBook(t *testing.T) *epub.Document {
	return openCalcBookWith(t,
		"<html><body><p>one</p><p>two</p><p>three</p></body></html>",
		"<html><body><p>alone</p></body></html>")
}

func openCalcBookWith(t *testing.T, ch1, ch2 string) *epub.Document {
	t.Helper()

	p := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(p)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"mimetype":    "application/epub+zip",
		"content.opf": calcTestOPF,
		"ch1.xhtml":   ch1,
		"ch2.xhtml":   ch2,
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

func defaultLayoutCfg() config.LayoutConfig {
	cfg := config.Default().Layout
	return cfg
}

func TestDeriveLayout(t *testing.T) {
	cfg := defaultLayoutCfg()

	l := DeriveLayout(80, 24, cfg)
	assert.Equal(t, 80, l.ColumnWidth)
	assert.Equal(t, 24, l.LinesPerPage)

	cfg.ViewMode = config.ViewModeSplit
	l = DeriveLayout(80, 24, cfg)
	assert.Equal(t, 38, l.ColumnWidth)

	cfg.LineSpacing = 2
	l = DeriveLayout(80, 24, cfg)
	assert.Equal(t, 12, l.LinesPerPage)
}

func TestBuildPageMap_InvalidGeometry(t *testing.T) {
	doc := openCalcBook(t)
	c := NewCalculator(format.NewService(), nil)

	assert.Error(t, c.BuildPageMap(context.Background(), 0, 24, doc, defaultLayoutCfg(), nil))
	assert.Error(t, c.BuildPageMap(context.Background(), 80, -1, doc, defaultLayoutCfg(), nil))
}

func TestBuildPageMap_DynamicAcrossChapters(t *testing.T) {
	doc := openCalcBook(t)
	c := NewCalculator(format.NewService(), nil)

	// Height 2 with spacing 1: two lines per page. Chapter 0 has 5 wrapped
	// lines (3 pages), chapter 1 has 1 (1 page).
	require.NoError(t, c.BuildPageMap(context.Background(), 80, 2, doc, defaultLayoutCfg(), nil))
	require.Equal(t, 4, c.TotalPages())

	p := c.GetPage(context.Background(), 0)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.ChapterIndex)
	assert.Equal(t, 0, p.StartLine)
	assert.Equal(t, 1, p.EndLine)
	assert.Equal(t, 3, p.TotalPagesInChapter)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "one", p.Lines[0].Text)

	last := c.GetPage(context.Background(), 3)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.ChapterIndex)
	assert.Equal(t, "alone", last.Lines[0].Text)
}

func TestGetPage_ClampsOutOfRange(t *testing.T) {
	doc := openCalcBook(t)
	c := NewCalculator(format.NewService(), nil)
	require.NoError(t, c.BuildPageMap(context.Background(), 80, 2, doc, defaultLayoutCfg(), nil))

	first := c.GetPage(context.Background(), -5)
	require.NotNil(t, first)
	assert.Equal(t, 0, first.PageInChapter)
	assert.Equal(t, 0, first.ChapterIndex)

	last := c.GetPage(context.Background(), 999)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.ChapterIndex)
}

func TestBuildPageMap_CacheRoundTripAndHydration(t *testing.T) {
	doc := openCalcBook(t)
	store, err := pagecache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	warm := NewCalculator(format.NewService(), store)
	require.NoError(t, warm.BuildPageMap(ctx, 80, 2, doc, defaultLayoutCfg(), nil))
	require.Equal(t, 4, warm.TotalPages())

	// Second calculator loads stubs from disk; lines appear on first access.
	cold := NewCalculator(format.NewService(), store)
	require.NoError(t, cold.BuildPageMap(ctx, 80, 2, doc, defaultLayoutCfg(), nil))
	require.Equal(t, 4, cold.TotalPages())
	assert.Nil(t, cold.pages[0].Lines)

	p := cold.GetPage(ctx, 0)
	require.NotNil(t, p)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, "one", p.Lines[0].Text)

	// Hydrated records are cached back into the page array.
	assert.NotNil(t, cold.pages[0].Lines)
}

func TestBuildPageMap_ImageVariantsKeyedSeparately(t *testing.T) {
	// Toggling inline images changes per-chapter line counts, so a warm
	// disk cache written under one variant must not be served to the other.
	doc := openCalcBookWith(t,
		`<html><body><p>intro</p><img src="fig.png" alt="figure"/></body></html>`,
		"<html><body><p>alone</p></body></html>")
	store, err := pagecache.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	cfgOn := defaultLayoutCfg()
	require.True(t, cfgOn.ShowImages)
	withImages := NewCalculator(format.NewService(), store)
	require.NoError(t, withImages.BuildPageMap(ctx, 80, 2, doc, cfgOn, nil))

	cfgOff := cfgOn
	cfgOff.ShowImages = false
	plain := NewCalculator(format.NewService(), store)
	require.NoError(t, plain.BuildPageMap(ctx, 80, 2, doc, cfgOff, nil))
	assert.NotEqual(t, withImages.TotalPages(), plain.TotalPages())

	fresh := NewCalculator(format.NewService(), nil)
	require.NoError(t, fresh.BuildPageMap(ctx, 80, 2, doc, cfgOff, nil))
	require.Equal(t, fresh.TotalPages(), plain.TotalPages())

	// Every page hydrates against its own variant's wrapped lines.
	for i := 0; i < plain.TotalPages(); i++ {
		p := plain.GetPage(ctx, i)
		require.NotNil(t, p)
		require.NotNil(t, p.Lines)
		assert.Len(t, p.Lines, p.EndLine-p.StartLine+1)
	}
}

func TestFindPageIndex_BinarySearch(t *testing.T) {
	c := NewCalculator(format.NewService(), nil)
	c.pages = []PageRecord{
		{ChapterIndex: 0, StartLine: 0, EndLine: 29, PageInChapter: 0, TotalPagesInChapter: 4},
		{ChapterIndex: 0, StartLine: 30, EndLine: 59, PageInChapter: 1, TotalPagesInChapter: 4},
		{ChapterIndex: 0, StartLine: 60, EndLine: 89, PageInChapter: 2, TotalPagesInChapter: 4},
		{ChapterIndex: 0, StartLine: 90, EndLine: 99, PageInChapter: 3, TotalPagesInChapter: 4},
		{ChapterIndex: 2, StartLine: 0, EndLine: 9, PageInChapter: 0, TotalPagesInChapter: 1},
	}
	c.reindex()

	assert.Equal(t, 0, c.FindPageIndex(0, 0))
	assert.Equal(t, 0, c.FindPageIndex(0, 29))
	assert.Equal(t, 1, c.FindPageIndex(0, 30))
	assert.Equal(t, 3, c.FindPageIndex(0, 95))

	// Beyond the chapter resolves to its last page.
	assert.Equal(t, 3, c.FindPageIndex(0, 500))

	// Unindexed chapter resolves to 0.
	assert.Equal(t, 0, c.FindPageIndex(1, 10))

	assert.Equal(t, 4, c.FindPageIndex(2, 5))
}

func TestFindPageIndex_CoversOffset(t *testing.T) {
	doc := openCalcBook(t)
	c := NewCalculator(format.NewService(), nil)
	require.NoError(t, c.BuildPageMap(context.Background(), 80, 2, doc, defaultLayoutCfg(), nil))

	for _, offset := range []int{0, 1, 2, 3, 4} {
		idx := c.FindPageIndex(0, offset)
		p := c.GetPage(context.Background(), idx)
		require.NotNil(t, p)
		assert.GreaterOrEqual(t, offset, p.StartLine)
		assert.LessOrEqual(t, offset, p.EndLine)
	}
}
