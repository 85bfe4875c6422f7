package paginate

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/format"
	"github.com/folioterm/folio/internal/log"
	"github.com/folioterm/folio/internal/pagecache"
	"github.com/folioterm/folio/internal/tracing"
)

// gutterWidth separates the two columns in split view.
const gutterWidth = 4

// Layout is the concrete geometry derived from terminal size and config.
type Layout struct {
	ColumnWidth  int
	LinesPerPage int
}

// DeriveLayout computes column width and lines-per-page from the usable
// terminal area and layout config. Split view halves the width minus a
// gutter; line spacing divides the row budget.
func DeriveLayout(width, height int, cfg config.LayoutConfig) Layout {
	colWidth := width
	if cfg.ViewMode == config.ViewModeSplit {
		colWidth = (width - gutterWidth) / 2
	}

	spacing := cfg.LineSpacing
	if spacing < 1 {
		spacing = 1
	}
	linesPerPage := height / spacing
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	return Layout{ColumnWidth: colWidth, LinesPerPage: linesPerPage}
}

// Calculator orchestrates dynamic page map construction, caches the result,
// and answers page queries with lazy hydration of cache-loaded stubs.
type Calculator struct {
	svc    *format.Service
	store  *pagecache.Store
	tracer trace.Tracer

	doc       *epub.Document
	pages     []PageRecord
	byChapter map[int][]int
	layout    Layout
	variant   format.Variant
}

// NewCalculator creates a calculator. store may be nil, which disables the
// on-disk cache but not pagination itself.
func NewCalculator(svc *format.Service, store *pagecache.Store) *Calculator {
	return &Calculator{
		svc:    svc,
		store:  store,
		tracer: otel.Tracer("folio/paginate"),
	}
}

// BuildPageMap builds (or loads) the dynamic page map for the document at
// the given usable width and height. The only error condition is invalid
// geometry; everything else degrades to a rebuild.
func (c *Calculator) BuildPageMap(ctx context.Context, width, height int, doc *epub.Document, cfg config.LayoutConfig, progress ProgressFunc) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid display geometry %dx%d", width, height)
	}

	c.doc = doc
	c.layout = DeriveLayout(width, height, cfg)
	c.variant = format.Variant{Images: cfg.ShowImages, MaxImageRows: cfg.MaxImageRows}

	key := pagecache.LayoutKey(width, height, cfg.ViewMode, cfg.LineSpacing,
		cfg.ShowImages, cfg.MaxImageRows)

	ctx, span := c.tracer.Start(ctx, tracing.SpanPageMapBuild,
		trace.WithAttributes(
			attribute.String(tracing.AttrDocumentPath, doc.CanonicalPath()),
			attribute.Int(tracing.AttrLayoutWidth, width),
			attribute.Int(tracing.AttrLayoutHeight, height),
		))
	defer span.End()

	if compact := c.loadCached(ctx, key); compact != nil {
		span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, true))
		c.pages = make([]PageRecord, len(compact))
		for i, p := range compact {
			c.pages[i] = PageRecord{
				ChapterIndex:        p.ChapterIndex,
				StartLine:           p.StartLine,
				EndLine:             p.EndLine,
				PageInChapter:       p.PageInChapter,
				TotalPagesInChapter: p.TotalPagesInChapter,
			}
		}
		c.reindex()
		return nil
	}

	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, false))

	all := c.svc.WrapAll(ctx, doc, c.layout.ColumnWidth, c.variant)
	wrap := func(chapter int) []content.DisplayLine {
		return all[chapter]
	}
	c.pages = BuildDynamic(wrap, doc.ChapterCount(), c.layout.LinesPerPage, progress)
	c.reindex()
	span.SetAttributes(attribute.Int(tracing.AttrPageCount, len(c.pages)))

	c.saveCached(key)

	return nil
}

func (c *Calculator) loadCached(ctx context.Context, key string) []pagecache.CompactPage {
	if c.store == nil {
		return nil
	}
	_, span := c.tracer.Start(ctx, tracing.SpanCacheLoad,
		trace.WithAttributes(attribute.String(tracing.AttrCacheKey, key)))
	defer span.End()

	compact, err := c.store.LoadForDocument(c.doc.CanonicalPath(), key)
	if err != nil {
		// Unreadable cache is a miss, never a failure.
		log.ErrorErr(log.CatCache, "pagination cache load failed", err, "key", key)
		return nil
	}
	return compact
}

func (c *Calculator) saveCached(key string) {
	if c.store == nil {
		return
	}

	compact := make([]pagecache.CompactPage, len(c.pages))
	for i, p := range c.pages {
		compact[i] = pagecache.CompactPage{
			ChapterIndex:        p.ChapterIndex,
			PageInChapter:       p.PageInChapter,
			TotalPagesInChapter: p.TotalPagesInChapter,
			StartLine:           p.StartLine,
			EndLine:             p.EndLine,
		}
	}
	if err := c.store.SaveForDocument(c.doc.CanonicalPath(), key, compact); err != nil {
		log.ErrorErr(log.CatCache, "pagination cache save failed", err, "key", key)
	}
}

// reindex rebuilds the per-chapter page index. Pages within a chapter are
// appended in order, so each chapter's slice is already sorted by EndLine.
func (c *Calculator) reindex() {
	c.byChapter = make(map[int][]int)
	for i, p := range c.pages {
		c.byChapter[p.ChapterIndex] = append(c.byChapter[p.ChapterIndex], i)
	}
}

// TotalPages returns the size of the page map.
func (c *Calculator) TotalPages() int {
	return len(c.pages)
}

// GetPage returns the page at index i, clamping out-of-range indices to the
// first or last page. Stub pages are hydrated on demand by re-wrapping the
// chapter; a hydration failure keeps the stub rather than failing.
func (c *Calculator) GetPage(ctx context.Context, i int) *PageRecord {
	if len(c.pages) == 0 {
		return nil
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.pages) {
		i = len(c.pages) - 1
	}

	p := &c.pages[i]
	if p.Lines == nil {
		c.hydrate(ctx, p)
	}
	return p
}

func (c *Calculator) hydrate(ctx context.Context, p *PageRecord) {
	want := p.EndLine - p.StartLine + 1
	lines := c.svc.WrapWindow(ctx, c.doc, p.ChapterIndex, c.layout.ColumnWidth, c.variant, p.StartLine, want)
	if len(lines) != want {
		log.Warn(log.CatPage, "hydration line range out of bounds, keeping stub",
			"chapter", p.ChapterIndex, "endLine", p.EndLine, "wrapped", len(lines))
		return
	}
	p.Lines = lines
}

// FindPageIndex returns the global index of the first page of the chapter
// whose range covers lineOffset. Binary search over the chapter's pages,
// which are sorted by EndLine. Offsets beyond the chapter resolve to its
// last page; an unindexed chapter resolves to 0.
func (c *Calculator) FindPageIndex(chapter, lineOffset int) int {
	idxs := c.byChapter[chapter]
	if len(idxs) == 0 {
		return 0
	}

	pos := sort.Search(len(idxs), func(j int) bool {
		return c.pages[idxs[j]].EndLine >= lineOffset
	})
	if pos == len(idxs) {
		pos = len(idxs) - 1
	}
	return idxs[pos]
}

// Layout returns the geometry used for the current page map.
func (c *Calculator) Layout() Layout {
	return c.layout
}
