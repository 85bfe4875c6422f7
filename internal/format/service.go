// Package format is the formatting service: it turns chapter XHTML into
// wrapped display lines, caching each stage so that page turns and window
// redraws never re-parse or re-wrap a chapter that hasn't changed.
package format

import (
	"context"
	"fmt"
	"hash/crc32"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/folioterm/folio/internal/cachemanager"
	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/epub"
	"github.com/folioterm/folio/internal/layout"
	"github.com/folioterm/folio/internal/log"
	"github.com/folioterm/folio/internal/tracing"
)

// Variant captures the rendering options that change wrap output for the
// same chapter and width. Two variants never share wrap cache entries.
type Variant struct {
	Images       bool
	MaxImageRows int
}

const wrapTTL = 30 * time.Minute
const parseTTL = time.Hour

// Service wraps chapters on demand with two cache layers: a parse cache
// keyed by content checksum and a wrap cache keyed by chapter, width, and
// variant.
type Service struct {
	parseCache cachemanager.CacheManager[string, []content.Block]
	wrapCache  cachemanager.CacheManager[string, []content.DisplayLine]
	parse      *cachemanager.ReadThroughCache[string, []content.Block, parseInput]
	tracer     trace.Tracer

	prefetchDepth int
	prefetching   atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithPrefetchDepth sets how many chapters on each side of the one just
// served the background prefetch warms. Depth 0 disables prefetching.
func WithPrefetchDepth(n int) Option {
	return func(s *Service) { s.prefetchDepth = n }
}

// NewService creates a formatting service with in-memory caches.
func NewService(opts ...Option) *Service {
	s := &Service{
		parseCache: cachemanager.NewInMemoryCacheManager[string, []content.Block](
			"parse", parseTTL, cachemanager.DefaultCleanupInterval),
		wrapCache: cachemanager.NewInMemoryCacheManager[string, []content.DisplayLine](
			"wrap", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval),
		tracer:        otel.Tracer("folio/format"),
		prefetchDepth: 1,
	}
	s.parse = cachemanager.NewReadThroughCache(s.parseCache, s.parseChapter, false)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func wrapKey(doc *epub.Document, chapter, width int, v Variant) string {
	return fmt.Sprintf("%s|%d|%d|%t|%d", doc.CanonicalPath(), chapter, width, v.Images, v.MaxImageRows)
}

// EnsureFormatted returns the wrapped display lines for a chapter at the
// given width, parsing and wrapping as needed. Returns nil when the chapter
// cannot be parsed; callers fall back to the chapter's plain lines.
func (s *Service) EnsureFormatted(ctx context.Context, doc *epub.Document, chapter, width int, v Variant) []content.DisplayLine {
	ch := doc.Chapter(chapter)
	if ch == nil {
		return nil
	}

	key := wrapKey(doc, chapter, width, v)
	if lines, ok := s.wrapCache.GetWithRefresh(ctx, key, wrapTTL); ok {
		return lines
	}

	blocks, err := s.blocks(ctx, ch)
	if err != nil {
		log.Warn(log.CatLayout, "chapter parse failed, using plain fallback",
			"chapter", chapter, "error", err.Error())
		return nil
	}

	ctx, span := s.tracer.Start(ctx, tracing.SpanChapterWrap,
		trace.WithAttributes(
			attribute.Int(tracing.AttrChapterIndex, chapter),
			attribute.Int(tracing.AttrLayoutWidth, width),
		))
	lines := layout.BuildWithOptions(blocks, width, layout.Options{
		Images:       v.Images,
		MaxImageRows: v.MaxImageRows,
	})
	span.SetAttributes(attribute.Int(tracing.AttrLineCount, len(lines)))
	span.End()

	s.wrapCache.Set(ctx, key, lines, wrapTTL)

	return lines
}

// FormattedOrFallback returns formatted lines for a chapter, or the
// chapter's plain text wrapped as unstyled paragraphs when structured
// parsing fails. The result is never nil for a chapter with content.
func (s *Service) FormattedOrFallback(ctx context.Context, doc *epub.Document, chapter, width int, v Variant) []content.DisplayLine {
	if lines := s.EnsureFormatted(ctx, doc, chapter, width, v); lines != nil {
		return lines
	}

	ch := doc.Chapter(chapter)
	if ch == nil {
		return nil
	}
	plain, err := ch.Lines()
	if err != nil {
		log.ErrorErr(log.CatLayout, "plain fallback failed", err, "chapter", chapter)
		return nil
	}

	blocks := make([]content.Block, 0, len(plain))
	for _, line := range plain {
		blocks = append(blocks, content.Block{
			Type:     content.BlockParagraph,
			Segments: []content.TextSegment{{Text: line}},
		})
	}

	return layout.Build(blocks, width)
}

// WrapWindow returns a slice of a chapter's wrapped lines starting at line
// start. A negative start clamps to 0; a start past the chapter's end
// returns nil, as does an empty chapter. Serving a window kicks off a
// background prefetch of the neighboring chapters.
func (s *Service) WrapWindow(ctx context.Context, doc *epub.Document, chapter, width int, v Variant, start, count int) []content.DisplayLine {
	lines := s.FormattedOrFallback(ctx, doc, chapter, width, v)
	if len(lines) == 0 {
		return nil
	}

	s.prefetchNeighbors(doc, chapter, width, v)

	if start < 0 {
		start = 0
	}
	if start >= len(lines) {
		return nil
	}
	end := start + count
	if count < 0 || end > len(lines) {
		end = len(lines)
	}

	return lines[start:end]
}

// WrapAll formats every chapter of the document, one line slice per chapter.
// Chapters that fail both structured parsing and plain fallback contribute a
// nil slice.
func (s *Service) WrapAll(ctx context.Context, doc *epub.Document, width int, v Variant) [][]content.DisplayLine {
	out := make([][]content.DisplayLine, doc.ChapterCount())
	for i := range out {
		out[i] = s.FormattedOrFallback(ctx, doc, i, width, v)
	}
	return out
}

// Flush drops both caches. Called when the layout variant changes.
func (s *Service) Flush(ctx context.Context) {
	_ = s.parseCache.Flush(ctx)
	_ = s.wrapCache.Flush(ctx)
}

// CacheSizes reports live entry counts for the parse and wrap caches.
func (s *Service) CacheSizes() (parse, wrap int) {
	return s.parseCache.Len(), s.wrapCache.Len()
}

// blocks returns the chapter's semantic blocks, checking the chapter memo,
// then the checksum-keyed parse cache, then parsing from raw bytes.
func (s *Service) blocks(ctx context.Context, ch *epub.Chapter) ([]content.Block, error) {
	if blocks, ok := ch.Blocks(); ok {
		return blocks, nil
	}

	raw, err := ch.RawContent()
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("parse|%08x", crc32.ChecksumIEEE(raw))
	blocks, err := s.parse.Get(ctx, key, parseInput{href: ch.Href, raw: raw}, parseTTL)
	if err != nil {
		return nil, err
	}
	ch.SetBlocks(blocks)

	return blocks, nil
}

// parseInput carries what parseChapter needs beyond the cache key.
type parseInput struct {
	href string
	raw  []byte
}

func (s *Service) parseChapter(ctx context.Context, in parseInput) ([]content.Block, error) {
	_, span := s.tracer.Start(ctx, tracing.SpanChapterParse,
		trace.WithAttributes(attribute.String(tracing.AttrChapterHref, in.href)))
	defer span.End()
	return content.ParseXHTML(in.raw)
}

// prefetchNeighbors warms the wrap cache for the chapters around the one
// just served, prefetchDepth to each side. At most one prefetch runs at a
// time; failures and panics are swallowed since the foreground path will
// simply format on demand.
func (s *Service) prefetchNeighbors(doc *epub.Document, chapter, width int, v Variant) {
	if s.prefetchDepth < 1 {
		return
	}
	if !s.prefetching.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer s.prefetching.Store(false)
		defer func() {
			if r := recover(); r != nil {
				log.Error(log.CatLayout, "prefetch panic recovered", "panic", fmt.Sprint(r))
			}
		}()

		ctx := context.Background()
		for i := chapter - s.prefetchDepth; i <= chapter+s.prefetchDepth; i++ {
			if i == chapter || i < 0 || i >= doc.ChapterCount() {
				continue
			}
			s.FormattedOrFallback(ctx, doc, i, width, v)
		}
	}()
}
