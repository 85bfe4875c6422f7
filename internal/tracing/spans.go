package tracing

// Span attribute keys for the rendering pipeline.
const (
	AttrDocumentPath = "document.path"
	AttrChapterIndex = "chapter.index"
	AttrChapterHref  = "chapter.href"
	AttrLayoutWidth  = "layout.width"
	AttrLayoutHeight = "layout.height"
	AttrLineCount    = "line.count"
	AttrPageCount    = "page.count"
	AttrCacheHit     = "cache.hit"
	AttrCacheKey     = "cache.key"
	AttrErrorMessage = "error.message"
)

// Span names for pipeline stages.
const (
	SpanChapterParse = "chapter.parse"
	SpanChapterWrap  = "chapter.wrap"
	SpanPageMapBuild = "pagemap.build"
	SpanCacheLoad    = "pagecache.load"
	SpanCacheSave    = "pagecache.save"
)
