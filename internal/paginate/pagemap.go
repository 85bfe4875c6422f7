// Package paginate builds page maps over wrapped chapter lines and answers
// page-index queries. Two numbering modes exist: absolute mode counts pages
// per chapter, dynamic mode numbers pages continuously across the book.
package paginate

import (
	"github.com/folioterm/folio/internal/content"
)

// PageRecord is one page of the dynamic page map. Lines is nil for stubs
// loaded from the pagination cache until they are hydrated on first access.
type PageRecord struct {
	ChapterIndex        int
	StartLine           int
	EndLine             int
	PageInChapter       int
	TotalPagesInChapter int
	Lines               []content.DisplayLine
}

// ProgressFunc is called after each chapter is paginated so a progress UI
// can redraw. It cannot cancel the build.
type ProgressFunc func(done, total int)

// WrapFunc returns the wrapped display lines for a chapter index.
type WrapFunc func(chapter int) []content.DisplayLine

// BuildAbsolute paginates each chapter independently and returns the page
// count per chapter. Readers in absolute mode address content by chapter
// index and line offset, so counts are all that is needed.
func BuildAbsolute(wrap WrapFunc, chapterCount, linesPerPage int, progress ProgressFunc) []int {
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	counts := make([]int, chapterCount)
	for ch := range chapterCount {
		lines := wrap(ch)
		counts[ch] = (len(lines) + linesPerPage - 1) / linesPerPage
		if progress != nil {
			progress(ch+1, chapterCount)
		}
	}
	return counts
}

// BuildDynamic paginates the whole book into a single flat page sequence.
// A chapter with zero wrapped lines contributes no pages; the last page of
// a chapter may hold fewer than linesPerPage lines and is never padded.
func BuildDynamic(wrap WrapFunc, chapterCount, linesPerPage int, progress ProgressFunc) []PageRecord {
	if linesPerPage < 1 {
		linesPerPage = 1
	}

	var pages []PageRecord
	for ch := range chapterCount {
		lines := wrap(ch)
		total := (len(lines) + linesPerPage - 1) / linesPerPage

		for p := range total {
			start := p * linesPerPage
			end := start + linesPerPage
			if end > len(lines) {
				end = len(lines)
			}
			pages = append(pages, PageRecord{
				ChapterIndex:        ch,
				StartLine:           start,
				EndLine:             end - 1,
				PageInChapter:       p,
				TotalPagesInChapter: total,
				Lines:               lines[start:end],
			})
		}

		if progress != nil {
			progress(ch+1, chapterCount)
		}
	}
	return pages
}
