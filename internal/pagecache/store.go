// Package pagecache persists built page maps to SQLite so reopening a book
// at the same layout skips the full pagination pass. Only compact page
// ranges are stored; wrapped lines are always re-derived on demand.
package pagecache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/folioterm/folio/internal/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS page_maps (
	doc_path               TEXT NOT NULL,
	layout_key             TEXT NOT NULL,
	page_index             INTEGER NOT NULL,
	chapter_index          INTEGER NOT NULL,
	page_in_chapter        INTEGER NOT NULL,
	total_pages_in_chapter INTEGER NOT NULL,
	start_line             INTEGER NOT NULL,
	end_line               INTEGER NOT NULL,
	PRIMARY KEY (doc_path, layout_key, page_index)
);

CREATE TABLE IF NOT EXISTS positions (
	doc_path      TEXT PRIMARY KEY,
	chapter_index INTEGER NOT NULL,
	line_offset   INTEGER NOT NULL,
	page_index    INTEGER NOT NULL
);
`

// CompactPage is the persisted form of a page record: ranges only, no lines.
type CompactPage struct {
	ChapterIndex        int
	PageInChapter       int
	TotalPagesInChapter int
	StartLine           int
	EndLine             int
}

// Store is the on-disk pagination cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the pagination cache database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "pagination.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		log.ErrorErr(log.CatCache, "failed to open pagination cache", err, "path", dbPath)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		log.ErrorErr(log.CatCache, "failed to ping pagination cache", err, "path", dbPath)
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create pagination cache schema: %w", err)
	}

	log.Debug(log.CatCache, "opened pagination cache", "path", dbPath)

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LayoutKey derives the cache key for a layout. Any parameter that changes
// wrap or pagination output must participate, including the image rendering
// variant: placeholder rows change per-chapter line counts.
func LayoutKey(width, height int, viewMode string, lineSpacing int, showImages bool, maxImageRows int) string {
	return fmt.Sprintf("w%d|h%d|%s|s%d|i%t|r%d",
		width, height, viewMode, lineSpacing, showImages, maxImageRows)
}

// LoadForDocument returns the cached compact pages for a document and layout
// key, or nil on a miss. Corrupt entries (non-monotonic page ranges) are
// treated as a miss and evicted.
func (s *Store) LoadForDocument(docPath, key string) ([]CompactPage, error) {
	rows, err := s.db.Query(`
		SELECT chapter_index, page_in_chapter, total_pages_in_chapter, start_line, end_line
		FROM page_maps
		WHERE doc_path = ? AND layout_key = ?
		ORDER BY page_index`, docPath, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []CompactPage
	for rows.Next() {
		var p CompactPage
		if err := rows.Scan(&p.ChapterIndex, &p.PageInChapter, &p.TotalPagesInChapter,
			&p.StartLine, &p.EndLine); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(pages) == 0 {
		return nil, nil
	}

	if !validPages(pages) {
		log.Warn(log.CatCache, "corrupt page map entry, evicting", "doc", docPath, "key", key)
		_ = s.evict(docPath, key)
		return nil, nil
	}

	log.Debug(log.CatCache, "page map cache hit", "doc", docPath, "key", key, "pages", len(pages))

	return pages, nil
}

// validPages checks per-chapter contiguity of the loaded ranges.
func validPages(pages []CompactPage) bool {
	prevChapter := -1
	prevEnd := 0
	for _, p := range pages {
		if p.StartLine > p.EndLine || p.StartLine < 0 {
			return false
		}
		if p.ChapterIndex == prevChapter {
			if p.StartLine != prevEnd+1 {
				return false
			}
		} else {
			if p.ChapterIndex < prevChapter || p.StartLine != 0 {
				return false
			}
		}
		prevChapter = p.ChapterIndex
		prevEnd = p.EndLine
	}
	return true
}

// SaveForDocument replaces the cached page map for a document and layout key.
func (s *Store) SaveForDocument(docPath, key string, pages []CompactPage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM page_maps WHERE doc_path = ? AND layout_key = ?`,
		docPath, key); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO page_maps
			(doc_path, layout_key, page_index, chapter_index, page_in_chapter,
			 total_pages_in_chapter, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range pages {
		if _, err := stmt.Exec(docPath, key, i, p.ChapterIndex, p.PageInChapter,
			p.TotalPagesInChapter, p.StartLine, p.EndLine); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Debug(log.CatCache, "saved page map", "doc", docPath, "key", key, "pages", len(pages))

	return nil
}

func (s *Store) evict(docPath, key string) error {
	_, err := s.db.Exec(`DELETE FROM page_maps WHERE doc_path = ? AND layout_key = ?`, docPath, key)
	return err
}

// Clear removes every cached page map.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM page_maps`)
	return err
}

// Position is a persisted reading position. LineOffset is exact; PageIndex
// is an estimate that only holds for the layout it was saved under. Restore
// prefers the line offset when both are present.
type Position struct {
	ChapterIndex int
	LineOffset   int
	PageIndex    int
}

// SavePosition upserts the reading position for a document.
func (s *Store) SavePosition(docPath string, p Position) error {
	_, err := s.db.Exec(`
		INSERT INTO positions (doc_path, chapter_index, line_offset, page_index)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_path) DO UPDATE SET
			chapter_index = excluded.chapter_index,
			line_offset   = excluded.line_offset,
			page_index    = excluded.page_index`,
		docPath, p.ChapterIndex, p.LineOffset, p.PageIndex)
	return err
}

// LoadPosition returns the saved reading position, or nil when none exists.
func (s *Store) LoadPosition(docPath string) (*Position, error) {
	var p Position
	err := s.db.QueryRow(`
		SELECT chapter_index, line_offset, page_index
		FROM positions WHERE doc_path = ?`, docPath).
		Scan(&p.ChapterIndex, &p.LineOffset, &p.PageIndex)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Stats describes cache contents for the `folio cache stats` subcommand.
type Stats struct {
	Documents int
	Entries   int
	Pages     int
	SizeBytes int64
}

// Stats reports document, entry, and page counts plus the database file size.
func (s *Store) Stats() (Stats, error) {
	var st Stats

	row := s.db.QueryRow(`
		SELECT COUNT(DISTINCT doc_path),
		       COUNT(DISTINCT doc_path || '|' || layout_key),
		       COUNT(*)
		FROM page_maps`)
	if err := row.Scan(&st.Documents, &st.Entries, &st.Pages); err != nil {
		return Stats{}, err
	}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	return st, nil
}
