// Package epub reads EPUB archives and exposes their spine as an ordered
// list of chapters. Only what the reader needs is parsed: container.xml to
// find the OPF, the OPF manifest and spine for reading order, and enough
// Dublin Core metadata for the title bar.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/log"
)

const expectedMimetype = "application/epub+zip"
const containerPath = "META-INF/container.xml"

// Document is an opened EPUB book. A Document is safe for concurrent reads
// once opened; chapter block memoization is guarded internally.
type Document struct {
	path     string
	title    string
	author   string
	zip      *zip.ReadCloser
	files    map[string]*zip.File
	chapters []*Chapter
}

// Chapter is one spine entry of a Document.
type Chapter struct {
	ID    string
	Href  string
	Title string

	doc *Document

	mu     sync.Mutex
	blocks []content.Block
	parsed bool
}

// containerXML models META-INF/container.xml.
type containerXML struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// opfPackage models the parts of the OPF package document we use.
type opfPackage struct {
	Metadata struct {
		Titles   []string `xml:"http://purl.org/dc/elements/1.1/ title"`
		Creators []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Open opens the EPUB at path. The caller must Close the document when done.
func Open(p string) (*Document, error) {
	zrc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", p, err)
	}

	doc := &Document{path: p, zip: zrc}
	if err := doc.init(&zrc.Reader); err != nil {
		_ = zrc.Close()
		return nil, err
	}

	log.Info(log.CatEPUB, "opened document", "path", p, "chapters", len(doc.chapters))

	return doc, nil
}

func (d *Document) init(zr *zip.Reader) error {
	d.files = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		d.files[f.Name] = f
	}

	if data, err := d.readFile("mimetype"); err == nil {
		if mt := strings.TrimSpace(string(data)); mt != expectedMimetype {
			log.Warn(log.CatEPUB, "unexpected mimetype", "got", mt)
		}
	}

	opfPath, err := d.findOPF(zr)
	if err != nil {
		return err
	}

	data, err := d.readFile(opfPath)
	if err != nil {
		return fmt.Errorf("epub: read OPF %s: %w", opfPath, err)
	}

	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(data), &pkg); err != nil {
		return fmt.Errorf("epub: parse OPF: %w", err)
	}

	if len(pkg.Metadata.Titles) > 0 {
		d.title = strings.TrimSpace(pkg.Metadata.Titles[0])
	}
	if len(pkg.Metadata.Creators) > 0 {
		d.author = strings.TrimSpace(pkg.Metadata.Creators[0])
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		// Only document content participates in the spine.
		if strings.Contains(item.MediaType, "html") || strings.Contains(item.MediaType, "xml") {
			hrefByID[item.ID] = item.Href
		}
	}

	opfDir := path.Dir(opfPath)
	for _, ref := range pkg.Spine.ItemRefs {
		if strings.EqualFold(ref.Linear, "no") {
			continue
		}
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		full := href
		if opfDir != "." {
			full = path.Join(opfDir, href)
		}
		d.chapters = append(d.chapters, &Chapter{
			ID:   ref.IDRef,
			Href: full,
			doc:  d,
		})
	}

	if len(d.chapters) == 0 {
		return fmt.Errorf("epub: spine has no readable chapters")
	}

	return nil
}

// findOPF locates the package document via container.xml, falling back to a
// scan for any .opf entry when the container is missing or malformed.
func (d *Document) findOPF(zr *zip.Reader) (string, error) {
	if data, err := d.readFile(containerPath); err == nil {
		var c containerXML
		if err := xml.Unmarshal(stripBOM(data), &c); err == nil {
			for _, rf := range c.RootFiles {
				if fp := strings.TrimSpace(rf.FullPath); fp != "" {
					return fp, nil
				}
			}
		}
	}

	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}

	return "", fmt.Errorf("epub: no OPF package document found")
}

func (d *Document) readFile(name string) ([]byte, error) {
	f, ok := d.files[name]
	if !ok {
		// ZIP entries sometimes differ from manifest hrefs in case only.
		for n, zf := range d.files {
			if strings.EqualFold(n, name) {
				f = zf
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("epub: file %s not in archive", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Close releases the underlying archive.
func (d *Document) Close() error {
	if d.zip != nil {
		return d.zip.Close()
	}
	return nil
}

// Path returns the path the document was opened from.
func (d *Document) Path() string { return d.path }

// Title returns the book title, or the file basename when metadata is absent.
func (d *Document) Title() string {
	if d.title != "" {
		return d.title
	}
	base := filepath.Base(d.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Author returns the first creator listed in the OPF metadata, if any.
func (d *Document) Author() string { return d.author }

// ChapterCount returns the number of readable spine entries.
func (d *Document) ChapterCount() int { return len(d.chapters) }

// Chapter returns the i-th spine entry, or nil when out of range.
func (d *Document) Chapter(i int) *Chapter {
	if i < 0 || i >= len(d.chapters) {
		return nil
	}
	return d.chapters[i]
}

// CanonicalPath returns an absolute, symlink-free form of the document path,
// used as the identity key for the on-disk pagination cache. Falls back to
// the opened path when resolution fails.
func (d *Document) CanonicalPath() string {
	abs, err := filepath.Abs(d.path)
	if err != nil {
		return d.path
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// RawContent reads the chapter's XHTML bytes, stripping any UTF-8 BOM.
func (c *Chapter) RawContent() ([]byte, error) {
	data, err := c.doc.readFile(c.Href)
	if err != nil {
		return nil, err
	}
	return stripBOM(data), nil
}

// SetBlocks memoizes the parsed semantic blocks for this chapter.
func (c *Chapter) SetBlocks(blocks []content.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = blocks
	c.parsed = true
}

// Blocks returns the memoized semantic blocks and whether they were set.
func (c *Chapter) Blocks() ([]content.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks, c.parsed
}

// Lines extracts the chapter's plain text as logical lines, one per block
// element. It is the fallback used when structured parsing fails.
func (c *Chapter) Lines() ([]string, error) {
	data, err := c.RawContent()
	if err != nil {
		return nil, err
	}
	return extractLines(data)
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
