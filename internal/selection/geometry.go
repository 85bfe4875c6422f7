// Package selection maps rendered screen positions to logical text
// positions for mouse-driven selection. Geometry is recorded per frame as
// lines are drawn, committed atomically, then queried by anchor.
package selection

import (
	"sort"
	"sync"

	"github.com/folioterm/folio/internal/textmetrics"
)

// GeometryKey identifies one rendered screen position. Repeated renders of
// the same position within a frame overwrite rather than accumulate.
type GeometryKey struct {
	PageID       int
	ColumnID     int
	Row          int
	ColumnOrigin int
}

// LineGeometry records where one display line landed on screen and how its
// plain text maps to screen columns.
type LineGeometry struct {
	PageID       int
	ColumnID     int
	Row          int
	ColumnOrigin int
	LineOffset   int
	PlainText    string
	StyledText   string
	Cells        []textmetrics.Cell
}

// Key returns the composite key for this geometry's screen position.
func (g LineGeometry) Key() GeometryKey {
	return GeometryKey{
		PageID:       g.PageID,
		ColumnID:     g.ColumnID,
		Row:          g.Row,
		ColumnOrigin: g.ColumnOrigin,
	}
}

// Width returns the display width of the line in screen columns.
func (g LineGeometry) Width() int {
	if len(g.Cells) == 0 {
		return 0
	}
	last := g.Cells[len(g.Cells)-1]
	return last.ScreenX + last.DisplayWidth
}

// readingLess orders geometries by logical reading order: page, line offset,
// column, row, column origin. In split view this keeps the left column's
// lines ahead of the right column's regardless of render order.
func readingLess(a, b LineGeometry) bool {
	if a.PageID != b.PageID {
		return a.PageID < b.PageID
	}
	if a.LineOffset != b.LineOffset {
		return a.LineOffset < b.LineOffset
	}
	if a.ColumnID != b.ColumnID {
		return a.ColumnID < b.ColumnID
	}
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.ColumnOrigin < b.ColumnOrigin
}

// FrameBuffer holds the line geometries of the most recently committed
// render frame. Recording happens into a pending frame which replaces the
// committed one wholesale, so a concurrent read never observes a
// half-rendered frame.
type FrameBuffer struct {
	mu        sync.RWMutex
	committed map[GeometryKey]LineGeometry
	pending   map[GeometryKey]LineGeometry
}

// NewFrameBuffer creates an empty frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{committed: make(map[GeometryKey]LineGeometry)}
}

// BeginFrame starts collecting a new frame, discarding any uncommitted one.
func (f *FrameBuffer) BeginFrame() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = make(map[GeometryKey]LineGeometry)
}

// Record adds a geometry to the pending frame. Without a BeginFrame call the
// record is dropped.
func (f *FrameBuffer) Record(g LineGeometry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return
	}
	f.pending[g.Key()] = g
}

// Commit swaps the pending frame in as the committed one.
func (f *FrameBuffer) Commit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return
	}
	f.committed = f.pending
	f.pending = nil
}

// Lookup returns the committed geometry at key.
func (f *FrameBuffer) Lookup(key GeometryKey) (LineGeometry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	g, ok := f.committed[key]
	return g, ok
}

// Geometries returns the committed frame's geometries in reading order.
func (f *FrameBuffer) Geometries() []LineGeometry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]LineGeometry, 0, len(f.committed))
	for _, g := range f.committed {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return readingLess(out[i], out[j]) })
	return out
}

// Len returns the number of committed geometries.
func (f *FrameBuffer) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.committed)
}
