package selection

import (
	"strings"
)

// Bias controls how a click between two cells resolves to a cell index.
type Bias int

const (
	// BiasLeading snaps to the cell starting at the boundary.
	BiasLeading Bias = iota
	// BiasTrailing snaps to the cell ending at the boundary.
	BiasTrailing
	// BiasNearest picks whichever cell edge is closer.
	BiasNearest
)

// Anchor identifies one boundary of a selection in geometry terms rather
// than raw screen coordinates, so it survives re-render as long as the
// geometry key is stable within a frame.
type Anchor struct {
	Key        GeometryKey
	LineOffset int
	CellIndex  int
}

// Point is a 0-based screen coordinate.
type Point struct {
	X int
	Y int
}

// Before reports whether a precedes b in reading order.
func (a Anchor) Before(b Anchor) bool {
	return a.less(b)
}

// less orders anchors by (page, line offset, column, row, column origin),
// then cell index within the same geometry.
func (a Anchor) less(b Anchor) bool {
	if a.Key.PageID != b.Key.PageID {
		return a.Key.PageID < b.Key.PageID
	}
	if a.LineOffset != b.LineOffset {
		return a.LineOffset < b.LineOffset
	}
	if a.Key.ColumnID != b.Key.ColumnID {
		return a.Key.ColumnID < b.Key.ColumnID
	}
	if a.Key.Row != b.Key.Row {
		return a.Key.Row < b.Key.Row
	}
	if a.Key.ColumnOrigin != b.Key.ColumnOrigin {
		return a.Key.ColumnOrigin < b.Key.ColumnOrigin
	}
	return a.CellIndex < b.CellIndex
}

// AnchorFromPoint resolves a screen point to a selection anchor against the
// committed frame. Returns false when no geometry occupies the point's row.
// Clicks to the left or right of a line clamp to its first or last cell; a
// click exactly on a cell boundary resolves per the bias.
func AnchorFromPoint(pt Point, frame *FrameBuffer, bias Bias) (Anchor, bool) {
	var best *LineGeometry
	bestDist := -1

	for _, g := range frame.Geometries() {
		if g.Row != pt.Y {
			continue
		}
		g := g
		dist := horizontalDistance(pt.X, g)
		if dist == 0 {
			best = &g
			break
		}
		if bestDist < 0 || dist < bestDist {
			best = &g
			bestDist = dist
		}
	}

	if best == nil {
		return Anchor{}, false
	}

	return Anchor{
		Key:        best.Key(),
		LineOffset: best.LineOffset,
		CellIndex:  resolveCell(pt.X-best.ColumnOrigin, *best, bias),
	}, true
}

// horizontalDistance is the distance from x to the geometry's column span,
// zero when x falls inside it.
func horizontalDistance(x int, g LineGeometry) int {
	left := g.ColumnOrigin
	right := g.ColumnOrigin + g.Width()
	switch {
	case x < left:
		return left - x
	case x >= right:
		return x - right + 1
	default:
		return 0
	}
}

// resolveCell maps a column offset within the line to a cell index.
func resolveCell(relX int, g LineGeometry, bias Bias) int {
	if len(g.Cells) == 0 {
		return 0
	}

	last := len(g.Cells) - 1
	if relX < g.Cells[0].ScreenX {
		return 0
	}
	if relX >= g.Cells[last].ScreenX+g.Cells[last].DisplayWidth {
		return last
	}

	for i, cell := range g.Cells {
		if relX < cell.ScreenX || relX >= cell.ScreenX+cell.DisplayWidth {
			continue
		}
		// On the leading edge of a cell the bias decides which side of the
		// boundary the anchor lands on. Leading and nearest treat the
		// boundary as belonging to the right cell.
		if relX == cell.ScreenX && i > 0 && bias == BiasTrailing {
			return i - 1
		}
		return i
	}
	return last
}

// NormalizeRange orders two anchors into (start, end) regardless of drag
// direction.
func NormalizeRange(a, b Anchor) (Anchor, Anchor) {
	if b.less(a) {
		return b, a
	}
	return a, b
}

// ExtractText returns the plain text spanned by a normalized anchor pair
// against the committed frame. Interior geometries contribute their full
// text, the first and last contribute partial substrings, and zero-width
// geometries (image placeholder rows) are skipped. A stale anchor whose
// geometry is no longer in the frame yields an empty string.
func ExtractText(start, end Anchor, frame *FrameBuffer) string {
	geos := frame.Geometries()

	si, ei := -1, -1
	for i, g := range geos {
		if g.Key() == start.Key {
			si = i
		}
		if g.Key() == end.Key {
			ei = i
		}
	}
	if si < 0 || ei < 0 {
		return ""
	}
	if ei < si {
		si, ei = ei, si
		start, end = end, start
	}

	var parts []string
	for i := si; i <= ei; i++ {
		g := geos[i]
		if len(g.Cells) == 0 {
			continue
		}

		from := 0
		to := len(g.PlainText)
		if i == si {
			from = g.Cells[clampCell(start.CellIndex, g)].CharStart
		}
		if i == ei {
			to = g.Cells[clampCell(end.CellIndex, g)].CharEnd
		}
		if from > to {
			from = to
		}
		parts = append(parts, g.PlainText[from:to])
	}

	return strings.Join(parts, "\n")
}

// RangeForLine returns the plain-text byte bounds of the selected portion
// of geometry g under the normalized range [start, end]. ok is false when
// the range does not touch the line or the line has no cells.
func RangeForLine(start, end Anchor, g LineGeometry) (from, to int, ok bool) {
	if len(g.Cells) == 0 {
		return 0, 0, false
	}

	lineStart := Anchor{Key: g.Key(), LineOffset: g.LineOffset, CellIndex: 0}
	lineEnd := Anchor{Key: g.Key(), LineOffset: g.LineOffset, CellIndex: len(g.Cells) - 1}
	if end.less(lineStart) || lineEnd.less(start) {
		return 0, 0, false
	}

	from = 0
	to = len(g.PlainText)
	if start.Key == g.Key() {
		from = g.Cells[clampCell(start.CellIndex, g)].CharStart
	}
	if end.Key == g.Key() {
		to = g.Cells[clampCell(end.CellIndex, g)].CharEnd
	}
	if from > to {
		from = to
	}
	return from, to, true
}

func clampCell(i int, g LineGeometry) int {
	if i < 0 {
		return 0
	}
	if i >= len(g.Cells) {
		return len(g.Cells) - 1
	}
	return i
}
