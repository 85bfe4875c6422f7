// Package textmetrics provides grapheme-cluster-aware text measurement for
// terminal rendering.
//
// Triple-Unit Model:
//
// This package distinguishes between three units of text measurement:
//
//  1. Bytes: The underlying storage unit in Go strings (len() returns bytes).
//     A single grapheme can be 1-25+ bytes.
//
//  2. Graphemes: The logical unit of text that users perceive as a "character".
//     A grapheme cluster may consist of multiple code points (e.g., "e" +
//     combining accent = 1 grapheme). This is the unit Cells() reports and
//     never splits.
//
//  3. Display Columns: The width in terminal cells that a grapheme occupies.
//     ASCII = 1 column, emoji = 2 columns, CJK = 2 columns.
package textmetrics

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// DefaultTabStop is the tab expansion width used when none is configured.
const DefaultTabStop = 4

// Cell describes one grapheme cluster's position within a line: its byte span
// in the plain text and the screen column where it starts.
type Cell struct {
	// Cluster is the grapheme cluster itself.
	Cluster string
	// CharStart is the byte offset of the cluster in the plain text.
	CharStart int
	// CharEnd is the byte offset just past the cluster. CharEnd of cell i
	// equals CharStart of cell i+1.
	CharEnd int
	// DisplayWidth is the number of terminal columns the cluster occupies
	// (0, 1, or 2).
	DisplayWidth int
	// ScreenX is the column offset of the cluster within the line.
	// ScreenX + DisplayWidth of cell i equals ScreenX of cell i+1.
	ScreenX int
}

// VisibleWidth returns the display width of s in terminal columns,
// ignoring any ANSI escape sequences.
func VisibleWidth(s string) int {
	if strings.IndexByte(s, '\x1b') >= 0 {
		s = ansi.Strip(s)
	}
	return uniseg.StringWidth(s)
}

// StripANSI removes all ANSI escape sequences from s.
func StripANSI(s string) string {
	if strings.IndexByte(s, '\x1b') < 0 {
		return s
	}
	return ansi.Strip(s)
}

// ExpandTabs replaces each tab in s with spaces up to the next multiple of
// tabstop display columns. A tabstop <= 0 falls back to DefaultTabStop.
func ExpandTabs(s string, tabstop int) string {
	if tabstop <= 0 {
		tabstop = DefaultTabStop
	}
	if !strings.ContainsRune(s, '\t') {
		return s
	}

	var buf strings.Builder
	col := 0
	state := -1
	for len(s) > 0 {
		cluster, rest, _, newState := uniseg.StepString(s, state)
		if cluster == "\t" {
			pad := tabstop - col%tabstop
			buf.WriteString(strings.Repeat(" ", pad))
			col += pad
		} else {
			buf.WriteString(cluster)
			col += uniseg.StringWidth(cluster)
		}
		s = rest
		state = newState
	}
	return buf.String()
}

// Cells segments s into grapheme clusters and returns one Cell per cluster
// with its byte span and screen column. ANSI sequences are stripped first so
// the spans refer to the plain text.
func Cells(s string) []Cell {
	s = StripANSI(s)
	if s == "" {
		return nil
	}

	cells := make([]Cell, 0, len(s))
	offset := 0
	screenX := 0
	state := -1
	for len(s) > 0 {
		cluster, rest, _, newState := uniseg.StepString(s, state)
		width := ClusterWidth(cluster)
		cells = append(cells, Cell{
			Cluster:      cluster,
			CharStart:    offset,
			CharEnd:      offset + len(cluster),
			DisplayWidth: width,
			ScreenX:      screenX,
		})
		offset += len(cluster)
		screenX += width
		s = rest
		state = newState
	}
	return cells
}

// ClusterWidth returns the display width of a single grapheme cluster.
func ClusterWidth(cluster string) int {
	if cluster == "" {
		return 0
	}
	return runewidth.StringWidth(cluster)
}

// TruncateTo cuts s down to at most width display columns starting at
// startCol, without splitting grapheme clusters. ANSI sequences in s are
// preserved for the zero-startCol case via ansi.Truncate; a non-zero startCol
// operates on the stripped text.
func TruncateTo(s string, width, startCol int) string {
	if width <= 0 {
		return ""
	}
	if startCol <= 0 {
		return ansi.Truncate(s, width, "")
	}

	plain := StripANSI(s)
	var buf strings.Builder
	col := 0
	state := -1
	for len(plain) > 0 {
		cluster, rest, _, newState := uniseg.StepString(plain, state)
		w := uniseg.StringWidth(cluster)
		if col >= startCol {
			if col-startCol+w > width {
				break
			}
			buf.WriteString(cluster)
		}
		col += w
		plain = rest
		state = newState
	}
	return buf.String()
}

// SliceByColumns extracts the substring of s covering display columns
// [startCol, endCol). Clusters partially overlapping the range are included.
func SliceByColumns(s string, startCol, endCol int) string {
	if startCol >= endCol || s == "" {
		return ""
	}

	var buf strings.Builder
	col := 0
	state := -1
	for len(s) > 0 {
		cluster, rest, _, newState := uniseg.StepString(s, state)
		width := uniseg.StringWidth(cluster)
		clusterEnd := col + width
		if col < endCol && clusterEnd > startCol {
			buf.WriteString(cluster)
		}
		col = clusterEnd
		if col >= endCol {
			break
		}
		s = rest
		state = newState
	}
	return buf.String()
}

// GraphemeCount returns the number of grapheme clusters in s.
func GraphemeCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
