package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/folioterm/folio/internal/config"
	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/paginate"
	"github.com/folioterm/folio/internal/selection"
	"github.com/folioterm/folio/internal/textmetrics"
	"github.com/folioterm/folio/internal/ui/styles"
)

// gutter matches the column gap assumed by the layout derivation.
const gutter = "    "

// View renders the current pages and records their line geometry. Geometry
// collection is frame-atomic: everything is recorded into a pending frame
// and committed wholesale, so selection queries never see a half-drawn
// frame.
func (m Model) View() string {
	if !m.ready {
		return "Opening book..."
	}

	if m.showHelp {
		return m.helpView()
	}

	w, h := m.textArea()
	layout := paginate.DeriveLayout(w, h, m.cfg.Layout)

	m.frame.BeginFrame()
	var body string
	if m.splitView() {
		left, right := m.visibleColumns(layout)
		leftRows := m.renderColumn(left, 0, 0, layout, h)
		rightRows := m.renderColumn(right, 1, layout.ColumnWidth+len(gutter), layout, h)
		// Pad the left block to the full column width so the right column
		// lands at the origin its geometry records.
		for i, row := range leftRows {
			if pad := layout.ColumnWidth - lipgloss.Width(row); pad > 0 {
				leftRows[i] = row + strings.Repeat(" ", pad)
			}
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			strings.Join(leftRows, "\n"),
			gutter,
			strings.Join(rightRows, "\n"))
	} else {
		col, _ := m.visibleColumns(layout)
		body = strings.Join(m.renderColumn(col, 0, 0, layout, h), "\n")
	}
	m.frame.Commit()

	if m.toast.Visible() {
		rows := strings.Split(body, "\n")
		toastRow := lipgloss.PlaceHorizontal(w, lipgloss.Center, m.toast.View())
		toastLines := strings.Split(toastRow, "\n")
		if len(rows) >= len(toastLines) {
			copy(rows[len(rows)-len(toastLines):], toastLines)
		}
		body = strings.Join(rows, "\n")
	}

	return body + "\n" + m.statusBar()
}

func (m Model) splitView() bool {
	return m.cfg.Layout.ViewMode == config.ViewModeSplit
}

// column is one visible page worth of lines plus its addressing info.
type column struct {
	pageID      int
	firstOffset int
	lines       []content.DisplayLine
}

// visibleColumns resolves the current position into one or two columns of
// lines. In split view the right column shows the following page.
func (m Model) visibleColumns(layout paginate.Layout) (left, right column) {
	ctx := context.Background()

	if m.dynamicMode() {
		left = m.pageColumn(ctx, m.pageIndex)
		if m.splitView() {
			right = m.pageColumn(ctx, m.pageIndex+1)
			if m.pageIndex+1 >= m.calc.TotalPages() {
				right = column{pageID: m.pageIndex + 1}
			}
		}
		return left, right
	}

	v := m.variant()
	left = column{
		pageID:      m.chapter,
		firstOffset: m.lineOffset,
		lines:       m.svc.WrapWindow(ctx, m.doc, m.chapter, layout.ColumnWidth, v, m.lineOffset, layout.LinesPerPage),
	}
	if m.splitView() {
		next := m.lineOffset + layout.LinesPerPage
		right = column{
			pageID:      m.chapter,
			firstOffset: next,
			lines:       m.svc.WrapWindow(ctx, m.doc, m.chapter, layout.ColumnWidth, v, next, layout.LinesPerPage),
		}
	}
	return left, right
}

func (m Model) pageColumn(ctx context.Context, idx int) column {
	p := m.calc.GetPage(ctx, idx)
	if p == nil {
		return column{pageID: idx}
	}
	return column{pageID: idx, firstOffset: p.StartLine, lines: p.Lines}
}

// renderColumn draws a column of lines into a fixed-height row slice,
// recording a LineGeometry for every drawn line.
func (m Model) renderColumn(col column, columnID, colOrigin int, layout paginate.Layout, height int) []string {
	spacing := m.cfg.Layout.LineSpacing
	if spacing < 1 {
		spacing = 1
	}

	rows := make([]string, height)
	for i, line := range col.lines {
		row := i * spacing
		if row >= height {
			break
		}

		geom := selection.LineGeometry{
			PageID:       col.pageID,
			ColumnID:     columnID,
			Row:          row,
			ColumnOrigin: colOrigin,
			LineOffset:   col.firstOffset + i,
			PlainText:    line.Text,
			Cells:        textmetrics.Cells(line.Text),
		}

		styled := m.styleLine(line, geom, layout.ColumnWidth)
		geom.StyledText = styled
		m.frame.Record(geom)

		rows[row] = styled
	}
	return rows
}

// styleLine renders a display line, applying segment styles and the
// selection highlight.
func (m Model) styleLine(line content.DisplayLine, geom selection.LineGeometry, width int) string {
	var styled string
	if m.selStart != nil && m.selEnd != nil {
		start, end := selection.NormalizeRange(*m.selStart, *m.selEnd)
		if from, to, ok := selection.RangeForLine(start, end, geom); ok {
			styled = m.styleSelected(line, from, to)
			return truncate.String(styled, uint(width)) //nolint:gosec // width is positive
		}
	}

	blockType := line.Meta.Block
	if len(line.Segments) == 0 {
		styled = styles.Block(blockType).Render(line.Text)
	} else {
		var b strings.Builder
		for _, seg := range line.Segments {
			b.WriteString(styles.Segment(seg, blockType).Render(seg.Text))
		}
		styled = b.String()
	}
	return styled
}

// styleSelected renders a line with [from, to) highlighted. The highlight
// flattens segment styling; plain readable text under a selection beats
// preserving italics.
func (m Model) styleSelected(line content.DisplayLine, from, to int) string {
	text := line.Text
	if from > len(text) {
		from = len(text)
	}
	if to > len(text) {
		to = len(text)
	}

	base := styles.Block(line.Meta.Block)
	return base.Render(text[:from]) +
		styles.Selected.Render(text[from:to]) +
		base.Render(text[to:])
}

// statusBar renders the bottom bar: title, position, and percentage.
func (m Model) statusBar() string {
	title := m.doc.Title()
	if author := m.doc.Author(); author != "" {
		title += " — " + author
	}

	var position, percent string
	if m.dynamicMode() {
		total := m.calc.TotalPages()
		if total > 0 {
			position = fmt.Sprintf("page %d/%d", m.pageIndex+1, total)
			percent = fmt.Sprintf("%d%%", (m.pageIndex+1)*100/total)
		}
	} else {
		w, h := m.textArea()
		layout := paginate.DeriveLayout(w, h, m.cfg.Layout)
		pageInChapter := m.lineOffset/layout.LinesPerPage + 1
		pages := 0
		if m.chapter < len(m.pageCounts) {
			pages = m.pageCounts[m.chapter]
		}
		position = fmt.Sprintf("ch %d/%d · p %d/%d",
			m.chapter+1, m.doc.ChapterCount(), pageInChapter, pages)
	}

	left := " " + title
	right := position
	if percent != "" {
		right += " · " + percent
	}
	right += " · ? help "

	pad := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		left = truncate.String(left, uint(max(m.width-lipgloss.Width(right)-1, 0))) //nolint:gosec // clamped non-negative
		pad = 1
	}

	return styles.StatusBar.Render(left + strings.Repeat(" ", pad) + right)
}

func (m Model) helpView() string {
	lines := []string{
		"folio keys",
		"",
		"  l/→/space   next page",
		"  h/←         previous page",
		"  ]  [        next / previous chapter",
		"  g  G        first / last page",
		"  s           toggle split view",
		"  n           toggle page numbering mode",
		"  i           toggle images",
		"  mouse drag  select text",
		"  y           copy selection",
		"  esc         clear selection",
		"  q           quit",
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		strings.Join(lines, "\n"))
}
