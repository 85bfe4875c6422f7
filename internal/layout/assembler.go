// Package layout converts semantic content blocks into fixed-width display
// lines: greedy word-wrapping for prose blocks, pass-through for code and
// tables, block prefixes for quotes and lists, and spacer lines between
// blocks.
package layout

import (
	"strings"

	"github.com/folioterm/folio/internal/content"
	"github.com/folioterm/folio/internal/textmetrics"
)

// MinWidth is the smallest column width the assembler will wrap at; narrower
// requests are clamped up to it.
const MinWidth = 10

// separatorMax caps the length of a separator rule.
const separatorMax = 40

// quotePrefix is prepended to every line of a quote block.
const quotePrefix = "│ "

// defaultImageRows is the placeholder height used when no image-row budget
// is configured.
const defaultImageRows = 8

// Options selects the rendering variant lines are assembled for.
type Options struct {
	// Images enables inline image placeholder lines. When disabled, image
	// blocks wrap their alt text like ordinary paragraphs.
	Images bool
	// MaxImageRows bounds the rows reserved for one image placeholder.
	MaxImageRows int
}

// Build wraps blocks into display lines at the given width using the plain
// text variant.
func Build(blocks []content.Block, width int) []content.DisplayLine {
	return BuildWithOptions(blocks, width, Options{})
}

// BuildWithOptions wraps blocks into display lines at the given width.
// Width is clamped to MinWidth. Blocks whose wrapped output would be empty
// are skipped entirely.
func BuildWithOptions(blocks []content.Block, width int, opts Options) []content.DisplayLine {
	if width < MinWidth {
		width = MinWidth
	}

	var out []content.DisplayLine
	prevType := content.BlockBreak
	prevWasFlow := false // whether a previous block emitted lines
	prevList := false

	for _, block := range blocks {
		lines := buildBlock(block, width, opts)
		if len(lines) == 0 {
			continue
		}

		if prevWasFlow {
			sameList := prevList && block.Type == content.BlockListItem
			forced := prevType == content.BlockCode || prevType == content.BlockTable
			if !sameList || forced {
				out = append(out, content.DisplayLine{
					Meta: content.LineMeta{Block: block.Type, Spacer: true},
				})
			}
		}

		out = append(out, lines...)
		prevType = block.Type
		prevList = block.Type == content.BlockListItem
		prevWasFlow = true
	}
	return out
}

// buildBlock produces the display lines for a single block.
func buildBlock(block content.Block, width int, opts Options) []content.DisplayLine {
	if block.ImageSrc != "" && opts.Images {
		return imageLines(block, opts)
	}

	switch block.Type {
	case content.BlockCode, content.BlockTable:
		return verbatimLines(block)
	case content.BlockSeparator:
		n := width
		if n > separatorMax {
			n = separatorMax
		}
		rule := strings.Repeat("─", n)
		return []content.DisplayLine{{
			Text:     rule,
			Segments: []content.TextSegment{{Text: rule}},
			Meta:     content.LineMeta{Block: content.BlockSeparator},
		}}
	case content.BlockBreak:
		return []content.DisplayLine{{
			Meta: content.LineMeta{Block: content.BlockBreak},
		}}
	default:
		return wrapLines(block, width)
	}
}

// imageLines reserves placeholder rows for an inline image. The lines carry
// no text so selection extraction skips them.
func imageLines(block content.Block, opts Options) []content.DisplayLine {
	rows := opts.MaxImageRows
	if rows <= 0 {
		rows = defaultImageRows
	}
	hint := &content.ImageHint{Src: block.ImageSrc, Rows: rows}
	lines := make([]content.DisplayLine, rows)
	for i := range lines {
		lines[i] = content.DisplayLine{
			Meta: content.LineMeta{Block: block.Type, Image: hint},
		}
	}
	return lines
}

// verbatimLines splits code/table content on physical newlines without
// re-wrapping. Each line is right-trimmed; trailing empty lines are dropped.
func verbatimLines(block content.Block) []content.DisplayLine {
	raw := textmetrics.ExpandTabs(block.PlainText(), textmetrics.DefaultTabStop)
	physical := strings.Split(raw, "\n")
	for len(physical) > 0 && strings.TrimSpace(physical[len(physical)-1]) == "" {
		physical = physical[:len(physical)-1]
	}
	if len(physical) == 0 {
		return nil
	}

	style := content.Style{}
	if len(block.Segments) > 0 {
		style = block.Segments[0].Style
	}
	lines := make([]content.DisplayLine, 0, len(physical))
	for _, text := range physical {
		text = strings.TrimRight(text, " \t")
		var segs []content.TextSegment
		if text != "" {
			segs = []content.TextSegment{{Text: text, Style: style}}
		}
		lines = append(lines, content.DisplayLine{
			Text:     text,
			Segments: segs,
			Meta:     content.LineMeta{Block: block.Type},
		})
	}
	return lines
}

// token is one wrap unit: a word with its trailing whitespace attached, or a
// forced line break.
type token struct {
	text    string
	style   content.Style
	newline bool
}

// tokenize splits a block's segments into word tokens, keeping trailing
// whitespace on each word and surfacing explicit newlines as break tokens.
func tokenize(segments []content.TextSegment) []token {
	var tokens []token
	for _, seg := range segments {
		rest := seg.Text
		for rest != "" {
			if rest[0] == '\n' {
				tokens = append(tokens, token{newline: true})
				rest = rest[1:]
				continue
			}
			end := strings.IndexByte(rest, '\n')
			chunk := rest
			if end >= 0 {
				chunk = rest[:end]
				rest = rest[end:]
			} else {
				rest = ""
			}
			for chunk != "" {
				cut := wordEnd(chunk)
				tokens = append(tokens, token{text: chunk[:cut], style: seg.Style})
				chunk = chunk[cut:]
			}
		}
	}
	return tokens
}

// wordEnd returns the byte length of the first word in s including any
// whitespace that follows it.
func wordEnd(s string) int {
	i := 0
	for i < len(s) && s[i] != ' ' {
		i++
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

// lineBuilder accumulates tokens for one display line.
type lineBuilder struct {
	segs  []content.TextSegment
	width int
}

func (lb *lineBuilder) add(text string, style content.Style) {
	if text == "" {
		return
	}
	lb.segs = append(lb.segs, content.TextSegment{Text: text, Style: style})
	lb.width += textmetrics.VisibleWidth(text)
}

// finalize right-trims the accumulated segments and materializes a display
// line. Returns false when the trimmed line is empty and keepEmpty is unset.
func (lb *lineBuilder) finalize(meta content.LineMeta, keepEmpty bool) (content.DisplayLine, bool) {
	segs := content.MergeSegments(lb.segs)
	if n := len(segs); n > 0 {
		segs[n-1].Text = strings.TrimRight(segs[n-1].Text, " ")
		if segs[n-1].Text == "" {
			segs = segs[:n-1]
		}
	}
	var text strings.Builder
	for _, seg := range segs {
		text.WriteString(seg.Text)
	}
	plain := text.String()
	if strings.TrimSpace(plain) == "" && !keepEmpty {
		return content.DisplayLine{}, false
	}
	return content.DisplayLine{Text: plain, Segments: segs, Meta: meta}, true
}

// wrapLines greedily wraps a prose block (heading, paragraph, quote, list
// item) at the given width, applying block prefixes.
func wrapLines(block content.Block, width int) []content.DisplayLine {
	tokens := tokenize(block.Segments)
	if len(tokens) == 0 {
		return nil
	}

	firstPrefix, contPrefix := blockPrefixes(block)
	meta := content.LineMeta{
		Block: block.Type,
		List:  block.Type == content.BlockListItem,
	}

	var out []content.DisplayLine
	newLine := func(first bool) *lineBuilder {
		lb := &lineBuilder{}
		prefix := contPrefix
		if first {
			prefix = firstPrefix
		}
		lb.add(prefix, content.Style{})
		return lb
	}

	lb := newLine(true)
	prefixWidth := lb.width
	emit := func(keepEmpty bool) {
		if line, ok := lb.finalize(meta, keepEmpty); ok {
			out = append(out, line)
		}
		lb = newLine(false)
		prefixWidth = lb.width
	}

	for _, tok := range tokens {
		if tok.newline {
			emit(true)
			continue
		}
		tokWidth := textmetrics.VisibleWidth(strings.TrimRight(tok.text, " "))
		if lb.width+tokWidth <= width {
			lb.add(tok.text, tok.style)
			continue
		}
		if lb.width > prefixWidth {
			emit(false)
		}
		// A token wider than the usable width is hard-split at grapheme
		// boundaries so no emitted line exceeds the width bound.
		text := tok.text
		for textmetrics.VisibleWidth(strings.TrimRight(text, " ")) > width-prefixWidth {
			head := textmetrics.TruncateTo(text, width-prefixWidth, 0)
			if head == "" {
				break
			}
			lb.add(head, tok.style)
			emit(false)
			text = text[len(head):]
		}
		lb.add(text, tok.style)
	}
	if lb.width > prefixWidth {
		if line, ok := lb.finalize(meta, false); ok {
			out = append(out, line)
		}
	}

	// A block that wrapped to nothing but whitespace produces no lines.
	allEmpty := true
	for _, line := range out {
		if strings.TrimSpace(line.Text) != "" {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return nil
	}
	return out
}

// blockPrefixes returns the first-line and continuation prefixes for a block.
func blockPrefixes(block content.Block) (first, cont string) {
	switch block.Type {
	case content.BlockQuote:
		return quotePrefix, quotePrefix
	case content.BlockListItem:
		depth := block.Level
		if depth < 1 {
			depth = 1
		}
		indent := strings.Repeat("  ", depth-1)
		marker := block.Marker
		if marker == "" {
			marker = "• "
		}
		first = indent + marker
		cont = strings.Repeat(" ", textmetrics.VisibleWidth(first))
		return first, cont
	default:
		return "", ""
	}
}
