package content

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// headingLevels maps heading tags to their level.
var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// skipTags is the set of tags whose content is skipped entirely.
var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// listContext tracks one level of ol/ul nesting during parsing.
type listContext struct {
	ordered bool
	index   int
}

// parser accumulates blocks while walking the XHTML token stream.
type parser struct {
	blocks []Block

	segments []TextSegment
	blockTyp BlockType
	level    int
	marker   string
	imageSrc string

	bold      int
	italic    int
	underline int
	code      int

	quoteDepth int
	preDepth   int
	tableDepth int
	skipDepth  int

	lists []listContext

	tableRows []string
	tableCell strings.Builder
	tableRow  []string
}

// ParseXHTML converts a chapter's raw XHTML into semantic content blocks.
// Inline b/strong, i/em, u, and code/tt tags toggle segment styles; block
// tags delimit blocks; script/style content is skipped. Unknown tags are
// transparent.
func ParseXHTML(data []byte) ([]Block, error) {
	p := &parser{blockTyp: BlockParagraph}
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				p.flush()
				return p.blocks, nil
			}
			return nil, err

		case html.StartTagToken:
			tn, hasAttr := tokenizer.TagName()
			a := atom.Lookup(tn)
			if skipTags[a] {
				p.skipDepth++
				continue
			}
			if p.skipDepth > 0 {
				continue
			}
			p.openTag(a, collectAttrs(tokenizer, hasAttr))

		case html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			a := atom.Lookup(tn)
			if p.skipDepth > 0 {
				continue
			}
			p.voidTag(a, collectAttrs(tokenizer, hasAttr))

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if skipTags[a] {
				if p.skipDepth > 0 {
					p.skipDepth--
				}
				continue
			}
			if p.skipDepth > 0 {
				continue
			}
			p.closeTag(a)

		case html.TextToken:
			if p.skipDepth > 0 {
				continue
			}
			p.text(string(tokenizer.Text()))
		}
	}
}

// collectAttrs drains the tokenizer's attributes into a map.
func collectAttrs(tokenizer *html.Tokenizer, hasAttr bool) map[string]string {
	if !hasAttr {
		return nil
	}
	attrs := make(map[string]string)
	for {
		key, val, more := tokenizer.TagAttr()
		attrs[string(key)] = string(val)
		if !more {
			break
		}
	}
	return attrs
}

func (p *parser) openTag(a atom.Atom, attrs map[string]string) {
	switch {
	case headingLevels[a] != 0:
		p.flush()
		p.blockTyp = BlockHeading
		p.level = headingLevels[a]

	case a == atom.P || a == atom.Div:
		p.flush()

	case a == atom.Blockquote:
		p.flush()
		p.quoteDepth++

	case a == atom.Pre:
		p.flush()
		p.preDepth++
		p.blockTyp = BlockCode

	case a == atom.Ol:
		p.flush()
		p.lists = append(p.lists, listContext{ordered: true})

	case a == atom.Ul:
		p.flush()
		p.lists = append(p.lists, listContext{ordered: false})

	case a == atom.Li:
		p.flush()
		p.blockTyp = BlockListItem
		p.level = len(p.lists)
		if p.level == 0 {
			p.level = 1
		}
		p.marker = p.nextMarker()

	case a == atom.Table:
		p.flush()
		p.tableDepth++

	case a == atom.Tr:
		p.tableRow = nil

	case a == atom.Td, a == atom.Th:
		p.tableCell.Reset()

	case a == atom.B, a == atom.Strong:
		p.bold++
	case a == atom.I, a == atom.Em:
		p.italic++
	case a == atom.U:
		p.underline++
	case a == atom.Code, a == atom.Kbd, a == atom.Samp:
		p.code++

	case a == atom.Br:
		p.appendText("\n")
	case a == atom.Hr:
		p.flush()
		p.blocks = append(p.blocks, Block{Type: BlockSeparator})
	case a == atom.Img:
		p.imageTag(attrs)
	}
}

func (p *parser) voidTag(a atom.Atom, attrs map[string]string) {
	switch a {
	case atom.Br:
		p.appendText("\n")
	case atom.Hr:
		p.flush()
		p.blocks = append(p.blocks, Block{Type: BlockSeparator})
	case atom.Img:
		p.imageTag(attrs)
	}
}

func (p *parser) closeTag(a atom.Atom) {
	switch {
	case headingLevels[a] != 0, a == atom.P, a == atom.Div, a == atom.Li:
		p.flush()

	case a == atom.Blockquote:
		p.flush()
		if p.quoteDepth > 0 {
			p.quoteDepth--
		}

	case a == atom.Pre:
		p.flush()
		if p.preDepth > 0 {
			p.preDepth--
		}

	case a == atom.Ol, a == atom.Ul:
		p.flush()
		if len(p.lists) > 0 {
			p.lists = p.lists[:len(p.lists)-1]
		}

	case a == atom.Table:
		p.flushTable()
		if p.tableDepth > 0 {
			p.tableDepth--
		}

	case a == atom.Tr:
		row := strings.TrimRight(strings.Join(p.tableRow, "  "), " ")
		if row != "" {
			p.tableRows = append(p.tableRows, row)
		}
		p.tableRow = nil

	case a == atom.Td, a == atom.Th:
		p.tableRow = append(p.tableRow, strings.TrimSpace(p.tableCell.String()))
		p.tableCell.Reset()

	case a == atom.B, a == atom.Strong:
		p.dec(&p.bold)
	case a == atom.I, a == atom.Em:
		p.dec(&p.italic)
	case a == atom.U:
		p.dec(&p.underline)
	case a == atom.Code, a == atom.Kbd, a == atom.Samp:
		p.dec(&p.code)
	}
}

func (p *parser) dec(n *int) {
	if *n > 0 {
		*n--
	}
}

// imageTag emits a standalone image block carrying the source path.
func (p *parser) imageTag(attrs map[string]string) {
	src := attrs["src"]
	if src == "" {
		src = attrs["xlink:href"]
	}
	if src == "" {
		return
	}
	p.flush()
	alt := attrs["alt"]
	if alt == "" {
		alt = "image"
	}
	p.blocks = append(p.blocks, Block{
		Type:     BlockParagraph,
		ImageSrc: src,
		Segments: []TextSegment{{Text: "[" + alt + "]"}},
	})
}

// nextMarker returns the marker for the next item of the innermost list.
func (p *parser) nextMarker() string {
	if len(p.lists) == 0 {
		return "• "
	}
	ctx := &p.lists[len(p.lists)-1]
	if ctx.ordered {
		ctx.index++
		return strconv.Itoa(ctx.index) + ". "
	}
	return "• "
}

// currentStyle snapshots the active inline style counters.
func (p *parser) currentStyle() Style {
	return Style{
		Bold:      p.bold > 0,
		Italic:    p.italic > 0,
		Underline: p.underline > 0,
		Code:      p.code > 0,
	}
}

// text handles a text token: whitespace is collapsed outside <pre>, preserved
// inside. Table cell text is buffered separately.
func (p *parser) text(raw string) {
	if p.tableDepth > 0 {
		p.tableCell.WriteString(collapseWhitespace(raw))
		return
	}
	if p.preDepth > 0 {
		p.appendText(raw)
		return
	}
	text := collapseWhitespace(raw)
	if text == "" {
		return
	}
	// Drop a leading space at block start.
	if len(p.segments) == 0 && strings.HasPrefix(text, " ") {
		text = text[1:]
	}
	if text != "" {
		p.appendText(text)
	}
}

// appendText adds text under the current style, extending the previous
// segment when the style is unchanged.
func (p *parser) appendText(text string) {
	if text == "" {
		return
	}
	style := p.currentStyle()
	if n := len(p.segments); n > 0 && p.segments[n-1].Style == style {
		p.segments[n-1].Text += text
		return
	}
	p.segments = append(p.segments, TextSegment{Text: text, Style: style})
}

// flush finalizes the current block, if it has any non-whitespace content,
// and resets the accumulator state for the next one.
func (p *parser) flush() {
	segs := p.segments
	p.segments = nil

	typ := p.blockTyp
	level := p.level
	marker := p.marker
	p.blockTyp = BlockParagraph
	p.level = 0
	p.marker = ""
	if p.quoteDepth > 0 {
		typ = BlockQuote
	}
	if p.preDepth > 0 {
		typ = BlockCode
	}

	hasContent := false
	for _, seg := range segs {
		if strings.TrimSpace(seg.Text) != "" {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return
	}

	// Trim trailing whitespace from the last segment so wrapped lines do
	// not end with stray spaces.
	if typ != BlockCode {
		last := &segs[len(segs)-1]
		last.Text = strings.TrimRight(last.Text, " ")
	}

	p.blocks = append(p.blocks, Block{
		Type:     typ,
		Segments: MergeSegments(segs),
		Level:    level,
		Marker:   marker,
	})
}

// flushTable emits the buffered table rows as a single table block.
func (p *parser) flushTable() {
	if len(p.tableRows) == 0 {
		return
	}
	p.blocks = append(p.blocks, Block{
		Type:     BlockTable,
		Segments: []TextSegment{{Text: strings.Join(p.tableRows, "\n")}},
	})
	p.tableRows = nil
}

// collapseWhitespace replaces runs of whitespace with a single space,
// preserving a single leading/trailing space so inline elements keep their
// spacing. Returns "" for all-whitespace input.
func collapseWhitespace(s string) string {
	var buf strings.Builder
	inSpace := false
	hasNonSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			inSpace = true
		} else {
			if inSpace && buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteRune(r)
			inSpace = false
			hasNonSpace = true
		}
	}
	if !hasNonSpace {
		return ""
	}
	out := buf.String()
	if isSpaceByte(s[0]) {
		out = " " + out
	}
	if inSpace {
		out += " "
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
