// Package content defines the semantic block model for chapter text: typed
// blocks carrying styled segments, and the wrapped display lines produced
// from them.
package content

// BlockType identifies the semantic kind of a content block.
type BlockType int

const (
	// BlockParagraph is body text wrapped with the greedy word-wrapper.
	BlockParagraph BlockType = iota
	// BlockHeading is a chapter or section heading; Level carries h1-h6.
	BlockHeading
	// BlockListItem is one bullet or numbered item; Marker carries the prefix.
	BlockListItem
	// BlockQuote is quoted text, rendered with a leading bar on every line.
	BlockQuote
	// BlockCode is preformatted text that bypasses word-wrapping.
	BlockCode
	// BlockTable is tabular text that bypasses word-wrapping.
	BlockTable
	// BlockSeparator is a horizontal rule.
	BlockSeparator
	// BlockBreak is an explicit blank line.
	BlockBreak
)

// String returns the lowercase name of the block type.
func (t BlockType) String() string {
	switch t {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockListItem:
		return "list_item"
	case BlockQuote:
		return "quote"
	case BlockCode:
		return "code"
	case BlockTable:
		return "table"
	case BlockSeparator:
		return "separator"
	case BlockBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Style is the set of inline attributes a text segment can carry.
type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Code      bool
}

// IsZero reports whether no attribute is set.
func (s Style) IsZero() bool {
	return s == Style{}
}

// TextSegment is the smallest styled unit of text. Adjacent segments with
// equal styles are merged during line assembly.
type TextSegment struct {
	Text  string
	Style Style
}

// Block is one semantic unit of chapter content. Blocks are produced once per
// chapter parse and are immutable afterwards.
type Block struct {
	Type     BlockType
	Segments []TextSegment

	// Level is the heading level (1-6) for BlockHeading, or the nesting
	// depth for BlockListItem.
	Level int

	// Marker is the list item prefix, e.g. "• " or "3. ".
	Marker string

	// ImageSrc is the archive path of an embedded image, when the block
	// stands in for one.
	ImageSrc string
}

// PlainText concatenates the block's segment text without styling.
func (b Block) PlainText() string {
	switch len(b.Segments) {
	case 0:
		return ""
	case 1:
		return b.Segments[0].Text
	}
	n := 0
	for _, seg := range b.Segments {
		n += len(seg.Text)
	}
	buf := make([]byte, 0, n)
	for _, seg := range b.Segments {
		buf = append(buf, seg.Text...)
	}
	return string(buf)
}

// ImageHint carries placement information for an inline image placeholder
// line, so the renderer can special-case it without re-deriving block context.
type ImageHint struct {
	// Src is the image path inside the book archive.
	Src string
	// Rows is the number of terminal rows reserved for the image.
	Rows int
}

// LineMeta is the typed per-line metadata attached to a DisplayLine.
type LineMeta struct {
	// Block is the type of the block this line was wrapped from.
	Block BlockType
	// Spacer marks a blank line inserted between blocks.
	Spacer bool
	// List marks lines belonging to a list item.
	List bool
	// Image is set on image placeholder lines.
	Image *ImageHint
}

// DisplayLine is one screen row's worth of wrapped content: the plain text,
// the styled segments that compose it, and typed metadata.
type DisplayLine struct {
	Text     string
	Segments []TextSegment
	Meta     LineMeta
}

// MergeSegments collapses adjacent segments with identical styles and drops
// segments with empty text. The input is not modified.
func MergeSegments(segs []TextSegment) []TextSegment {
	var out []TextSegment
	for _, seg := range segs {
		if seg.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == seg.Style {
			out[n-1].Text += seg.Text
			continue
		}
		out = append(out, seg)
	}
	return out
}
