package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXHTML_Paragraphs(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<html><body><p>First paragraph.</p><p>Second.</p></body></html>`))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockParagraph, blocks[0].Type)
	assert.Equal(t, "First paragraph.", blocks[0].PlainText())
	assert.Equal(t, "Second.", blocks[1].PlainText())
}

func TestParseXHTML_Headings(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<h1>Title</h1><h3>Section</h3>`))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, BlockHeading, blocks[0].Type)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, 3, blocks[1].Level)
}

func TestParseXHTML_InlineStyles(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<p>plain <b>bold <i>both</i></b> tail</p>`))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	segs := blocks[0].Segments
	require.Len(t, segs, 4)
	assert.Equal(t, "plain ", segs[0].Text)
	assert.True(t, segs[0].Style.IsZero())
	assert.Equal(t, "bold ", segs[1].Text)
	assert.Equal(t, Style{Bold: true}, segs[1].Style)
	assert.Equal(t, "both", segs[2].Text)
	assert.Equal(t, Style{Bold: true, Italic: true}, segs[2].Style)
	assert.Equal(t, " tail", segs[3].Text)
}

func TestParseXHTML_Lists(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<ol><li>one</li><li>two</li></ol><ul><li>bullet</li></ul>`))
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, BlockListItem, blocks[0].Type)
	assert.Equal(t, "1. ", blocks[0].Marker)
	assert.Equal(t, "2. ", blocks[1].Marker)
	assert.Equal(t, "• ", blocks[2].Marker)
	assert.Equal(t, 1, blocks[2].Level)
}

func TestParseXHTML_NestedListLevel(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<ul><li>outer</li><ul><li>inner</li></ul></ul>`))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, 2, blocks[1].Level)
}

func TestParseXHTML_Blockquote(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<blockquote><p>Be water</p></blockquote>`))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockQuote, blocks[0].Type)
	assert.Equal(t, "Be water", blocks[0].PlainText())
}

func TestParseXHTML_PrePreservesNewlines(t *testing.T) {
	blocks, err := ParseXHTML([]byte("<pre>def f():\n    return 1\n</pre>"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockCode, blocks[0].Type)
	assert.Equal(t, "def f():\n    return 1\n", blocks[0].PlainText())
}

func TestParseXHTML_Table(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<table><tr><td>a</td><td>b</td></tr><tr><td>c</td><td>d</td></tr></table>`))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, BlockTable, blocks[0].Type)
	assert.Equal(t, "a  b\nc  d", blocks[0].PlainText())
}

func TestParseXHTML_SeparatorAndBreak(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<p>above</p><hr/><p>line one<br/>line two</p>`))
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, BlockSeparator, blocks[1].Type)
	assert.Equal(t, "line one\nline two", blocks[2].PlainText())
}

func TestParseXHTML_SkipsScriptAndStyle(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<style>p{color:red}</style><p>visible</p><script>alert(1)</script>`))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "visible", blocks[0].PlainText())
}

func TestParseXHTML_Image(t *testing.T) {
	blocks, err := ParseXHTML([]byte(`<p>before</p><img src="images/fig1.png" alt="figure"/><p>after</p>`))
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "images/fig1.png", blocks[1].ImageSrc)
	assert.Equal(t, "[figure]", blocks[1].PlainText())
}

func TestParseXHTML_CollapsesWhitespace(t *testing.T) {
	blocks, err := ParseXHTML([]byte("<p>spread   over\n\n   lines</p>"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "spread over lines", blocks[0].PlainText())
}

func TestParseXHTML_EmptyInput(t *testing.T) {
	blocks, err := ParseXHTML(nil)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestMergeSegments(t *testing.T) {
	segs := MergeSegments([]TextSegment{
		{Text: "a"},
		{Text: ""},
		{Text: "b"},
		{Text: "c", Style: Style{Bold: true}},
		{Text: "d", Style: Style{Bold: true}},
	})
	require.Len(t, segs, 2)
	assert.Equal(t, "ab", segs[0].Text)
	assert.Equal(t, "cd", segs[1].Text)
}
