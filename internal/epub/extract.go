package epub

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// lineBreakTags start a new logical line during plain-text extraction.
var lineBreakTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
}

// suppressedTags are dropped entirely during extraction.
var suppressedTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// extractLines produces the chapter's plain text as logical lines, one per
// block-level element. It tolerates malformed markup: the tokenizer never
// fails on bad nesting, only on read errors.
func extractLines(data []byte) ([]string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	var lines []string
	var cur strings.Builder
	skipDepth := 0

	flush := func() {
		line := strings.TrimSpace(cur.String())
		cur.Reset()
		if line != "" {
			lines = append(lines, line)
		}
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				flush()
				return lines, nil
			}
			return nil, err

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if suppressedTags[a] {
				// A self-closing suppressed tag has no matching end tag,
				// so it must not open a skip scope.
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if lineBreakTags[a] {
				flush()
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if suppressedTags[a] && skipDepth > 0 {
				skipDepth--
				continue
			}
			if skipDepth == 0 && lineBreakTags[a] {
				flush()
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := collapseSpace(string(tokenizer.Text()))
			if text != "" {
				cur.WriteString(text)
			}
		}
	}
}

// collapseSpace replaces runs of whitespace with a single space, keeping a
// single leading/trailing space so spacing between inline elements survives.
// Returns "" when the input is all whitespace.
func collapseSpace(s string) string {
	var buf strings.Builder
	inSpace := false
	hasContent := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			inSpace = true
		default:
			if inSpace && buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			inSpace = false
			hasContent = true
			buf.WriteRune(r)
		}
	}
	if !hasContent {
		return ""
	}
	if strings.HasPrefix(s, " ") || strings.HasPrefix(s, "\t") || strings.HasPrefix(s, "\n") || strings.HasPrefix(s, "\r") {
		return " " + buf.String() + trailingSpace(s)
	}
	return buf.String() + trailingSpace(s)
}

func trailingSpace(s string) string {
	if strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\t") || strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r") {
		return " "
	}
	return ""
}
