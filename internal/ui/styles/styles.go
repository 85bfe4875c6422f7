// Package styles contains Lip Gloss style definitions for the reader.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/folioterm/folio/internal/content"
)

// Color tokens. Adaptive pairs pick the light or dark value from terminal
// background detection; SetTheme can force one side.
var (
	TextColor      = lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#d0d0d0"}
	HeadingColor   = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}
	QuoteColor     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}
	CodeColor      = lipgloss.AdaptiveColor{Light: "#7a3e9d", Dark: "#c792ea"}
	SeparatorColor = lipgloss.AdaptiveColor{Light: "#bbbbbb", Dark: "#444444"}
	ImageColor     = lipgloss.AdaptiveColor{Light: "#2266aa", Dark: "#6699cc"}
	StatusBarBg    = lipgloss.AdaptiveColor{Light: "#dddddd", Dark: "#2a2a2a"}
	StatusBarFg    = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#bbbbbb"}
	SelectionBg    = lipgloss.AdaptiveColor{Light: "#b3d4fc", Dark: "#264f78"}

	ToastBorderColor      = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#10B981"}
	ToastBorderErrorColor = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#EF4444"}
)

// Text styles rebuilt by SetTheme.
var (
	Text      = lipgloss.NewStyle().Foreground(TextColor)
	Bold      = lipgloss.NewStyle().Foreground(TextColor).Bold(true)
	Italic    = lipgloss.NewStyle().Foreground(TextColor).Italic(true)
	Underline = lipgloss.NewStyle().Foreground(TextColor).Underline(true)
	Code      = lipgloss.NewStyle().Foreground(CodeColor)
	Heading   = lipgloss.NewStyle().Foreground(HeadingColor).Bold(true)
	Quote     = lipgloss.NewStyle().Foreground(QuoteColor).Italic(true)
	Separator = lipgloss.NewStyle().Foreground(SeparatorColor)
	Image     = lipgloss.NewStyle().Foreground(ImageColor)
	StatusBar = lipgloss.NewStyle().Background(StatusBarBg).Foreground(StatusBarFg)
	Selected  = lipgloss.NewStyle().Background(SelectionBg)
)

// SetTheme forces light or dark rendering. An empty theme keeps terminal
// detection.
func SetTheme(theme string) {
	switch theme {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}

// Segment returns the style for a text segment, layered onto the block's
// base style.
func Segment(seg content.TextSegment, blockType content.BlockType) lipgloss.Style {
	base := Block(blockType)
	if seg.Style.Code {
		base = base.Foreground(CodeColor)
	}
	if seg.Style.Bold {
		base = base.Bold(true)
	}
	if seg.Style.Italic {
		base = base.Italic(true)
	}
	if seg.Style.Underline {
		base = base.Underline(true)
	}
	return base
}

// Block returns the base style for a block type.
func Block(t content.BlockType) lipgloss.Style {
	switch t {
	case content.BlockHeading:
		return Heading
	case content.BlockQuote:
		return Quote
	case content.BlockCode:
		return Code
	case content.BlockSeparator:
		return Separator
	default:
		return Text
	}
}
