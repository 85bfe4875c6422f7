// Package toaster provides a transient notification overlay. Expiry is
// polled by the render loop rather than timer-driven: overlapping toasts
// would otherwise race to cancel each other's timers.
package toaster

import (
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/folioterm/folio/internal/ui/styles"
)

// Style determines the visual appearance of the toast.
type Style int

const (
	// StyleInfo shows a neutral bordered message.
	StyleInfo Style = iota
	// StyleError shows a red-bordered message.
	StyleError
)

// Model holds the toaster state.
type Model struct {
	message   string
	style     Style
	expiresAt time.Time
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays a toast for the given duration. Showing a new toast simply
// replaces the previous message and deadline.
func (m Model) Show(message string, style Style, d time.Duration) Model {
	m.message = message
	m.style = style
	m.expiresAt = time.Now().Add(d)
	return m
}

// Tick clears the toast if its deadline has passed. Call once per frame.
func (m Model) Tick(now time.Time) Model {
	if m.message != "" && now.After(m.expiresAt) {
		m.message = ""
	}
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool {
	return m.message != ""
}

// View renders the toast box.
func (m Model) View() string {
	if m.message == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	if m.style == StyleError {
		style = style.BorderForeground(styles.ToastBorderErrorColor)
	} else {
		style = style.BorderForeground(styles.ToastBorderColor)
	}

	return style.Render(m.message)
}
