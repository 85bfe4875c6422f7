package toaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToaster_PolledExpiry(t *testing.T) {
	m := New()
	assert.False(t, m.Visible())

	m = m.Show("Copied 3 lines", StyleInfo, 2*time.Second)
	assert.True(t, m.Visible())

	// Before the deadline the tick is a no-op.
	m = m.Tick(time.Now())
	assert.True(t, m.Visible())

	// After the deadline the message clears.
	m = m.Tick(time.Now().Add(3 * time.Second))
	assert.False(t, m.Visible())
	assert.Empty(t, m.View())
}

func TestToaster_NewMessageReplacesDeadline(t *testing.T) {
	m := New().Show("first", StyleInfo, time.Second)
	m = m.Show("second", StyleError, 10*time.Second)

	// The first toast's deadline no longer applies.
	m = m.Tick(time.Now().Add(2 * time.Second))
	assert.True(t, m.Visible())
	assert.Contains(t, m.View(), "second")
}
