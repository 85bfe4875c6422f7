package textmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVisibleWidth(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"ascii", "hello", 5},
		{"empty", "", 0},
		{"cjk", "世界", 4},
		{"emoji", "😀", 2},
		{"ansi styled", "\x1b[1mhi\x1b[0m", 2},
		{"combining accent", "é", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VisibleWidth(tt.in))
		})
	}
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "hello", StripANSI("\x1b[31mhello\x1b[0m"))
	assert.Equal(t, "plain", StripANSI("plain"))
}

func TestExpandTabs(t *testing.T) {
	assert.Equal(t, "    x", ExpandTabs("\tx", 4))
	assert.Equal(t, "ab  cd", ExpandTabs("ab\tcd", 4))
	assert.Equal(t, "no tabs", ExpandTabs("no tabs", 4))
	// tabstop <= 0 falls back to the default
	assert.Equal(t, "    x", ExpandTabs("\tx", 0))
}

func TestCells_ASCII(t *testing.T) {
	cells := Cells("abc")
	require.Len(t, cells, 3)
	assert.Equal(t, Cell{Cluster: "a", CharStart: 0, CharEnd: 1, DisplayWidth: 1, ScreenX: 0}, cells[0])
	assert.Equal(t, Cell{Cluster: "c", CharStart: 2, CharEnd: 3, DisplayWidth: 1, ScreenX: 2}, cells[2])
}

func TestCells_WideAndCombining(t *testing.T) {
	cells := Cells("a世é")
	require.Len(t, cells, 3)
	assert.Equal(t, "世", cells[1].Cluster)
	assert.Equal(t, 2, cells[1].DisplayWidth)
	assert.Equal(t, 1, cells[1].ScreenX)
	assert.Equal(t, "é", cells[2].Cluster)
	assert.Equal(t, 3, cells[2].ScreenX)
}

func TestCells_StripsANSI(t *testing.T) {
	cells := Cells("\x1b[1mab\x1b[0m")
	require.Len(t, cells, 2)
	assert.Equal(t, "a", cells[0].Cluster)
	assert.Equal(t, 0, cells[0].CharStart)
}

func TestCells_Empty(t *testing.T) {
	assert.Nil(t, Cells(""))
}

// Cell contiguity: every consecutive cell pair is contiguous in both byte
// space and column space, for arbitrary unicode input.
func TestCells_ContiguityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		cells := Cells(s)
		for i := 1; i < len(cells); i++ {
			require.Equal(t, cells[i-1].CharEnd, cells[i].CharStart)
			require.Equal(t, cells[i-1].ScreenX+cells[i-1].DisplayWidth, cells[i].ScreenX)
		}
		if len(cells) > 0 {
			require.Equal(t, 0, cells[0].CharStart)
			require.Equal(t, 0, cells[0].ScreenX)
		}
	})
}

func TestTruncateTo(t *testing.T) {
	assert.Equal(t, "hel", TruncateTo("hello", 3, 0))
	assert.Equal(t, "llo", TruncateTo("hello", 3, 2))
	assert.Equal(t, "", TruncateTo("hello", 0, 0))
	// wide cluster does not get split at the boundary
	assert.Equal(t, "a", TruncateTo("a世", 2, 0))
}

func TestSliceByColumns(t *testing.T) {
	assert.Equal(t, "ell", SliceByColumns("hello", 1, 4))
	assert.Equal(t, "", SliceByColumns("hello", 3, 3))
	// partially-overlapped wide cluster is included
	assert.Equal(t, "世", SliceByColumns("世", 1, 2))
}

func TestClusterWidth(t *testing.T) {
	assert.Equal(t, 0, ClusterWidth(""))
	assert.Equal(t, 1, ClusterWidth("a"))
	assert.Equal(t, 2, ClusterWidth("世"))
	// combining accent does not widen the cluster
	assert.Equal(t, 1, ClusterWidth("é"))
}

func TestGraphemeCount(t *testing.T) {
	assert.Equal(t, 5, GraphemeCount("hello"))
	assert.Equal(t, 1, GraphemeCount("👨‍👩‍👧‍👦"))
}
