package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/models"
	"todoclient/internal/querycache"
)

func todos(n int) []models.Todo {
	out := make([]models.Todo, n)
	for i := range out {
		out[i] = models.Todo{ID: fmt.Sprint(i + 1)}
	}
	return out
}

func TestShouldAdvance(t *testing.T) {
	tests := []struct {
		name     string
		pos      Position
		hasNext  bool
		fetching bool
		want     bool
	}{
		{"sentinel visible", SentinelPosition{Ratio: 0.1}, true, false, true},
		{"sentinel barely hidden", SentinelPosition{Ratio: 0.09}, true, false, false},
		{"no next page", SentinelPosition{Ratio: 1}, false, false, false},
		{"already fetching", SentinelPosition{Ratio: 1}, true, true, false},
		{"row within margin", RowPosition{LastRow: 8, RowCount: 10, Margin: 1}, true, false, true},
		{"row before margin", RowPosition{LastRow: 7, RowCount: 10, Margin: 1}, true, false, false},
		{"no rows", RowPosition{}, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAdvance(tt.pos, tt.hasNext, tt.fetching))
		})
	}
}

func TestAppendListFrame(t *testing.T) {
	a := NewAppendList(nil)

	t.Run("loading shows skeletons", func(t *testing.T) {
		f := a.Frame(querycache.ListView{IsLoading: true})
		assert.Equal(t, StateLoading, f.State)
		assert.Equal(t, 12, f.Skeletons)
	})

	t.Run("search with no results differs from empty", func(t *testing.T) {
		search := a.Frame(querycache.ListView{Key: models.NewQueryKey(" cat ", models.Filter{}), PagesLoaded: 1})
		assert.Equal(t, StateNoResults, search.State)
		assert.Equal(t, "No todos found for the search term 'cat'.", search.Message)

		empty := a.Frame(querycache.ListView{Key: models.NewQueryKey("", models.Filter{}), PagesLoaded: 1})
		assert.Equal(t, StateEmpty, empty.State)
		assert.NotEqual(t, search.Message, empty.Message)
	})

	t.Run("filter with no results", func(t *testing.T) {
		f := a.Frame(querycache.ListView{Key: models.NewQueryKey("", models.Filter{Status: models.StatusCompleted}), PagesLoaded: 1})
		assert.Equal(t, StateNoResults, f.State)
	})

	t.Run("first page failure", func(t *testing.T) {
		f := a.Frame(querycache.ListView{Err: errors.New("down")})
		assert.Equal(t, StateError, f.State)
		assert.True(t, f.Retry)
	})

	t.Run("items with spinner and retry", func(t *testing.T) {
		f := a.Frame(querycache.ListView{Todos: todos(3), PagesLoaded: 1, IsFetchingNextPage: true})
		assert.Equal(t, StateItems, f.State)
		assert.True(t, f.Spinner)
		assert.False(t, f.Retry)

		f = a.Frame(querycache.ListView{Todos: todos(3), PagesLoaded: 1, Err: errors.New("page 2 failed")})
		assert.True(t, f.Retry)
	})
}

func TestAppendListSentinel(t *testing.T) {
	var calls int
	a := NewAppendList(func() { calls++ })
	v := querycache.ListView{Todos: todos(20), PagesLoaded: 1, HasNextPage: true}

	assert.False(t, a.OnSentinel(0, v))
	assert.True(t, a.OnSentinel(0.5, v))

	v.IsFetchingNextPage = true
	assert.False(t, a.OnSentinel(1, v))

	v.IsFetchingNextPage = false
	v.HasNextPage = false
	assert.False(t, a.OnSentinel(1, v))

	assert.Equal(t, 1, calls)
}

func TestColumnsFor(t *testing.T) {
	assert.Equal(t, 1, ColumnsFor(320, DefaultBreakpoints))
	assert.Equal(t, 3, ColumnsFor(768, DefaultBreakpoints))
	assert.Equal(t, 3, ColumnsFor(1023, DefaultBreakpoints))
	assert.Equal(t, 4, ColumnsFor(1440, DefaultBreakpoints))
}

func TestVirtualizer(t *testing.T) {
	newVirt := func() *Virtualizer {
		v := NewVirtualizer(VirtualizerOptions{Estimate: 100, Gap: 10, Overscan: 2})
		v.SetViewport(1024, 300)
		return v
	}

	t.Run("rows are ceil of items over columns", func(t *testing.T) {
		v := newVirt()
		v.SetCount(10)
		assert.Equal(t, 4, v.Columns())
		assert.Equal(t, 3, v.RowCount())
	})

	t.Run("total size uses estimates and gaps", func(t *testing.T) {
		v := newVirt()
		v.SetCount(40) // 10 rows
		assert.Equal(t, 10*100+9*10, v.TotalSize())
	})

	t.Run("measured rows replace the estimate", func(t *testing.T) {
		v := newVirt()
		v.SetCount(40)
		v.Measure(0, 150)
		v.Measure(3, 80)
		assert.Equal(t, 10*100+9*10+50-20, v.TotalSize())

		rows := v.Rows()
		require.NotEmpty(t, rows)
		assert.Equal(t, 0, rows[0].Start)
		assert.Equal(t, 160, rows[1].Start)
	})

	t.Run("range covers the viewport plus overscan", func(t *testing.T) {
		v := newVirt()
		v.SetCount(400)  // 100 rows of 110px pitch
		v.ScrollTo(1100) // row 10 at the top

		first, last, ok := v.Range()
		require.True(t, ok)
		assert.Equal(t, 8, first)
		assert.Equal(t, 14, last) // rows 10..12 visible
	})

	t.Run("scroll is clamped", func(t *testing.T) {
		v := newVirt()
		v.SetCount(8) // 2 rows, 210px
		v.ScrollTo(5000)
		assert.Equal(t, 0, v.Offset())

		v.SetCount(400)
		v.ScrollTo(1 << 20)
		assert.Equal(t, v.TotalSize()-300, v.Offset())
	})

	t.Run("item spans", func(t *testing.T) {
		v := newVirt()
		v.SetCount(6)
		rows := v.Rows()
		require.Len(t, rows, 2)
		assert.Equal(t, 0, rows[0].First)
		assert.Equal(t, 4, rows[0].Last)
		assert.Equal(t, 4, rows[1].First)
		assert.Equal(t, 6, rows[1].Last)
	})

	t.Run("column change drops measurements", func(t *testing.T) {
		v := newVirt()
		v.SetCount(8)
		v.Measure(0, 500)
		v.SetViewport(500, 300)
		assert.Equal(t, 1, v.Columns())
		assert.Equal(t, 8*100+7*10, v.TotalSize())
	})

	t.Run("empty list renders nothing", func(t *testing.T) {
		v := newVirt()
		_, _, ok := v.Range()
		assert.False(t, ok)
		assert.Nil(t, v.Rows())
		assert.Zero(t, v.TotalSize())
	})
}

func TestWindowList(t *testing.T) {
	t.Run("fetches when the last rendered row is near the end", func(t *testing.T) {
		var calls int
		virt := NewVirtualizer(VirtualizerOptions{Estimate: 1, Overscan: 5})
		virt.SetViewport(80, 10)
		w := NewWindowList(virt, func() { calls++ })

		view := querycache.ListView{Todos: todos(20), PagesLoaded: 1, HasNextPage: true}
		win, fetched := w.Sync(view)
		assert.False(t, fetched)
		assert.Len(t, win.Rows, 15)
		assert.Equal(t, 20, win.TotalSize)

		virt.ScrollTo(10)
		_, fetched = w.Sync(view)
		assert.True(t, fetched)

		view.IsFetchingNextPage = true
		_, fetched = w.Sync(view)
		assert.False(t, fetched)
		assert.Equal(t, 1, calls)
	})

	t.Run("rows carry their items", func(t *testing.T) {
		virt := NewVirtualizer(VirtualizerOptions{Estimate: 3})
		virt.SetViewport(800, 30)
		w := NewWindowList(virt, nil)

		win, _ := w.Sync(querycache.ListView{Todos: todos(5), PagesLoaded: 1})
		require.Len(t, win.Rows, 2)
		assert.Equal(t, 3, win.Columns)
		assert.Equal(t, []string{"4", "5"}, []string{win.Rows[1].Items[0].ID, win.Rows[1].Items[1].ID})
	})
}
