package render

import (
	"sort"

	"todoclient/internal/models"
	"todoclient/internal/querycache"
)

// DefaultOverscan is how many rows are rendered beyond each edge of the viewport
const DefaultOverscan = 5

// Breakpoint maps a minimum viewport width to a column count
type Breakpoint struct {
	MinWidth int
	Columns  int
}

// DefaultBreakpoints mirror a one/three/four column responsive grid
var DefaultBreakpoints = []Breakpoint{
	{MinWidth: 0, Columns: 1},
	{MinWidth: 768, Columns: 3},
	{MinWidth: 1024, Columns: 4},
}

// ColumnsFor returns the column count of the widest breakpoint that fits width
func ColumnsFor(width int, breakpoints []Breakpoint) int {
	cols := 1
	best := -1
	for _, bp := range breakpoints {
		if width >= bp.MinWidth && bp.MinWidth > best && bp.Columns > 0 {
			best = bp.MinWidth
			cols = bp.Columns
		}
	}
	return cols
}

// VirtualRow is one rendered row of a windowed grid
type VirtualRow struct {
	Index int
	Start int // offset from the top of the full list
	Size  int
	First int // index of the first item in the row
	Last  int // one past the last item
}

// VirtualizerOptions configure a Virtualizer
type VirtualizerOptions struct {
	Estimate    int // row height used until a row is measured
	Gap         int
	Overscan    int
	Breakpoints []Breakpoint
}

// Virtualizer computes the visible row range of a grid and its total scrollable size
type Virtualizer struct {
	estimate    int
	gap         int
	overscan    int
	breakpoints []Breakpoint

	count   int
	width   int
	height  int
	offset  int
	columns int

	measured map[int]int
	starts   []int
	dirty    bool
}

// NewVirtualizer creates an empty virtualizer
func NewVirtualizer(opts VirtualizerOptions) *Virtualizer {
	if opts.Estimate <= 0 {
		opts.Estimate = 1
	}
	if opts.Overscan < 0 {
		opts.Overscan = 0
	}
	if len(opts.Breakpoints) == 0 {
		opts.Breakpoints = DefaultBreakpoints
	}
	return &Virtualizer{
		estimate:    opts.Estimate,
		gap:         opts.Gap,
		overscan:    opts.Overscan,
		breakpoints: opts.Breakpoints,
		columns:     ColumnsFor(0, opts.Breakpoints),
		measured:    make(map[int]int),
		dirty:       true,
	}
}

// SetCount updates the item count
func (v *Virtualizer) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	if n != v.count {
		v.count = n
		v.dirty = true
	}
}

// SetViewport updates the viewport size; a column change drops row measurements
func (v *Virtualizer) SetViewport(width, height int) {
	v.width, v.height = width, height
	if cols := ColumnsFor(width, v.breakpoints); cols != v.columns {
		v.columns = cols
		v.measured = make(map[int]int)
		v.dirty = true
	}
	v.clamp()
}

// ScrollTo sets the scroll offset, clamped to the scrollable range
func (v *Virtualizer) ScrollTo(offset int) {
	v.offset = offset
	v.clamp()
}

// ScrollBy moves the scroll offset
func (v *Virtualizer) ScrollBy(delta int) {
	v.ScrollTo(v.offset + delta)
}

// Measure records a row's real height in place of the estimate
func (v *Virtualizer) Measure(row, size int) {
	if row < 0 || size <= 0 {
		return
	}
	if v.measured[row] != size {
		v.measured[row] = size
		v.dirty = true
	}
}

// Columns is the current column count
func (v *Virtualizer) Columns() int { return v.columns }

// RowCount is ceil(count/columns)
func (v *Virtualizer) RowCount() int {
	return (v.count + v.columns - 1) / v.columns
}

// Offset is the current scroll offset
func (v *Virtualizer) Offset() int { return v.offset }

// Viewport returns the viewport size
func (v *Virtualizer) Viewport() (width, height int) { return v.width, v.height }

func (v *Virtualizer) rowSize(row int) int {
	if h, ok := v.measured[row]; ok {
		return h
	}
	return v.estimate
}

func (v *Virtualizer) layout() {
	if !v.dirty {
		return
	}
	rows := v.RowCount()
	v.starts = make([]int, rows)
	pos := 0
	for i := 0; i < rows; i++ {
		v.starts[i] = pos
		pos += v.rowSize(i) + v.gap
	}
	v.dirty = false
}

// TotalSize is the height of the whole list: every row, measured or estimated, plus gaps
func (v *Virtualizer) TotalSize() int {
	v.layout()
	rows := len(v.starts)
	if rows == 0 {
		return 0
	}
	return v.starts[rows-1] + v.rowSize(rows-1)
}

func (v *Virtualizer) clamp() {
	maxOffset := v.TotalSize() - v.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.offset > maxOffset {
		v.offset = maxOffset
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// Range returns the first and last row (inclusive) to render, overscan included.
// ok is false when there is nothing to render.
func (v *Virtualizer) Range() (first, last int, ok bool) {
	v.layout()
	rows := len(v.starts)
	if rows == 0 {
		return 0, 0, false
	}

	top := v.offset
	bottom := v.offset + max(v.height, 1)

	// first row whose bottom edge is below the top of the viewport
	first = sort.Search(rows, func(i int) bool { return v.starts[i]+v.rowSize(i) > top })
	// last row whose top edge is above the bottom of the viewport
	last = sort.Search(rows, func(i int) bool { return v.starts[i] >= bottom }) - 1
	if first >= rows {
		first = rows - 1
	}
	if last < first {
		last = first
	}

	first = max(first-v.overscan, 0)
	last = min(last+v.overscan, rows-1)
	return first, last, true
}

// Rows returns the rows to render with their offsets and item spans
func (v *Virtualizer) Rows() []VirtualRow {
	first, last, ok := v.Range()
	if !ok {
		return nil
	}

	out := make([]VirtualRow, 0, last-first+1)
	for i := first; i <= last; i++ {
		start := i * v.columns
		out = append(out, VirtualRow{
			Index: i,
			Start: v.starts[i],
			Size:  v.rowSize(i),
			First: start,
			Last:  min(start+v.columns, v.count),
		})
	}
	return out
}

// WindowRow is a rendered row with its items
type WindowRow struct {
	VirtualRow
	Items []models.Todo
}

// Window is one render of the windowed list
type Window struct {
	Rows      []WindowRow
	TotalSize int
	Offset    int
	Columns   int
	Fetching  bool
}

// WindowList drives a Virtualizer from a list view and fetches when the last rendered row nears the end
type WindowList struct {
	virt     *Virtualizer
	advancer *Advancer
}

// NewWindowList creates the renderer; fetch is called to load the next page
func NewWindowList(virt *Virtualizer, fetch func()) *WindowList {
	return &WindowList{virt: virt, advancer: NewAdvancer(fetch)}
}

// Virtualizer exposes the layout for scrolling and measuring
func (w *WindowList) Virtualizer() *Virtualizer { return w.virt }

// Sync lays out the view. It reports whether a next-page fetch was requested.
func (w *WindowList) Sync(v querycache.ListView) (Window, bool) {
	w.virt.SetCount(len(v.Todos))
	w.virt.clamp()

	rows := w.virt.Rows()
	win := Window{
		Rows:      make([]WindowRow, 0, len(rows)),
		TotalSize: w.virt.TotalSize(),
		Offset:    w.virt.Offset(),
		Columns:   w.virt.Columns(),
		Fetching:  v.IsFetchingNextPage,
	}
	for _, r := range rows {
		win.Rows = append(win.Rows, WindowRow{VirtualRow: r, Items: v.Todos[r.First:r.Last]})
	}

	if len(rows) == 0 || v.Err != nil {
		return win, false
	}
	pos := RowPosition{LastRow: rows[len(rows)-1].Index, RowCount: w.virt.RowCount(), Margin: 1}
	fetched := w.advancer.Advance(pos, v.HasNextPage, v.IsFetchingNextPage || v.IsLoading)
	return win, fetched
}
