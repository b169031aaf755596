// Package render computes what a list host should draw and when it should ask for more data.
package render

// SentinelThreshold is the visible fraction at which the trailing sentinel counts as seen
const SentinelThreshold = 0.1

// Position tells whether the viewer has reached the end of the loaded list
type Position interface {
	NearEnd() bool
}

// SentinelPosition is a trailing marker below the last item, observed by visible ratio
type SentinelPosition struct {
	Ratio     float64
	Threshold float64 // zero means SentinelThreshold
}

// NearEnd reports whether enough of the sentinel is visible
func (p SentinelPosition) NearEnd() bool {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = SentinelThreshold
	}
	return p.Ratio >= threshold
}

// RowPosition is the last rendered row of a windowed list
type RowPosition struct {
	LastRow  int
	RowCount int
	Margin   int // rows before the end that still count as near it
}

// NearEnd reports whether the last rendered row is within Margin rows of the end
func (p RowPosition) NearEnd() bool {
	if p.RowCount == 0 {
		return false
	}
	return p.LastRow >= p.RowCount-1-p.Margin
}

// ShouldAdvance is the guard shared by every renderer: near the end, more data exists, nothing in flight
func ShouldAdvance(pos Position, hasNext, fetching bool) bool {
	return hasNext && !fetching && pos.NearEnd()
}

// Advancer requests the next page when ShouldAdvance holds
type Advancer struct {
	fetch func()
}

// NewAdvancer wraps the fetch callback
func NewAdvancer(fetch func()) *Advancer {
	return &Advancer{fetch: fetch}
}

// Advance calls fetch and returns true when the guard holds
func (a *Advancer) Advance(pos Position, hasNext, fetching bool) bool {
	if !ShouldAdvance(pos, hasNext, fetching) {
		return false
	}
	if a.fetch != nil {
		a.fetch()
	}
	return true
}
