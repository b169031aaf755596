package render

import (
	"fmt"
	"strings"

	"todoclient/internal/models"
	"todoclient/internal/querycache"
)

// SkeletonCount is how many placeholders the initial loading state shows
const SkeletonCount = 12

// State is what an append list currently shows
type State int

const (
	StateLoading State = iota
	StateError
	StateNoResults
	StateEmpty
	StateItems
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateNoResults:
		return "no-results"
	case StateEmpty:
		return "empty"
	case StateItems:
		return "items"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Frame is one render of the append list
type Frame struct {
	State     State
	Skeletons int
	Title     string
	Message   string
	Items     []models.Todo
	Spinner   bool // next page in flight
	Retry     bool // a later page failed; offer to try again
}

// AppendList renders every loaded item and fetches more when the trailing sentinel shows
type AppendList struct {
	advancer *Advancer
}

// NewAppendList creates the renderer; fetch is called to load the next page
func NewAppendList(fetch func()) *AppendList {
	return &AppendList{advancer: NewAdvancer(fetch)}
}

// Frame derives the render state from the view
func (a *AppendList) Frame(v querycache.ListView) Frame {
	search := strings.TrimSpace(v.Key.Search)

	switch {
	case v.IsLoading:
		return Frame{State: StateLoading, Skeletons: SkeletonCount}
	case len(v.Todos) == 0 && v.Err != nil && v.PagesLoaded == 0:
		return Frame{State: StateError, Title: "Error", Message: "Failed to load todos. Please try again.", Retry: true}
	case len(v.Todos) == 0 && search != "":
		return Frame{
			State:   StateNoResults,
			Title:   "No Todos Found",
			Message: fmt.Sprintf("No todos found for the search term '%s'.", search),
		}
	case len(v.Todos) == 0 && filtered(v.Key.Filter):
		return Frame{State: StateNoResults, Title: "No Todos Found", Message: "No todos match the current filter."}
	case len(v.Todos) == 0:
		return Frame{
			State:   StateEmpty,
			Title:   "No Todos Yet",
			Message: "You haven't created any todos yet. Get started by creating your first todo.",
		}
	}

	return Frame{
		State:   StateItems,
		Items:   v.Todos,
		Spinner: v.IsFetchingNextPage,
		Retry:   v.Err != nil && !v.IsFetchingNextPage,
	}
}

// OnSentinel is called whenever the sentinel's visible ratio changes. It reports whether a fetch was requested.
func (a *AppendList) OnSentinel(ratio float64, v querycache.ListView) bool {
	if v.IsLoading || v.Err != nil {
		return false
	}
	return a.advancer.Advance(SentinelPosition{Ratio: ratio}, v.HasNextPage, v.IsFetchingNextPage)
}

func filtered(f models.Filter) bool {
	f = f.Normalize()
	return f.Status != models.StatusAll || f.Date != ""
}
