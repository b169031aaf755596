package models

import (
	"errors"
	"strings"
	"time"
)

// Status narrows a todo listing by completion
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// DateLayout is the ISO date format used by the created-on filter
const DateLayout = "2006-01-02"

// ResourceTodos names the todo resource in query keys
const ResourceTodos = "todos"

var (
	ErrInvalidStatus = errors.New("status must be one of: all, completed, pending")
	ErrInvalidDate   = errors.New("date must be an ISO date (YYYY-MM-DD)")
)

// Filter holds the status and created-date predicates of a listing
type Filter struct {
	Status Status `json:"status,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Normalize maps the empty status to StatusAll
func (f Filter) Normalize() Filter {
	if f.Status == "" {
		f.Status = StatusAll
	}
	f.Date = strings.TrimSpace(f.Date)
	return f
}

// Validate checks the filter against the accepted values
func (f Filter) Validate() error {
	switch f.Status {
	case "", StatusAll, StatusCompleted, StatusPending:
	default:
		return ErrInvalidStatus
	}
	if f.Date != "" {
		if _, err := time.Parse(DateLayout, f.Date); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Matches reports whether a todo passes the filter
func (f Filter) Matches(t Todo) bool {
	switch f.Status {
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	case StatusPending:
		if t.Completed {
			return false
		}
	}
	if f.Date != "" && t.CreatedAt.UTC().Format(DateLayout) != f.Date {
		return false
	}
	return true
}

// MatchesSearch reports whether the title contains search, ignoring case
func MatchesSearch(t Todo, search string) bool {
	search = strings.TrimSpace(search)
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), strings.ToLower(search))
}

// QueryKey identifies one independent cache partition. It is comparable and used as a map key.
type QueryKey struct {
	Resource string
	Search   string
	Filter   Filter
}

// NewQueryKey builds a normalized key for the todo resource
func NewQueryKey(search string, filter Filter) QueryKey {
	return QueryKey{
		Resource: ResourceTodos,
		Search:   strings.TrimSpace(search),
		Filter:   filter.Normalize(),
	}
}

// Matches applies the key's search and filter predicates
func (k QueryKey) Matches(t Todo) bool {
	return k.Filter.Matches(t) && MatchesSearch(t, k.Search)
}

// ListParams are the arguments of a single page request
type ListParams struct {
	Page   int
	Limit  int
	Search string
	Filter Filter
}

// Validate enforces page >= 1, limit > 0 and a valid filter
func (p ListParams) Validate() error {
	if p.Page < 1 {
		return errors.New("page must be >= 1")
	}
	if p.Limit <= 0 {
		return errors.New("limit must be > 0")
	}
	return p.Filter.Validate()
}

// Page is one fetched slice of a listing
type Page struct {
	Items  []Todo
	Number int
	Limit  int
	Total  int
}

// PageFromPayload converts a list response into a Page
func PageFromPayload(p TodosPayload) Page {
	items := p.Todos
	if items == nil {
		items = []Todo{}
	}
	return Page{Items: items, Number: p.Pagination.Page, Limit: p.Pagination.Limit, Total: p.Pagination.Total}
}

// TotalPages is ceil(total/limit)
func (p Page) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page after this one exists
func (p Page) HasNext() bool {
	return len(p.Items) > 0 && p.Number < p.TotalPages()
}

// Clone deep-copies the page
func (p Page) Clone() Page {
	if p.Items == nil {
		return p
	}
	items := make([]Todo, len(p.Items))
	for i, t := range p.Items {
		items[i] = t.Clone()
	}
	p.Items = items
	return p
}

// Credential is the client's authentication state
type Credential struct {
	Token           string
	IsAuthenticated bool
	User            *UserProfile
}
