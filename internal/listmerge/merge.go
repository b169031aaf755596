// Package listmerge flattens fetched pages into the single ordered list a renderer consumes.
package listmerge

import "todoclient/internal/models"

// Stats are derived counts over a merged list
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

// Flatten concatenates pages in fetch order. When an id appears more than once the
// later occurrence wins and keeps its later position.
func Flatten(pages []models.Page) []models.Todo {
	n := 0
	for _, p := range pages {
		n += len(p.Items)
	}
	if n == 0 {
		return []models.Todo{}
	}

	all := make([]models.Todo, 0, n)
	for _, p := range pages {
		all = append(all, p.Items...)
	}

	last := make(map[string]int, n)
	for i, t := range all {
		last[t.ID] = i
	}

	out := make([]models.Todo, 0, len(last))
	for i, t := range all {
		if last[t.ID] == i {
			out = append(out, t)
		}
	}
	return out
}

// Apply keeps only the todos that satisfy the key's predicates
func Apply(todos []models.Todo, key models.QueryKey) []models.Todo {
	out := make([]models.Todo, 0, len(todos))
	for _, t := range todos {
		if key.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Merge flattens and filters in one step
func Merge(pages []models.Page, key models.QueryKey) []models.Todo {
	return Apply(Flatten(pages), key)
}

// Count computes stats over todos
func Count(todos []models.Todo) Stats {
	s := Stats{Total: len(todos)}
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
