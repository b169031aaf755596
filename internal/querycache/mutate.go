package querycache

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"todoclient/internal/logging"
	"todoclient/internal/models"
	"todoclient/internal/notify"
)

// MutationKind names an optimistic mutation
type MutationKind string

const (
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
	MutationToggle MutationKind = "toggle"
)

// undo remembers the mutated todo as it was and where it sat. Success discards it, failure puts the todo back.
type undo struct {
	key   models.QueryKey
	part  *partition
	gen   uint64
	kind  MutationKind
	found bool
	prev  models.Todo
	page  int
	index int
	// next is the ID that followed prev on its page, used to find its slot again after a delete
	next string
}

// begin records the todo's current state and applies edit to the key's pages in place
func (c *Cache) begin(key models.QueryKey, kind MutationKind, id string, edit func([]models.Page)) *undo {
	c.mu.Lock()
	p, ok := c.parts[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	u := &undo{key: key, part: p, gen: p.gen, kind: kind}
	for i, pg := range p.pages {
		for j, t := range pg.Items {
			if t.ID != id {
				continue
			}
			u.found, u.prev, u.page, u.index = true, t.Clone(), i, j
			if j+1 < len(pg.Items) {
				u.next = pg.Items[j+1].ID
			}
		}
	}
	edit(p.pages)
	c.mu.Unlock()

	c.emit(key)
	return u
}

// rollback puts the mutated todo back and leaves the rest of the partition alone, so pages fetched
// and todos created or reconciled meanwhile survive. If the key was invalidated, reloaded or
// abandoned since begin, its pages already hold server truth and nothing is restored.
func (c *Cache) rollback(u *undo) {
	if u == nil {
		return
	}

	c.mu.Lock()
	p := u.part
	current := c.parts[u.key] == p
	if current && p.gen == u.gen && u.found {
		if u.kind == MutationDelete {
			restoreInPages(p.pages, u)
		} else {
			prev := u.prev
			replaceInPages(p.pages, prev.ID, func(t *models.Todo) { *t = prev.Clone() })
		}
	}
	c.mu.Unlock()
	if current {
		c.emit(u.key)
	}
}

// reconcile applies the server's outcome to the key's current pages
func (c *Cache) reconcile(key models.QueryKey, edit func([]models.Page)) {
	c.mu.Lock()
	p, ok := c.parts[key]
	if ok {
		edit(p.pages)
	}
	c.mu.Unlock()
	if ok {
		c.emit(key)
	}
}

// Update edits a todo optimistically
func (c *Cache) Update(ctx context.Context, key models.QueryKey, id string, patch models.UpdateTodoRequest) (*models.Todo, error) {
	return c.mutate(ctx, key, MutationUpdate, id, func(pages []models.Page) {
		replaceInPages(pages, id, func(t *models.Todo) { t.Apply(patch) })
	}, func(ctx context.Context) (*models.Todo, error) {
		return c.api.Update(ctx, id, patch)
	})
}

// Toggle sets a todo's completion optimistically
func (c *Cache) Toggle(ctx context.Context, key models.QueryKey, id string, completed bool) (*models.Todo, error) {
	return c.mutate(ctx, key, MutationToggle, id, func(pages []models.Page) {
		replaceInPages(pages, id, func(t *models.Todo) { t.Completed = completed })
	}, func(ctx context.Context) (*models.Todo, error) {
		return c.api.Toggle(ctx, id, completed)
	})
}

// Delete removes a todo optimistically
func (c *Cache) Delete(ctx context.Context, key models.QueryKey, id string) error {
	_, err := c.mutate(ctx, key, MutationDelete, id, func(pages []models.Page) {
		removeFromPages(pages, id)
	}, func(ctx context.Context) (*models.Todo, error) {
		return nil, c.api.Delete(ctx, id)
	})
	return err
}

func (c *Cache) mutate(
	ctx context.Context,
	key models.QueryKey,
	kind MutationKind,
	id string,
	edit func([]models.Page),
	call func(context.Context) (*models.Todo, error),
) (*models.Todo, error) {
	log := logging.Component("cache").WithFields(logrus.Fields{"mutation": kind, "todo_id": id})

	u := c.begin(key, kind, id, edit)
	todo, err := call(ctx)
	if err != nil {
		c.rollback(u)
		log.WithError(err).Warn("Mutation failed, rolled back")
		notify.Error(c.notifier, "Error", failureMessage(kind))
		return nil, err
	}

	c.reconcile(key, func(pages []models.Page) {
		switch {
		case kind == MutationDelete:
			removeFromPages(pages, id)
		case todo != nil:
			server := *todo
			replaceInPages(pages, id, func(t *models.Todo) { *t = server.Clone() })
		}
	})
	c.InvalidateResource(key.Resource, key)
	if shiftsOffsets(kind, key) {
		if err := c.Reload(ctx, key); err != nil && !errors.Is(err, ErrStale) {
			log.WithError(err).Warn("Reload after mutation failed")
		}
	}

	log.Debug("Mutation applied")
	if msg := successMessage(kind); msg != "" {
		notify.Success(c.notifier, "Success", msg)
	}
	return todo, nil
}

// Create adds a todo once the server confirms it; it is inserted at the head of the first page
func (c *Cache) Create(ctx context.Context, key models.QueryKey, input models.CreateTodoRequest) (*models.Todo, error) {
	c.mu.Lock()
	c.creating++
	c.mu.Unlock()
	c.emit(key)

	todo, err := c.api.Create(ctx, input)

	c.mu.Lock()
	c.creating--
	if err == nil {
		if p, ok := c.parts[key]; ok && len(p.pages) > 0 {
			first := &p.pages[0]
			first.Items = append([]models.Todo{todo.Clone()}, first.Items...)
			for i := range p.pages {
				p.pages[i].Total++
			}
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.emit(key)
		logging.Component("cache").WithError(err).Warn("Create failed")
		notify.Error(c.notifier, "Error", "Failed to create todo")
		return nil, err
	}

	c.emit(key)
	c.InvalidateResource(key.Resource, key)
	if err := c.Reload(ctx, key); err != nil && !errors.Is(err, ErrStale) {
		logging.Component("cache").WithError(err).Warn("Reload after create failed")
	}
	notify.Success(c.notifier, "Success", "Todo created successfully")
	return todo, nil
}

// shiftsOffsets reports whether a confirmed mutation moves todos across the server's page
// boundaries for key, which leaves the cached page cursor pointing at the wrong offset
func shiftsOffsets(kind MutationKind, key models.QueryKey) bool {
	if kind == MutationDelete {
		return true
	}
	return key.Search != "" || key.Filter.Status != models.StatusAll
}

func failureMessage(kind MutationKind) string {
	switch kind {
	case MutationUpdate:
		return "Failed to update todo"
	case MutationDelete:
		return "Failed to delete todo"
	default:
		return "Failed to toggle todo"
	}
}

func successMessage(kind MutationKind) string {
	switch kind {
	case MutationUpdate:
		return "Todo updated successfully"
	case MutationDelete:
		return "Todo deleted successfully"
	default:
		return ""
	}
}

func replaceInPages(pages []models.Page, id string, fn func(*models.Todo)) {
	for i := range pages {
		for j := range pages[i].Items {
			if pages[i].Items[j].ID == id {
				fn(&pages[i].Items[j])
			}
		}
	}
}

func removeFromPages(pages []models.Page, id string) {
	for i := range pages {
		items := pages[i].Items
		if items == nil {
			continue
		}
		kept := make([]models.Todo, 0, len(items))
		for _, t := range items {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		pages[i].Items = kept
	}
}

// restoreInPages reinserts a deleted todo ahead of its old successor, or at its old index when the
// successor is gone too
func restoreInPages(pages []models.Page, u *undo) {
	for i := range pages {
		for _, t := range pages[i].Items {
			if t.ID == u.prev.ID {
				return
			}
		}
	}
	if u.page >= len(pages) {
		return
	}
	pg := &pages[u.page]
	at := min(u.index, len(pg.Items))
	if u.next != "" {
		for j, t := range pg.Items {
			if t.ID == u.next {
				at = j
				break
			}
		}
	}
	items := make([]models.Todo, 0, len(pg.Items)+1)
	items = append(items, pg.Items[:at]...)
	items = append(items, u.prev.Clone())
	items = append(items, pg.Items[at:]...)
	pg.Items = items
}
