// Package todos binds search and filter input to the page cache: the active query of a todo list screen.
package todos

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"todoclient/internal/debounce"
	"todoclient/internal/logging"
	"todoclient/internal/models"
	"todoclient/internal/querycache"
)

type query struct {
	search string
	filter models.Filter
}

// Controller owns the active query key. Search and filter changes are debounced; when the
// window passes the new key becomes active, the old key is abandoned and page 1 is loaded.
type Controller struct {
	ctx       context.Context
	cache     *querycache.Cache
	debouncer *debounce.Debouncer[query]

	mu     sync.Mutex
	active models.QueryKey
	input  query

	onActivate func(models.QueryKey)
}

// Option configures a Controller
type Option func(*Controller)

// OnActivate is called after a new key becomes active and its first page was requested
func OnActivate(fn func(models.QueryKey)) Option {
	return func(c *Controller) { c.onActivate = fn }
}

// NewController creates a controller whose background loads run under ctx
func NewController(ctx context.Context, cache *querycache.Cache, delay time.Duration, opts ...Option) *Controller {
	c := &Controller{
		ctx:    ctx,
		cache:  cache,
		active: models.NewQueryKey("", models.Filter{}),
		input:  query{filter: models.Filter{Status: models.StatusAll}},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debouncer = debounce.New(delay, c.activate)
	return c
}

// Key is the active query key
func (c *Controller) Key() models.QueryKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Search is the latest search input, which may not be active yet
func (c *Controller) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.search
}

// Filter is the latest filter input
func (c *Controller) Filter() models.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.filter
}

// SetSearch records search input and schedules activation
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.input.search = text
	q := c.input
	c.mu.Unlock()
	c.debouncer.Trigger(q)
}

// SetFilter records filter input and schedules activation
func (c *Controller) SetFilter(f models.Filter) {
	c.mu.Lock()
	c.input.filter = f
	q := c.input
	c.mu.Unlock()
	c.debouncer.Trigger(q)
}

// Flush activates pending input immediately
func (c *Controller) Flush() {
	c.debouncer.Flush()
}

// Pending reports whether input is waiting for the debounce window
func (c *Controller) Pending() bool {
	return c.debouncer.Pending()
}

func (c *Controller) activate(q query) {
	key := models.NewQueryKey(q.search, q.filter)

	c.mu.Lock()
	old := c.active
	if key == old {
		c.mu.Unlock()
		return
	}
	c.active = key
	c.mu.Unlock()

	c.cache.Abandon(old)
	logging.Component("todos").WithFields(logrus.Fields{"search": key.Search, "status": key.Filter.Status, "date": key.Filter.Date}).Debug("Query activated")

	if err := c.cache.Load(c.ctx, key); err != nil && !errors.Is(err, querycache.ErrStale) {
		logging.Component("todos").WithError(err).Warn("Initial page load failed")
	}
	if c.onActivate != nil {
		c.onActivate(key)
	}
}

// Load fetches the first page of the active key if needed
func (c *Controller) Load(ctx context.Context) error {
	return c.cache.Load(ctx, c.Key())
}

// View is the merged list of the active key
func (c *Controller) View() querycache.ListView {
	return c.cache.View(c.Key())
}

// FetchNextPage loads the next page of the active key. Exhaustion and stale results are not errors here.
func (c *Controller) FetchNextPage(ctx context.Context) error {
	_, err := c.cache.FetchNextPage(ctx, c.Key())
	if errors.Is(err, querycache.ErrNoMorePages) || errors.Is(err, querycache.ErrStale) {
		return nil
	}
	return err
}

// Refresh drops the active key's pages and reloads page 1
func (c *Controller) Refresh(ctx context.Context) error {
	key := c.Key()
	c.cache.Invalidate(key)
	return c.cache.Load(ctx, key)
}

// Create adds a todo to the active list
func (c *Controller) Create(ctx context.Context, input models.CreateTodoRequest) (*models.Todo, error) {
	return c.cache.Create(ctx, c.Key(), input)
}

// Update edits a todo in the active list
func (c *Controller) Update(ctx context.Context, id string, patch models.UpdateTodoRequest) (*models.Todo, error) {
	return c.cache.Update(ctx, c.Key(), id, patch)
}

// Delete removes a todo from the active list
func (c *Controller) Delete(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, c.Key(), id)
}

// Toggle flips a todo's completion in the active list
func (c *Controller) Toggle(ctx context.Context, id string, completed bool) (*models.Todo, error) {
	return c.cache.Toggle(ctx, c.Key(), id, completed)
}

// Close stops pending activations
func (c *Controller) Close() {
	c.debouncer.Stop()
}
