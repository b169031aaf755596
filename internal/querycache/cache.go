// Package querycache keeps fetched todo pages per query key and applies optimistic mutations to them.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"todoclient/internal/listmerge"
	"todoclient/internal/logging"
	"todoclient/internal/models"
	"todoclient/internal/notify"
)

var (
	// ErrNoMorePages is returned without a network call once a key is exhausted
	ErrNoMorePages = errors.New("no more pages")
	// ErrStale means the response belonged to an invalidated or abandoned partition and was dropped
	ErrStale = errors.New("stale response discarded")
)

// DefaultPageSize is the limit used when none is configured
const DefaultPageSize = 20

// API is the backend surface the cache drives
type API interface {
	List(ctx context.Context, params models.ListParams) (*models.Page, error)
	Create(ctx context.Context, input models.CreateTodoRequest) (*models.Todo, error)
	Update(ctx context.Context, id string, patch models.UpdateTodoRequest) (*models.Todo, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string, completed bool) (*models.Todo, error)
}

// partition holds the pages of one query key
type partition struct {
	// fetchMu serializes page fetches so page N+1 is requested only after page N is recorded
	fetchMu sync.Mutex

	pages    []models.Page
	gen      uint64
	fetching bool
	err      error
}

func (p *partition) hasNext() bool {
	if len(p.pages) == 0 {
		return true
	}
	return p.pages[len(p.pages)-1].HasNext()
}

func (p *partition) nextPage() int {
	if len(p.pages) == 0 {
		return 1
	}
	return p.pages[len(p.pages)-1].Number + 1
}

// Cache is the page cache. It is safe for concurrent use.
type Cache struct {
	api      API
	limit    int
	notifier notify.Notifier

	mu       sync.Mutex
	parts    map[models.QueryKey]*partition
	creating int

	listenersMu sync.Mutex
	listeners   map[int]func(models.QueryKey)
	nextID      int
}

// Option configures a Cache
type Option func(*Cache)

// WithPageSize sets the page limit
func WithPageSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithNotifier sets where mutation outcomes are reported
func WithNotifier(n notify.Notifier) Option {
	return func(c *Cache) { c.notifier = n }
}

// New creates an empty cache
func New(api API, opts ...Option) *Cache {
	c := &Cache{
		api:       api,
		limit:     DefaultPageSize,
		notifier:  notify.Discard{},
		parts:     make(map[models.QueryKey]*partition),
		listeners: make(map[int]func(models.QueryKey)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSize returns the configured limit
func (c *Cache) PageSize() int { return c.limit }

// Subscribe registers fn for change notifications; the returned func unregisters it
func (c *Cache) Subscribe(fn func(models.QueryKey)) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Cache) emit(key models.QueryKey) {
	c.listenersMu.Lock()
	fns := make([]func(models.QueryKey), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

// partition returns the key's partition, creating it. Caller holds c.mu.
func (c *Cache) partition(key models.QueryKey) *partition {
	p, ok := c.parts[key]
	if !ok {
		p = &partition{}
		c.parts[key] = p
	}
	return p
}

// FetchNextPage fetches the page after the last cached one. It returns ErrNoMorePages,
// without touching the network, once the key is exhausted.
func (c *Cache) FetchNextPage(ctx context.Context, key models.QueryKey) (*models.Page, error) {
	log := logging.Component("cache").WithFields(logrus.Fields{"search": key.Search, "status": key.Filter.Status})

	c.mu.Lock()
	p := c.partition(key)
	c.mu.Unlock()

	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	c.mu.Lock()
	if c.parts[key] != p {
		c.mu.Unlock()
		return nil, ErrStale
	}
	if !p.hasNext() {
		c.mu.Unlock()
		return nil, ErrNoMorePages
	}
	gen := p.gen
	params := models.ListParams{
		Page:   p.nextPage(),
		Limit:  c.limit,
		Search: key.Search,
		Filter: key.Filter,
	}
	p.fetching = true
	c.mu.Unlock()
	c.emit(key)

	log.WithField("page", params.Page).Debug("Fetching page")
	page, err := c.api.List(ctx, params)

	c.mu.Lock()
	p.fetching = false
	current := c.parts[key] == p && p.gen == gen
	switch {
	case !current:
		c.mu.Unlock()
		log.WithField("page", params.Page).Debug("Discarding stale page")
		c.emit(key)
		return nil, ErrStale
	case err != nil:
		if !errors.Is(err, context.Canceled) {
			p.err = err
		}
		c.mu.Unlock()
		log.WithError(err).WithField("page", params.Page).Warn("Page fetch failed")
		c.emit(key)
		return nil, fmt.Errorf("failed to fetch page %d: %w", params.Page, err)
	}

	stored := page.Clone()
	if stored.Number == 0 {
		stored.Number = params.Page
	}
	if stored.Limit == 0 {
		stored.Limit = params.Limit
	}
	p.pages = append(p.pages, stored)
	p.err = nil
	c.mu.Unlock()

	log.WithFields(logrus.Fields{"page": stored.Number, "items": len(stored.Items), "total": stored.Total}).Debug("Page cached")
	c.emit(key)

	out := stored.Clone()
	return &out, nil
}

// Load fetches the first page unless the key already has pages
func (c *Cache) Load(ctx context.Context, key models.QueryKey) error {
	c.mu.Lock()
	p, ok := c.parts[key]
	loaded := ok && len(p.pages) > 0
	c.mu.Unlock()
	if loaded {
		return nil
	}

	_, err := c.FetchNextPage(ctx, key)
	if errors.Is(err, ErrNoMorePages) {
		return nil
	}
	return err
}

// Invalidate drops the key's pages; the next read starts again from page 1.
// In-flight responses for the key are discarded.
func (c *Cache) Invalidate(key models.QueryKey) {
	c.mu.Lock()
	p, ok := c.parts[key]
	if ok {
		p.pages = nil
		p.err = nil
		p.gen++
	}
	c.mu.Unlock()
	if ok {
		c.emit(key)
	}
}

// Reload refetches pages 1..N of the key, N being how many are cached, and swaps them in at once.
// Pending optimistic edits on the key are superseded by the fresh pages.
// If a page fails the key is invalidated and the error returned.
func (c *Cache) Reload(ctx context.Context, key models.QueryKey) error {
	log := logging.Component("cache").WithFields(logrus.Fields{"search": key.Search, "status": key.Filter.Status})

	c.mu.Lock()
	p, ok := c.parts[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	p.fetchMu.Lock()
	defer p.fetchMu.Unlock()

	c.mu.Lock()
	if c.parts[key] != p {
		c.mu.Unlock()
		return ErrStale
	}
	n := len(p.pages)
	gen := p.gen
	c.mu.Unlock()
	if n == 0 {
		return nil
	}

	fresh := make([]models.Page, 0, n)
	var fetchErr error
	for number := 1; number <= n; number++ {
		params := models.ListParams{Page: number, Limit: c.limit, Search: key.Search, Filter: key.Filter}
		page, err := c.api.List(ctx, params)
		if err != nil {
			fetchErr = fmt.Errorf("failed to reload page %d: %w", number, err)
			break
		}
		stored := page.Clone()
		if stored.Number == 0 {
			stored.Number = number
		}
		if stored.Limit == 0 {
			stored.Limit = c.limit
		}
		fresh = append(fresh, stored)
		if !stored.HasNext() {
			break
		}
	}

	c.mu.Lock()
	if c.parts[key] != p || p.gen != gen {
		c.mu.Unlock()
		return ErrStale
	}
	p.gen++
	if fetchErr != nil {
		p.pages = nil
		if !errors.Is(fetchErr, context.Canceled) {
			p.err = fetchErr
		}
	} else {
		p.pages = fresh
		p.err = nil
	}
	c.mu.Unlock()
	c.emit(key)

	if fetchErr != nil {
		log.WithError(fetchErr).Warn("Reload failed, key invalidated")
		return fetchErr
	}
	log.WithField("pages", len(fresh)).Debug("Pages reloaded")
	return nil
}

// InvalidateResource invalidates every key of the resource except the given ones
func (c *Cache) InvalidateResource(resource string, except ...models.QueryKey) {
	skip := make(map[models.QueryKey]bool, len(except))
	for _, k := range except {
		skip[k] = true
	}

	var keys []models.QueryKey
	c.mu.Lock()
	for k, p := range c.parts {
		if k.Resource != resource || skip[k] {
			continue
		}
		p.pages = nil
		p.err = nil
		p.gen++
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.emit(k)
	}
}

// Abandon forgets the key entirely; its in-flight fetch will not touch the cache
func (c *Cache) Abandon(key models.QueryKey) {
	c.mu.Lock()
	p, ok := c.parts[key]
	if ok {
		p.gen++
		delete(c.parts, key)
	}
	c.mu.Unlock()
}

// Pages returns a deep copy of the key's pages in fetch order
func (c *Cache) Pages(key models.QueryKey) []models.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.parts[key]
	if !ok {
		return nil
	}
	return clonePages(p.pages)
}

// IsCreating reports whether a create is waiting for the server
func (c *Cache) IsCreating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creating > 0
}

// ListView is everything a renderer needs for one key
type ListView struct {
	Key                models.QueryKey
	Todos              []models.Todo
	Stats              listmerge.Stats
	HasNextPage        bool
	IsLoading          bool
	IsFetchingNextPage bool
	IsCreating         bool
	PagesLoaded        int
	Err                error
}

// View merges the key's pages into the list shown to the user
func (c *Cache) View(key models.QueryKey) ListView {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := ListView{Key: key, IsCreating: c.creating > 0, Todos: []models.Todo{}}
	p, ok := c.parts[key]
	if !ok {
		v.IsLoading = true
		v.HasNextPage = true
		return v
	}

	v.Todos = listmerge.Merge(p.pages, key)
	v.Stats = listmerge.Count(v.Todos)
	v.PagesLoaded = len(p.pages)
	v.Err = p.err
	if len(p.pages) == 0 {
		v.IsLoading = p.err == nil
		v.HasNextPage = true
		return v
	}
	v.HasNextPage = p.hasNext()
	v.IsFetchingNextPage = p.fetching
	return v
}

func clonePages(pages []models.Page) []models.Page {
	if pages == nil {
		return nil
	}
	out := make([]models.Page, len(pages))
	for i, pg := range pages {
		out[i] = pg.Clone()
	}
	return out
}
