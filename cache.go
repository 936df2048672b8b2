package staticpress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

// ErrCacheClosed is returned for generations requested after Close.
var ErrCacheClosed = errors.New("page cache closed")

// DefaultMissingLimit bounds how many not-found pages a PageCache remembers.
const DefaultMissingLimit = 1024

// CacheState describes how a page was served from the cache.
type CacheState string

const (
	// CacheHit is a fresh cached page.
	CacheHit CacheState = "hit"
	// CacheStale is a cached page past its window; a regeneration was started.
	CacheStale CacheState = "stale"
	// CacheMiss is a page generated while the caller waited.
	CacheMiss CacheState = "miss"
)

// PageStore persists generated pages across restarts. *Store implements it.
type PageStore interface {
	SavePage(p Page) error
	ListPages() ([]Page, error)
	DeletePage(r Route) error
	DeleteAllPages() error
}

type call struct {
	done chan struct{}
	page Page
	err  error
}

// PageCache serves generated pages with stale-while-revalidate semantics:
// fresh pages are returned as is, stale pages are returned while a single
// background regeneration runs, and missing pages are generated while the
// caller waits. Concurrent generations of one route are collapsed into one.
//
// A failed regeneration never replaces a good page. The good page is kept
// and retried after the failure window.
//
// Pages answering 404 live in a separate set bounded by maxMissing. They are
// served until they expire, then regenerated on the next request; they are
// never persisted nor swept by RevalidateStale.
type PageCache struct {
	mu         sync.RWMutex
	pages      map[Route]Page
	missing    map[Route]Page
	maxMissing int
	inflight   map[Route]*call

	gen     PageGenerator
	store   PageStore
	failure time.Duration
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewPageCache returns a PageCache generating pages with gen. store may be
// nil; failure is the retry window after a failed regeneration.
func NewPageCache(gen PageGenerator, store PageStore, failure time.Duration, m *Metrics, logger *slog.Logger) *PageCache {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PageCache{
		pages:      make(map[Route]Page),
		missing:    make(map[Route]Page),
		maxMissing: DefaultMissingLimit,
		inflight:   make(map[Route]*call),
		gen:        gen,
		store:      store,
		failure:    failure,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Get returns the page for r. Only a blocking miss can fail, and only when
// no page at all could be produced.
func (c *PageCache) Get(ctx context.Context, r Route) (Page, CacheState, error) {
	c.mu.RLock()
	page, found := c.pages[r]
	nf, known := c.missing[r]
	c.mu.RUnlock()

	if !found && known && !nf.Stale(c.now()) {
		c.metrics.incCache(CacheHit)
		return nf, CacheHit, nil
	}
	if found {
		if !page.Stale(c.now()) {
			c.metrics.incCache(CacheHit)
			return page, CacheHit, nil
		}
		c.revalidateAsync(r)
		c.metrics.incCache(CacheStale)
		return page, CacheStale, nil
	}

	c.metrics.incCache(CacheMiss)
	page, err := c.wait(ctx, r)
	if page.StatusCode == 0 {
		return Page{}, CacheMiss, err
	}
	return page, CacheMiss, nil
}

// Revalidate regenerates r now and returns the page the cache holds
// afterwards. The error reports a failed regeneration even when an older
// page was kept.
func (c *PageCache) Revalidate(ctx context.Context, r Route) (Page, error) {
	return c.wait(ctx, r)
}

// RevalidateStale regenerates every stale page, one at a time, and returns
// how many were attempted. Not-found pages are left to expire.
func (c *PageCache) RevalidateStale(ctx context.Context) int {
	now := c.now()
	var stale []Route
	c.mu.RLock()
	for r, p := range c.pages {
		if p.Stale(now) && p.Load != StatusNotFound {
			stale = append(stale, r)
		}
	}
	c.mu.RUnlock()
	sortRoutes(stale)

	n := 0
	for _, r := range stale {
		if ctx.Err() != nil {
			break
		}
		_, _ = c.wait(ctx, r)
		n++
	}
	return n
}

// Put stores a generated page, replacing any previous one.
func (c *PageCache) Put(p Page) {
	c.mu.Lock()
	if p.StatusCode == http.StatusNotFound {
		c.rememberMissing(p)
		c.mu.Unlock()
		return
	}
	c.pages[p.Route] = p
	delete(c.missing, p.Route)
	n := len(c.pages)
	c.mu.Unlock()
	c.metrics.setCachedPages(n)
	c.persist(p)
}

// Invalidate drops r so the next request generates it.
func (c *PageCache) Invalidate(r Route) {
	c.mu.Lock()
	delete(c.pages, r)
	delete(c.missing, r)
	n := len(c.pages)
	c.mu.Unlock()
	c.metrics.setCachedPages(n)
	c.unpersist(r)
}

// Purge drops every page.
func (c *PageCache) Purge() {
	c.mu.Lock()
	c.pages = make(map[Route]Page)
	c.missing = make(map[Route]Page)
	c.mu.Unlock()
	c.metrics.setCachedPages(0)
	if c.store != nil {
		if err := c.store.DeleteAllPages(); err != nil {
			c.logger.Error("Failed to purge stored pages", logErr(err))
		}
	}
}

// Snapshot returns every cached page ordered by path. Remembered 404 pages
// are not included.
func (c *PageCache) Snapshot() []Page {
	c.mu.RLock()
	pages := make([]Page, 0, len(c.pages))
	for _, p := range c.pages {
		pages = append(pages, p)
	}
	c.mu.RUnlock()
	sort.Slice(pages, func(i, j int) bool { return pages[i].Route.Path() < pages[j].Route.Path() })
	return pages
}

// Warm loads persisted pages into memory and returns how many were loaded.
// Pages keep their original generation time, so expired ones are served
// stale and regenerated.
func (c *PageCache) Warm() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	pages, err := c.store.ListPages()
	if err != nil {
		return 0, err
	}
	loaded := 0
	c.mu.Lock()
	for _, p := range pages {
		if p.StatusCode == http.StatusNotFound {
			continue
		}
		if _, exists := c.pages[p.Route]; !exists {
			c.pages[p.Route] = p
		}
		loaded++
	}
	n := len(c.pages)
	c.mu.Unlock()
	c.metrics.setCachedPages(n)
	return loaded, nil
}

// Close cancels running generations and waits for them to return.
func (c *PageCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *PageCache) revalidateAsync(r Route) {
	c.mu.RLock()
	_, running := c.inflight[r]
	c.mu.RUnlock()
	if running {
		return
	}
	go func() { _, _ = c.wait(c.ctx, r) }()
}

// wait joins the generation of r in flight, starting one if needed, and
// waits for it or for ctx. The generation itself runs on the cache's own
// context so an abandoned request does not fail the other waiters.
func (c *PageCache) wait(ctx context.Context, r Route) (Page, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Page{}, ErrCacheClosed
	}
	cl, running := c.inflight[r]
	if !running {
		cl = &call{done: make(chan struct{})}
		c.inflight[r] = cl
		c.wg.Add(1)
		go c.run(r, cl)
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.page, cl.err
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}
}

// run generates r and decides what the cache keeps: a new page replaces the
// old one, a failed generation keeps a previous page and schedules a retry,
// and a transient fallback is only stored when nothing good is cached. A 404
// page, including a transient one, goes to the bounded missing set and
// evicts any page cached for r.
func (c *PageCache) run(r Route, cl *call) {
	defer c.wg.Done()
	start := c.now()
	page, err := c.gen.Generate(c.ctx, r)

	c.mu.Lock()
	prev, hadPrev := c.pages[r]
	var dropped bool
	switch {
	case err == nil && page.StatusCode == http.StatusNotFound:
		delete(c.pages, r)
		c.rememberMissing(page)
		dropped = hadPrev
	case err == nil:
		c.pages[r] = page
		delete(c.missing, r)
	case hadPrev && (prev.Good() || !errors.Is(err, ErrTransient)):
		prev.RetryAt = c.now().Add(c.failure)
		c.pages[r] = prev
		page = prev
	case errors.Is(err, ErrTransient) && page.StatusCode == http.StatusNotFound:
		c.rememberMissing(page)
	case errors.Is(err, ErrTransient):
		c.pages[r] = page
	}
	n := len(c.pages)
	delete(c.inflight, r)
	c.mu.Unlock()

	c.metrics.incRevalidation(err)
	c.metrics.setCachedPages(n)
	switch {
	case err != nil:
		c.logger.Warn("Page generation failed", logRoute(r), logErr(err), logDuration(c.now().Sub(start)))
	case page.StatusCode == http.StatusNotFound:
		if dropped {
			c.unpersist(r)
		}
	default:
		c.persist(page)
	}

	cl.page, cl.err = page, err
	close(cl.done)
}

// rememberMissing adds p to the missing set, first dropping expired entries
// and then the oldest one when the set is full. c.mu must be held.
func (c *PageCache) rememberMissing(p Page) {
	if c.maxMissing <= 0 {
		return
	}
	if _, exists := c.missing[p.Route]; !exists && len(c.missing) >= c.maxMissing {
		now := c.now()
		for r, m := range c.missing {
			if m.Stale(now) {
				delete(c.missing, r)
			}
		}
		for len(c.missing) >= c.maxMissing {
			var oldest Route
			var at time.Time
			first := true
			for r, m := range c.missing {
				if first || m.GeneratedAt.Before(at) {
					oldest, at, first = r, m.GeneratedAt, false
				}
			}
			delete(c.missing, oldest)
		}
	}
	c.missing[p.Route] = p
}

func (c *PageCache) unpersist(r Route) {
	if c.store == nil {
		return
	}
	if err := c.store.DeletePage(r); err != nil {
		c.logger.Error("Failed to delete stored page", logRoute(r), logErr(err))
	}
}

func (c *PageCache) persist(p Page) {
	if c.store == nil {
		return
	}
	if err := c.store.SavePage(p); err != nil {
		c.logger.Error("Failed to persist page", logRoute(p.Route), logErr(err))
	}
}

func sortRoutes(routes []Route) {
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path() < routes[j].Path() })
}
