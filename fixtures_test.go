package staticpress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/quote"
)

var (
	catEngineering = content.Category{ID: "cat1", Title: "Engineering", Slug: "engineering", Description: "How we build things"}
	catCulture     = content.Category{ID: "cat2", Title: "Culture", Slug: "culture"}
)

func fixturePosts() []content.Post {
	return []content.Post{
		{
			ID: "p1", Title: "First post", Slug: "first-post",
			Authors:    []content.Author{{ID: "a1", Name: "Ada"}},
			Categories: []content.Category{catEngineering},
			CreatedAt:  time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		},
		{
			ID: "p2", Title: "Second post", Slug: "second-post",
			Authors:    []content.Author{{ID: "a1", Name: "Ada"}, {ID: "a2", Name: "Grace"}},
			Categories: []content.Category{catEngineering, catCulture},
			CreatedAt:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			ID: "p3", Title: "Culture notes", Slug: "culture-notes",
			Categories: []content.Category{catCulture},
			CreatedAt:  time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		},
	}
}

// fakeSource is an in-memory content API. PostsInCategory ignores the
// category and returns every post oldest first, like an API that drops the
// filter, so callers must filter and order themselves.
type fakeSource struct {
	mu         sync.Mutex
	categories []content.Category
	posts      []content.Post
	// postSlugs and categorySlugs, when set, replace the enumerated slugs.
	postSlugs     []string
	categorySlugs []string
	err           error
	postBySlug    int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		categories: []content.Category{catEngineering, catCulture},
		posts:      fixturePosts(),
	}
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeSource) Categories(_ context.Context, opts content.ListOptions) ([]content.Category, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	cats := append([]content.Category(nil), f.categories...)
	sort.Slice(cats, func(i, j int) bool { return cats[i].Title < cats[j].Title })
	if opts.Limit > 0 && len(cats) > opts.Limit {
		cats = cats[:opts.Limit]
	}
	return cats, nil
}

func (f *fakeSource) Posts(_ context.Context, opts content.ListOptions) ([]content.Post, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	posts := append([]content.Post(nil), f.posts...)
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if opts.Limit > 0 && len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	return posts, nil
}

func (f *fakeSource) CategoryBySlug(_ context.Context, slug string) (content.Category, error) {
	if err := f.fail(); err != nil {
		return content.Category{}, err
	}
	for _, c := range f.categories {
		if c.Slug == slug {
			return c, nil
		}
	}
	return content.Category{}, fmt.Errorf("category %q: %w", slug, content.ErrNotFound)
}

func (f *fakeSource) PostBySlug(_ context.Context, slug string) (content.Post, error) {
	f.mu.Lock()
	f.postBySlug++
	f.mu.Unlock()
	if err := f.fail(); err != nil {
		return content.Post{}, err
	}
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.Post{}, fmt.Errorf("post %q: %w", slug, content.ErrNotFound)
}

func (f *fakeSource) PostsInCategory(_ context.Context, _ content.ID) ([]content.Post, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	posts := append([]content.Post(nil), f.posts...)
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })
	return posts, nil
}

func (f *fakeSource) CategorySlugs(ctx context.Context, limit int) ([]string, error) {
	if f.categorySlugs != nil {
		return f.categorySlugs, f.fail()
	}
	cats, err := f.Categories(ctx, content.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(cats))
	for _, c := range cats {
		slugs = append(slugs, c.Slug)
	}
	return slugs, nil
}

func (f *fakeSource) PostSlugs(ctx context.Context, limit int) ([]string, error) {
	if f.postSlugs != nil {
		return f.postSlugs, f.fail()
	}
	posts, err := f.Posts(ctx, content.ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

type fakeQuotes struct {
	q   *quote.Quote
	err error
}

func (f fakeQuotes) Today(context.Context) (*quote.Quote, error) {
	return f.q, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig(t *testing.T) SiteConfig {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Name = "Test Blog"
	cfg.URL = "https://blog.example.com"
	cfg.DatabasePath = ":memory:"
	cfg.MediaDir = t.TempDir()
	cfg.StaticDir = t.TempDir()
	return cfg
}

func newTestPipeline(t *testing.T, src ContentSource, quotes QuoteSource) *Pipeline {
	t.Helper()
	return NewPipeline(src, quotes, testConfig(t).Limits, testLogger())
}

func newTestGenerator(t *testing.T, src ContentSource) *Generator {
	t.Helper()
	cfg := testConfig(t)
	p := NewPipeline(src, fakeQuotes{}, cfg.Limits, testLogger())
	return NewGenerator(cfg, p, DefaultViews(cfg), PolicyFromConfig(cfg), nil, testLogger())
}

func postSlugs(posts []content.Post) []string {
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}
