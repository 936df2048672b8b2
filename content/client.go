package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/staticpress/fetch"
)

var (
	// ErrNotFound is returned when a lookup by slug matches no document.
	ErrNotFound = errors.New("content: not found")
	// ErrMalformed is returned when a listing response lacks its docs array.
	ErrMalformed = errors.New("content: malformed response")
)

// Collection names on the content API.
const (
	CollectionPosts      = "posts"
	CollectionCategories = "categories"
)

// Depth used for single-post and category-listing lookups.
const relationDepth = 2

// Client reads collections from the content API.
type Client struct {
	baseURL string
	fetch   *fetch.Client
}

// NewClient returns a Client for the API rooted at baseURL, e.g.
// "https://cms.example.com". An empty baseURL yields a client whose every
// call fails.
func NewClient(baseURL string, fc *fetch.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), fetch: fc}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type listResponse[T any] struct {
	Docs *[]T `json:"docs"`
}

func list[T any](ctx context.Context, c *Client, collection string, opts ListOptions) ([]T, error) {
	u := c.baseURL + "/api/" + collection
	if q := opts.Encode(); q != "" {
		u += "?" + q
	}
	var resp listResponse[T]
	if err := c.fetch.GetJSON(ctx, collection, u, &resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if resp.Docs == nil {
		return nil, fmt.Errorf("list %s: %w", collection, ErrMalformed)
	}
	return *resp.Docs, nil
}

// Categories lists categories.
func (c *Client) Categories(ctx context.Context, opts ListOptions) ([]Category, error) {
	return list[Category](ctx, c, CollectionCategories, opts)
}

// Posts lists posts.
func (c *Client) Posts(ctx context.Context, opts ListOptions) ([]Post, error) {
	return list[Post](ctx, c, CollectionPosts, opts)
}

// CategoryBySlug returns the first category whose slug equals slug.
func (c *Client) CategoryBySlug(ctx context.Context, slug string) (Category, error) {
	docs, err := c.Categories(ctx, ListOptions{Where: []Condition{Equals("slug", slug)}, Limit: 1})
	if err != nil {
		return Category{}, err
	}
	if len(docs) == 0 {
		return Category{}, fmt.Errorf("category %q: %w", slug, ErrNotFound)
	}
	return docs[0], nil
}

// PostBySlug returns the first post whose slug equals slug, relations
// populated two levels deep.
func (c *Client) PostBySlug(ctx context.Context, slug string) (Post, error) {
	docs, err := c.Posts(ctx, ListOptions{Where: []Condition{Equals("slug", slug)}, Depth: relationDepth})
	if err != nil {
		return Post{}, err
	}
	if len(docs) == 0 {
		return Post{}, fmt.Errorf("post %q: %w", slug, ErrNotFound)
	}
	return docs[0], nil
}

// PostsInCategory lists posts referencing the category, newest first.
func (c *Client) PostsInCategory(ctx context.Context, id ID) ([]Post, error) {
	return c.Posts(ctx, ListOptions{
		Where:    []Condition{In("categories", id.String())},
		Sort:     "-createdAt",
		Depth:    relationDepth,
		Populate: CollectionCategories,
	})
}

// CategorySlugs lists up to limit category slugs.
func (c *Client) CategorySlugs(ctx context.Context, limit int) ([]string, error) {
	docs, err := c.Categories(ctx, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(docs))
	for _, d := range docs {
		slugs = append(slugs, d.Slug)
	}
	return slugs, nil
}

// PostSlugs lists up to limit post slugs.
func (c *Client) PostSlugs(ctx context.Context, limit int) ([]string, error) {
	docs, err := c.Posts(ctx, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(docs))
	for _, d := range docs {
		slugs = append(slugs, d.Slug)
	}
	return slugs, nil
}
