package staticpress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/quote"
	"github.com/eringen/staticpress/views"
)

// ContentSource is the subset of the content API the loaders read.
// *content.Client implements it.
type ContentSource interface {
	Categories(ctx context.Context, opts content.ListOptions) ([]content.Category, error)
	Posts(ctx context.Context, opts content.ListOptions) ([]content.Post, error)
	CategoryBySlug(ctx context.Context, slug string) (content.Category, error)
	PostBySlug(ctx context.Context, slug string) (content.Post, error)
	PostsInCategory(ctx context.Context, id content.ID) ([]content.Post, error)
	CategorySlugs(ctx context.Context, limit int) ([]string, error)
	PostSlugs(ctx context.Context, limit int) ([]string, error)
}

// QuoteSource supplies the quote of the day. *quote.Client implements it.
type QuoteSource interface {
	Today(ctx context.Context) (*quote.Quote, error)
}

// FeedProps is the data behind the RSS feed.
type FeedProps struct {
	Posts []content.Post
}

// SitemapProps is the data behind sitemap.xml.
type SitemapProps struct {
	Posts      []content.Post
	Categories []content.Category
}

// Pipeline loads the props of every page kind from the content API. Each
// loader returns a tagged Result and never an error; the generator decides
// what a non-OK result looks like to visitors.
type Pipeline struct {
	content ContentSource
	quotes  QuoteSource
	limits  LimitsConfig
	logger  *slog.Logger
}

// NewPipeline returns a Pipeline reading from src and quotes. quotes may be nil,
// in which case the home page never shows a quote.
func NewPipeline(src ContentSource, quotes QuoteSource, limits LimitsConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{content: src, quotes: quotes, limits: limits, logger: logger}
}

// LoadHome loads the latest posts, the category list and the quote of the
// day. Posts and categories degrade independently to empty lists and mark
// the result transient; a failing quote only drops the quote.
func (p *Pipeline) LoadHome(ctx context.Context) Result[views.HomeProps] {
	var (
		props views.HomeProps
		errs  []error
	)

	posts, err := p.content.Posts(ctx, content.ListOptions{
		Limit:    p.limits.HomePosts,
		Sort:     "-createdAt",
		Depth:    2,
		Populate: content.CollectionCategories,
	})
	if err != nil {
		p.logger.Warn("Home posts unavailable", logRoute(HomeRoute), logErr(err))
		errs = append(errs, err)
		posts = []content.Post{}
	}
	props.Posts = posts

	cats, err := p.content.Categories(ctx, content.ListOptions{Limit: p.limits.HomeCategories, Sort: "title"})
	if err != nil {
		p.logger.Warn("Home categories unavailable", logRoute(HomeRoute), logErr(err))
		errs = append(errs, err)
		cats = []content.Category{}
	}
	props.Categories = cats

	props.Quote = p.loadQuote(ctx)

	if len(errs) > 0 {
		return transient(props, errors.Join(errs...))
	}
	return ok(props)
}

func (p *Pipeline) loadQuote(ctx context.Context) *quote.Quote {
	if p.quotes == nil {
		return nil
	}
	q, err := p.quotes.Today(ctx)
	if err != nil {
		p.logger.Warn("Quote of the day unavailable", logErr(err))
		return nil
	}
	return q
}

// LoadCategory loads the category with the given slug and its posts, newest
// first. An unknown slug is not found; a failed fetch is transient.
func (p *Pipeline) LoadCategory(ctx context.Context, slug string) Result[views.CategoryProps] {
	route := CategoryRoute(slug)
	cat, err := p.content.CategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			p.logger.Info("Category not found", logRoute(route))
			return notFound[views.CategoryProps](err)
		}
		p.logger.Error("Category lookup failed", logRoute(route), logErr(err))
		return transient(views.CategoryProps{}, err)
	}

	posts, err := p.content.PostsInCategory(ctx, cat.ID)
	if err != nil {
		p.logger.Error("Category posts unavailable", logRoute(route), logErr(err))
		return transient(views.CategoryProps{Category: cat}, err)
	}

	filtered := posts[:0:0]
	for _, post := range posts {
		if post.HasCategory(cat.ID) {
			filtered = append(filtered, post)
		}
	}
	if dropped := len(posts) - len(filtered); dropped > 0 {
		p.logger.Warn("Dropped posts outside category", logRoute(route), slog.Int("dropped", dropped))
	}
	sortNewestFirst(filtered)
	return ok(views.CategoryProps{Category: cat, Posts: filtered})
}

// LoadPost loads the post with the given slug. Zero matches is not found.
func (p *Pipeline) LoadPost(ctx context.Context, slug string) Result[views.PostProps] {
	route := PostRoute(slug)
	post, err := p.content.PostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			p.logger.Info("Post not found", logRoute(route))
			return notFound[views.PostProps](err)
		}
		p.logger.Error("Post lookup failed", logRoute(route), logErr(err))
		return transient(views.PostProps{}, err)
	}
	return ok(views.PostProps{Post: post})
}

// LoadFeed loads the newest posts for the RSS feed.
func (p *Pipeline) LoadFeed(ctx context.Context) Result[FeedProps] {
	posts, err := p.content.Posts(ctx, content.ListOptions{
		Limit: p.limits.FeedPosts,
		Sort:  "-createdAt",
		Depth: 1,
	})
	if err != nil {
		p.logger.Warn("Feed posts unavailable", logRoute(FeedRoute), logErr(err))
		return transient(FeedProps{Posts: []content.Post{}}, err)
	}
	return ok(FeedProps{Posts: posts})
}

// LoadSitemap loads every enumerable post and category.
func (p *Pipeline) LoadSitemap(ctx context.Context) Result[SitemapProps] {
	var errs []error
	posts, err := p.content.Posts(ctx, content.ListOptions{Limit: p.limits.Paths, Sort: "-createdAt"})
	if err != nil {
		errs = append(errs, fmt.Errorf("posts: %w", err))
		posts = []content.Post{}
	}
	cats, err := p.content.Categories(ctx, content.ListOptions{Limit: p.limits.Paths, Sort: "title"})
	if err != nil {
		errs = append(errs, fmt.Errorf("categories: %w", err))
		cats = []content.Category{}
	}
	props := SitemapProps{Posts: posts, Categories: cats}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.logger.Warn("Sitemap incomplete", logRoute(SitemapRoute), logErr(err))
		return transient(props, err)
	}
	return ok(props)
}

func sortNewestFirst(posts []content.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
