package views

import (
	"time"

	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/quote"
)

// SiteConfig holds the site-wide settings templates need.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title         string
	Description   string
	URL           string // canonical + og:url
	OGType        string // "website" or "article"
	Image         string
	Author        string
	PublishedTime string
	ModifiedTime  string
	Section       string
}

// HomeProps is everything the home page renders.
type HomeProps struct {
	Posts      []content.Post
	Categories []content.Category
	Quote      *quote.Quote
}

// CategoryProps is everything a category page renders.
type CategoryProps struct {
	Category content.Category
	Posts    []content.Post
}

// PostProps is everything a post page renders.
type PostProps struct {
	Post content.Post
}

// PageRow is one cached page on the admin dashboard.
type PageRow struct {
	Route       string
	StatusCode  int
	GeneratedAt time.Time
	Revalidate  time.Duration
	Stale       bool
}

// BuildRow is one past build on the admin dashboard.
type BuildRow struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Pages       int
	NotFound    int
	Failed      int
	BrokenLinks int
}

// AdminDashboardProps feeds the admin dashboard.
type AdminDashboardProps struct {
	Pages   []PageRow
	Builds  []BuildRow
	Message string
	CSRF    string
}
