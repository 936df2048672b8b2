package staticpress

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Kind identifies a family of generated pages.
type Kind string

const (
	KindHome     Kind = "home"
	KindCategory Kind = "category"
	KindPost     Kind = "post"
	KindSitemap  Kind = "sitemap"
	KindFeed     Kind = "feed"
)

// Route is one generated page: a kind plus, for category and post pages, a slug.
type Route struct {
	Kind Kind
	Slug string
}

// Routes for the singleton pages.
var (
	HomeRoute    = Route{Kind: KindHome}
	SitemapRoute = Route{Kind: KindSitemap}
	FeedRoute    = Route{Kind: KindFeed}
)

// CategoryRoute is the route of the category page for slug.
func CategoryRoute(slug string) Route { return Route{Kind: KindCategory, Slug: slug} }

// PostRoute is the route of the post page for slug.
func PostRoute(slug string) Route { return Route{Kind: KindPost, Slug: slug} }

// Path is the URL path the route is served at.
func (r Route) Path() string {
	switch r.Kind {
	case KindHome:
		return "/"
	case KindCategory:
		return "/category/" + url.PathEscape(r.Slug)
	case KindPost:
		return "/posts/" + url.PathEscape(r.Slug)
	case KindSitemap:
		return "/sitemap.xml"
	case KindFeed:
		return "/feed.xml"
	}
	return ""
}

func (r Route) String() string { return r.Path() }

// SafeSlug reports whether s can name a single directory under the export
// root: non-empty, without path separators and without "..".
func SafeSlug(s string) bool {
	return s != "" && s != "." && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..") && filepath.IsLocal(s)
}

// ParseRoute maps a URL path back to its route. Trailing slashes are ignored.
func ParseRoute(p string) (Route, error) {
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	switch p {
	case "", "/":
		return HomeRoute, nil
	case "/sitemap.xml":
		return SitemapRoute, nil
	case "/feed.xml":
		return FeedRoute, nil
	}
	for prefix, kind := range map[string]Kind{"/category/": KindCategory, "/posts/": KindPost} {
		rest, found := strings.CutPrefix(p, prefix)
		if !found {
			continue
		}
		slug, err := url.PathUnescape(rest)
		if err != nil || slug == "" || strings.Contains(slug, "/") {
			return Route{}, fmt.Errorf("invalid route %q", p)
		}
		return Route{Kind: kind, Slug: slug}, nil
	}
	return Route{}, fmt.Errorf("unknown route %q", p)
}
