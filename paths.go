package staticpress

import (
	"context"
	"log/slog"
	"strings"
)

// FallbackMode says what happens to a slug that was not enumerated at build time.
type FallbackMode string

// FallbackBlocking generates unknown slugs on their first request, which
// waits for the generation to finish.
const FallbackBlocking FallbackMode = "blocking"

// Paths is the set of slugs pre-generated for one page kind.
type Paths struct {
	Kind     Kind
	Slugs    []string
	Fallback FallbackMode
}

// Routes returns one route per slug.
func (ps Paths) Routes() []Route {
	routes := make([]Route, 0, len(ps.Slugs))
	for _, s := range ps.Slugs {
		routes = append(routes, Route{Kind: ps.Kind, Slug: s})
	}
	return routes
}

// PostPaths enumerates post slugs. A failed listing is logged and yields an
// empty set, leaving every post to the blocking fallback.
func (p *Pipeline) PostPaths(ctx context.Context) Paths {
	slugs, err := p.content.PostSlugs(ctx, p.limits.Paths)
	return p.paths(KindPost, slugs, err)
}

// CategoryPaths enumerates category slugs, with the same failure behavior as PostPaths.
func (p *Pipeline) CategoryPaths(ctx context.Context) Paths {
	slugs, err := p.content.CategorySlugs(ctx, p.limits.Paths)
	return p.paths(KindCategory, slugs, err)
}

func (p *Pipeline) paths(kind Kind, slugs []string, err error) Paths {
	ps := Paths{Kind: kind, Slugs: []string{}, Fallback: FallbackBlocking}
	if err != nil {
		p.logger.Error("Path enumeration failed", logKind(kind), logErr(err))
		return ps
	}
	seen := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		s = strings.TrimSpace(s)
		if s == "" {
			p.logger.Warn("Skipping entry without slug", logKind(kind))
			continue
		}
		if !SafeSlug(s) {
			p.logger.Warn("Skipping unsafe slug", logKind(kind), logSlug(s))
			continue
		}
		if _, dup := seen[s]; dup {
			p.logger.Warn("Duplicate slug", logKind(kind), logSlug(s))
			continue
		}
		seen[s] = struct{}{}
		ps.Slugs = append(ps.Slugs, s)
	}
	p.logger.Debug("Enumerated paths", logKind(kind), slog.Int("count", len(ps.Slugs)))
	return ps
}

// AllRoutes returns the home page, every enumerated category and post, the
// sitemap and the feed.
func (p *Pipeline) AllRoutes(ctx context.Context) []Route {
	routes := []Route{HomeRoute}
	routes = append(routes, p.CategoryPaths(ctx).Routes()...)
	routes = append(routes, p.PostPaths(ctx).Routes()...)
	return append(routes, SitemapRoute, FeedRoute)
}
