package staticpress

import "time"

// RevalidationPolicy maps each page kind to its staleness window: the time
// after which a served page is regenerated in the background.
type RevalidationPolicy struct {
	Home     time.Duration
	Category time.Duration
	Post     time.Duration
	Sitemap  time.Duration
	Feed     time.Duration
	// Failure is the window given to pages generated from a failed load, so
	// they are retried soon instead of being pinned for a full window.
	Failure time.Duration
}

// DefaultRevalidationPolicy returns the stock windows.
func DefaultRevalidationPolicy() RevalidationPolicy {
	return RevalidationPolicy{
		Home:     time.Hour,
		Category: time.Hour,
		Post:     60 * time.Second,
		Sitemap:  time.Hour,
		Feed:     time.Hour,
		Failure:  60 * time.Second,
	}
}

// PolicyFromConfig builds the policy from cfg.Revalidate.
func PolicyFromConfig(cfg SiteConfig) RevalidationPolicy {
	return RevalidationPolicy{
		Home:     cfg.Revalidate.Home,
		Category: cfg.Revalidate.Category,
		Post:     cfg.Revalidate.Post,
		Sitemap:  cfg.Revalidate.Feed,
		Feed:     cfg.Revalidate.Feed,
		Failure:  cfg.Revalidate.Failure,
	}
}

// Window returns the staleness window for pages of kind k.
func (p RevalidationPolicy) Window(k Kind) time.Duration {
	switch k {
	case KindHome:
		return p.Home
	case KindCategory:
		return p.Category
	case KindPost:
		return p.Post
	case KindSitemap:
		return p.Sitemap
	case KindFeed:
		return p.Feed
	}
	return p.Failure
}
