package staticpress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutePath(t *testing.T) {
	tests := []struct {
		route Route
		want  string
	}{
		{HomeRoute, "/"},
		{CategoryRoute("engineering"), "/category/engineering"},
		{PostRoute("hello world"), "/posts/hello%20world"},
		{PostRoute("a/b"), "/posts/a%2Fb"},
		{SitemapRoute, "/sitemap.xml"},
		{FeedRoute, "/feed.xml"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.route.Path())
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		path string
		want Route
	}{
		{"/", HomeRoute},
		{"", HomeRoute},
		{"/category/engineering", CategoryRoute("engineering")},
		{"/category/engineering/", CategoryRoute("engineering")},
		{"/posts/hello%20world", PostRoute("hello world")},
		{"/sitemap.xml", SitemapRoute},
		{"/feed.xml", FeedRoute},
	}
	for _, tt := range tests {
		got, err := ParseRoute(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParseRouteRejects(t *testing.T) {
	for _, p := range []string{"/posts/", "/posts/a/b", "/category/%zz", "/about", "/admin"} {
		_, err := ParseRoute(p)
		assert.Error(t, err, p)
	}
}

func TestParseRouteRoundTrip(t *testing.T) {
	for _, r := range []Route{HomeRoute, CategoryRoute("c++"), PostRoute("café"), FeedRoute} {
		got, err := ParseRoute(r.Path())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestSafeSlug(t *testing.T) {
	for _, s := range []string{"first-post", "2024-recap", "caf%C3%A9", "a.b"} {
		assert.True(t, SafeSlug(s), s)
	}
	for _, s := range []string{"", ".", "..", "../x", "a/b", `a\b`, "x..y", "/abs"} {
		assert.False(t, SafeSlug(s), s)
	}
}

func TestRevalidationPolicyWindows(t *testing.T) {
	p := DefaultRevalidationPolicy()
	assert.Equal(t, time.Hour, p.Window(KindHome))
	assert.Equal(t, time.Hour, p.Window(KindCategory))
	assert.Equal(t, 60*time.Second, p.Window(KindPost))
	assert.Equal(t, 60*time.Second, p.Failure)
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Revalidate.Post = 5 * time.Minute
	cfg.Revalidate.Feed = 10 * time.Minute

	p := PolicyFromConfig(cfg)
	assert.Equal(t, 5*time.Minute, p.Window(KindPost))
	assert.Equal(t, 10*time.Minute, p.Window(KindFeed))
	assert.Equal(t, 10*time.Minute, p.Window(KindSitemap))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "not_found", StatusNotFound.String())
	assert.Equal(t, "transient", StatusTransient.String())
}
