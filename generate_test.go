package staticpress

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateHome(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	page, err := g.Generate(context.Background(), HomeRoute)
	require.NoError(t, err)
	assert.Equal(t, HomeRoute, page.Route)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, page.ContentType)
	assert.Equal(t, StatusOK, page.Load)
	assert.Equal(t, time.Hour, page.Revalidate)
	assert.False(t, page.GeneratedAt.IsZero())
	assert.True(t, page.Good())

	body := string(page.Body)
	assert.Contains(t, body, "Latest Articles")
	assert.Contains(t, body, `href="/posts/second-post"`)
	assert.Contains(t, body, `href="/category/engineering"`)
}

func TestGenerateHomeDegraded(t *testing.T) {
	src := newFakeSource()
	src.setErr(errDown)
	g := newTestGenerator(t, src)

	page, err := g.Generate(context.Background(), HomeRoute)
	require.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, StatusTransient, page.Load)
	assert.Equal(t, 60*time.Second, page.Revalidate)
	assert.False(t, page.Good())
	assert.Contains(t, string(page.Body), "There is no text yet.")
}

func TestGeneratePost(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	page, err := g.Generate(context.Background(), PostRoute("first-post"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, 60*time.Second, page.Revalidate)
	assert.Contains(t, string(page.Body), "First post")
	assert.Contains(t, string(page.Body), "No Content.")
}

func TestGenerateUnknownPostIsNotFoundPage(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	page, err := g.Generate(context.Background(), PostRoute("hello-world"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Equal(t, StatusNotFound, page.Load)
	assert.Equal(t, 60*time.Second, page.Revalidate)
	assert.Contains(t, string(page.Body), "This page could not be found.")
}

func TestGenerateCategory(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	page, err := g.Generate(context.Background(), CategoryRoute("engineering"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	body := string(page.Body)
	assert.Contains(t, body, "Engineering")
	assert.Contains(t, body, "2 article found.")
	assert.NotContains(t, body, "Culture notes")
}

func TestGenerateCategoryFailureIsTransientNotFound(t *testing.T) {
	src := newFakeSource()
	src.setErr(errDown)
	g := newTestGenerator(t, src)

	page, err := g.Generate(context.Background(), CategoryRoute("engineering"))
	require.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
	assert.Equal(t, StatusTransient, page.Load)
	assert.Equal(t, 60*time.Second, page.Revalidate)
}

func TestGenerateSitemapAndFeed(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	sm, err := g.Generate(context.Background(), SitemapRoute)
	require.NoError(t, err)
	assert.Equal(t, echo.MIMEApplicationXMLCharsetUTF8, sm.ContentType)
	assert.Contains(t, string(sm.Body), "<loc>https://blog.example.com/posts/second-post</loc>")
	assert.Contains(t, string(sm.Body), "<loc>https://blog.example.com/category/culture</loc>")

	feed, err := g.Generate(context.Background(), FeedRoute)
	require.NoError(t, err)
	assert.Equal(t, mimeRSS, feed.ContentType)
	assert.Contains(t, string(feed.Body), "<title>Culture notes</title>")
	assert.Contains(t, string(feed.Body), `<rss version="2.0"`)
}

func TestGenerateUnknownKind(t *testing.T) {
	g := newTestGenerator(t, newFakeSource())

	page, err := g.Generate(context.Background(), Route{Kind: "archive"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Zero(t, page.StatusCode)
}

func TestPageStaleness(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := Page{GeneratedAt: t0, Revalidate: time.Minute}

	assert.False(t, p.Stale(t0.Add(59*time.Second)))
	assert.True(t, p.Stale(t0.Add(time.Minute)))

	p.RetryAt = t0.Add(2 * time.Minute)
	assert.Equal(t, p.RetryAt, p.StaleAt())
	assert.False(t, p.Stale(t0.Add(90*time.Second)))
}
