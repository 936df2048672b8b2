package staticpress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ErrTransient marks a generation whose data could not be loaded. Generate
// still returns a servable fallback page alongside it.
var ErrTransient = errors.New("transient generation failure")

// Page is one generated document and how long it stays fresh.
type Page struct {
	Route       Route
	StatusCode  int
	ContentType string
	Body        []byte
	GeneratedAt time.Time
	Revalidate  time.Duration
	// Load is the loader status the page was generated from.
	Load Status
	// RetryAt, when set, overrides GeneratedAt+Revalidate as the moment the
	// page becomes stale. It is set on a kept page after a failed regeneration.
	RetryAt time.Time
}

// StaleAt is the moment the page should be regenerated.
func (p Page) StaleAt() time.Time {
	if !p.RetryAt.IsZero() {
		return p.RetryAt
	}
	return p.GeneratedAt.Add(p.Revalidate)
}

// Stale reports whether the page is past its window at now.
func (p Page) Stale(now time.Time) bool {
	return !now.Before(p.StaleAt())
}

// Good reports whether the page came from a complete load.
func (p Page) Good() bool {
	return p.Load == StatusOK && p.StatusCode == http.StatusOK
}

// PageGenerator produces the page for a route.
type PageGenerator interface {
	Generate(ctx context.Context, r Route) (Page, error)
}

// Generator turns loader results into pages: the boundary where a tagged
// result becomes a status code, a body and a revalidation window.
type Generator struct {
	cfg      SiteConfig
	pipeline *Pipeline
	views    ViewFuncs
	policy   RevalidationPolicy
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewGenerator returns a Generator.
func NewGenerator(cfg SiteConfig, p *Pipeline, v ViewFuncs, policy RevalidationPolicy, m *Metrics, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{cfg: cfg, pipeline: p, views: v, policy: policy, metrics: m, logger: logger, now: time.Now}
}

// Generate loads and renders route. A not-found result yields a 404 page and
// a nil error. A transient result yields a fallback page and an error
// wrapping ErrTransient; the fallback gets the failure window. Any other
// error means no page could be produced.
func (g *Generator) Generate(ctx context.Context, r Route) (Page, error) {
	start := g.now()
	page, status, err := g.generate(ctx, r)
	g.metrics.observeGeneration(r.Kind, status, time.Since(start))
	if err != nil && !errors.Is(err, ErrTransient) {
		return Page{}, err
	}
	page.Route = r
	page.Load = status
	page.GeneratedAt = g.now()
	if status == StatusTransient {
		page.Revalidate = g.policy.Failure
	} else {
		page.Revalidate = g.policy.Window(r.Kind)
	}
	g.logger.Debug("Generated page", logRoute(r), logStatus(status),
		slog.Int("code", page.StatusCode), logDuration(time.Since(start)))
	return page, err
}

func (g *Generator) generate(ctx context.Context, r Route) (Page, Status, error) {
	switch r.Kind {
	case KindHome:
		res := g.pipeline.LoadHome(ctx)
		page, err := g.html(ctx, http.StatusOK, g.views.Home(res.Props))
		return page, res.Status, withTransient(res.Status, res.Err, err)

	case KindCategory:
		res := g.pipeline.LoadCategory(ctx, r.Slug)
		if res.Status != StatusOK {
			page, err := g.html(ctx, http.StatusNotFound, g.views.NotFound())
			return page, res.Status, withTransient(res.Status, res.Err, err)
		}
		page, err := g.html(ctx, http.StatusOK, g.views.Category(res.Props))
		return page, res.Status, err

	case KindPost:
		res := g.pipeline.LoadPost(ctx, r.Slug)
		if res.Status != StatusOK {
			page, err := g.html(ctx, http.StatusNotFound, g.views.NotFound())
			return page, res.Status, withTransient(res.Status, res.Err, err)
		}
		page, err := g.html(ctx, http.StatusOK, g.views.Post(res.Props))
		return page, res.Status, err

	case KindSitemap:
		res := g.pipeline.LoadSitemap(ctx)
		body, err := renderSitemap(g.cfg, res.Props)
		page := Page{StatusCode: http.StatusOK, ContentType: echo.MIMEApplicationXMLCharsetUTF8, Body: body}
		return page, res.Status, withTransient(res.Status, res.Err, err)

	case KindFeed:
		res := g.pipeline.LoadFeed(ctx)
		body, err := renderFeed(g.cfg, res.Props)
		page := Page{StatusCode: http.StatusOK, ContentType: mimeRSS, Body: body}
		return page, res.Status, withTransient(res.Status, res.Err, err)
	}
	return Page{}, StatusNotFound, fmt.Errorf("generate %s: unknown page kind %q", r, r.Kind)
}

func (g *Generator) html(ctx context.Context, code int, cmp templ.Component) (Page, error) {
	var buf bytes.Buffer
	if err := cmp.Render(ctx, &buf); err != nil {
		return Page{}, fmt.Errorf("render: %w", err)
	}
	return Page{StatusCode: code, ContentType: echo.MIMETextHTMLCharsetUTF8, Body: buf.Bytes()}, nil
}

// withTransient folds the loader status into the generation error. Render
// errors win over load errors.
func withTransient(s Status, loadErr, renderErr error) error {
	if renderErr != nil {
		return renderErr
	}
	if s == StatusTransient {
		return fmt.Errorf("%w: %w", ErrTransient, loadErr)
	}
	return nil
}
