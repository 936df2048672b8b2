package staticpress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// BuildReport summarizes one static build.
type BuildReport struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	OutputDir   string
	Pages       int // routes generated, including not-found and failed ones
	NotFound    int
	Failed      int
	BrokenLinks []BrokenLink
	Errors      []string
}

// BrokenLink is an internal link on a generated page whose target did not
// generate successfully.
type BrokenLink struct {
	From string
	To   string
}

// Builder pre-generates every enumerable page, the way a production build
// does, and optionally exports the result as a static file tree.
type Builder struct {
	pipeline *Pipeline
	gen      PageGenerator
	views    ViewFuncs
	cache    *PageCache
	store    *Store
	metrics  *Metrics
	logger   *slog.Logger
}

// NewBuilder returns a Builder. cache and store may be nil: with a cache the
// generated pages are seeded into it, with a store the report is recorded.
func NewBuilder(p *Pipeline, gen PageGenerator, v ViewFuncs, cache *PageCache, store *Store, m *Metrics, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{pipeline: p, gen: gen, views: v, cache: cache, store: store, metrics: m, logger: logger}
}

// Build enumerates and generates every route. When outDir is not empty the
// pages are written there as <path>/index.html plus 404.html, sitemap.xml and
// feed.xml. Generation failures are counted in the report, not returned; the
// error is reserved for I/O failures and cancellation.
func (b *Builder) Build(ctx context.Context, outDir string) (BuildReport, error) {
	report := BuildReport{ID: uuid.NewString(), StartedAt: time.Now().UTC(), OutputDir: outDir}
	log := b.logger.With(logBuildID(report.ID))
	log.Info("Build started", slog.String("output_dir", outDir))

	routes := b.pipeline.AllRoutes(ctx)
	generated := make(map[string]Page, len(routes))
	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Pages++
		page, err := b.gen.Generate(ctx, r)
		switch {
		case err != nil && !errors.Is(err, ErrTransient):
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r, err))
			log.Error("Page failed", logRoute(r), logErr(err))
			continue
		case err != nil:
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r, err))
			log.Warn("Page degraded", logRoute(r), logErr(err))
		case page.StatusCode == http.StatusNotFound:
			report.NotFound++
		}
		generated[r.Path()] = page
		// Degraded pages are left to on-demand generation so they never
		// replace a good cached page.
		if b.cache != nil && err == nil {
			b.cache.Put(page)
		}
	}

	report.BrokenLinks = checkLinks(generated)
	for _, l := range report.BrokenLinks {
		log.Warn("Broken internal link", slog.String("from", l.From), slog.String("to", l.To))
	}

	if outDir != "" {
		if err := b.export(ctx, outDir, generated); err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	b.metrics.observeBuild(report)
	if b.store != nil {
		if err := b.store.SaveBuild(report); err != nil {
			log.Error("Failed to record build", logErr(err))
		}
	}
	log.Info("Build finished",
		slog.Int("pages", report.Pages),
		slog.Int("not_found", report.NotFound),
		slog.Int("failed", report.Failed),
		slog.Int("broken_links", len(report.BrokenLinks)),
		logDuration(report.Duration))
	return report, nil
}

func (b *Builder) export(ctx context.Context, outDir string, pages map[string]Page) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, p := range pages {
		// Not-found pages are served by 404.html; failed ones have nothing to export.
		if p.StatusCode != http.StatusOK || (p.Load != StatusOK && p.Route.Kind != KindHome) {
			continue
		}
		rel := exportPath(p.Route)
		if !filepath.IsLocal(rel) {
			return fmt.Errorf("export %s: %q escapes the output directory", p.Route, rel)
		}
		if err := writeFile(filepath.Join(outDir, rel), p.Body); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if b.views.NotFound != nil {
		if err := b.views.NotFound().Render(ctx, &buf); err != nil {
			return fmt.Errorf("render 404 page: %w", err)
		}
		if err := writeFile(filepath.Join(outDir, "404.html"), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// exportPath maps a route to its file under the output directory.
func exportPath(r Route) string {
	switch r.Kind {
	case KindHome:
		return "index.html"
	case KindSitemap:
		return "sitemap.xml"
	case KindFeed:
		return "feed.xml"
	case KindCategory:
		return filepath.Join("category", r.Slug, "index.html")
	}
	return filepath.Join("posts", r.Slug, "index.html")
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// checkLinks reports anchors on generated HTML pages that point at a page
// route which did not generate with status 200.
func checkLinks(pages map[string]Page) []BrokenLink {
	var broken []BrokenLink
	for from, p := range pages {
		if !strings.HasPrefix(p.ContentType, "text/html") || p.StatusCode != http.StatusOK {
			continue
		}
		for _, href := range extractLinks(p.Body) {
			r, err := ParseRoute(href)
			if err != nil || (r.Kind != KindCategory && r.Kind != KindPost) {
				continue
			}
			if target, ok := pages[r.Path()]; !ok || target.StatusCode != http.StatusOK {
				broken = append(broken, BrokenLink{From: from, To: r.Path()})
			}
		}
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].From != broken[j].From {
			return broken[i].From < broken[j].From
		}
		return broken[i].To < broken[j].To
	})
	return broken
}

// extractLinks returns the paths of site-relative anchors in doc, without
// query or fragment.
func extractLinks(doc []byte) []string {
	z := html.NewTokenizer(bytes.NewReader(doc))
	seen := make(map[string]struct{})
	var links []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if p, ok := sitePath(string(val)); ok {
						if _, dup := seen[p]; !dup {
							seen[p] = struct{}{}
							links = append(links, p)
						}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func sitePath(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "", false
	}
	return u.EscapedPath(), true
}
