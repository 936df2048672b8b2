// Package staticpress is a statically generated blog front-end for a headless
// CMS, built with Go, Echo, and templ.
//
// Pages are generated from the content API ahead of time and served from a
// cache that regenerates them in the background once their revalidation
// window has passed (stale-while-revalidate). Pages for content published
// after the build are generated on their first request.
//
// Users may replace the built-in templates via the ViewFuncs struct;
// staticpress handles loading, generation, caching, the HTTP server and the
// static export.
package staticpress

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/fetch"
	"github.com/eringen/staticpress/quote"
	"github.com/eringen/staticpress/views"
)

// ViewFuncs holds the components the framework renders pages with. This is
// the inversion-of-control point that lets users own the templates.
type ViewFuncs struct {
	Home           func(p views.HomeProps) templ.Component
	Category       func(p views.CategoryProps) templ.Component
	Post           func(p views.PostProps) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(p views.AdminDashboardProps) templ.Component
}

// DefaultViews returns the built-in templates for cfg.
func DefaultViews(cfg SiteConfig) ViewFuncs {
	v := views.New(views.SiteConfig{Name: cfg.Name, URL: cfg.URL, Description: cfg.Description})
	return ViewFuncs{
		Home:           v.Home,
		Category:       v.Category,
		Post:           v.Post,
		NotFound:       v.NotFound,
		ServerError:    v.ServerError,
		AdminLogin:     v.AdminLogin,
		AdminDashboard: v.AdminDashboard,
	}
}

// App is the central staticpress application. It wires together the content
// pipeline, generator, page cache, store, scheduler and HTTP handlers.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Cache     *PageCache
	Pipeline  *Pipeline
	Generator *Generator
	Builder   *Builder
	Metrics   *Metrics
	Views     ViewFuncs
	Policy    RevalidationPolicy
	Logger    *slog.Logger

	contentSource ContentSource
	quoteSource   QuoteSource
	loginLimiter  *LoginLimiter
	media         *MediaProxy
	scheduler     *Scheduler
	customRoutes  []func(*App)
	initialized   bool
}

// New creates a staticpress App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Policy: PolicyFromConfig(cfg),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = cfg.NewLogger(false)
	}
	if a.Views.Home == nil {
		a.Views = DefaultViews(cfg)
	}
	return a
}

// Init opens the store and wires every component. It is called by Start and
// Build and is safe to call more than once.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("staticpress: invalid config: %w", err)
	}
	if a.Config.APIURL == "" && a.contentSource == nil {
		a.Logger.Warn("CMS_API_URL is not set; every content fetch will fail")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("staticpress: init store: %w", err)
	}
	a.Store = store

	a.Metrics = NewMetrics(nil)

	fc := fetch.New(a.Config.Fetch.Timeout, a.Config.FetchPolicy())
	fc.Observe = a.Metrics.ObserveFetch
	fc.UserAgent = "staticpress"
	if a.contentSource == nil {
		a.contentSource = content.NewClient(a.Config.APIURL, fc)
	}
	if a.quoteSource == nil {
		a.quoteSource = quote.NewClient(a.Config.QuoteURL, fc)
	}

	a.Pipeline = NewPipeline(a.contentSource, a.quoteSource, a.Config.Limits, a.Logger)
	a.Generator = NewGenerator(a.Config, a.Pipeline, a.Views, a.Policy, a.Metrics, a.Logger)
	a.Cache = NewPageCache(a.Generator, a.Store, a.Policy.Failure, a.Metrics, a.Logger)
	a.Builder = NewBuilder(a.Pipeline, a.Generator, a.Views, a.Cache, a.Store, a.Metrics, a.Logger)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.media = NewMediaProxy(a.Config.APIURL, a.Config.MediaDir, a.Config.MediaMaxWidth, fc.HTTP, a.Logger)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Build generates every enumerable page and exports it to outDir.
func (a *App) Build(ctx context.Context, outDir string) (BuildReport, error) {
	if err := a.Init(); err != nil {
		return BuildReport{}, err
	}
	return a.Builder.Build(ctx, outDir)
}

// Start restores persisted pages, pre-generates every enumerable page unless
// prebuild is false, starts the background revalidation jobs and serves HTTP
// until ctx is cancelled.
func (a *App) Start(ctx context.Context, prebuild bool) error {
	if err := a.Init(); err != nil {
		return err
	}

	if n, err := a.Cache.Warm(); err != nil {
		a.Logger.Error("Failed to restore stored pages", logErr(err))
	} else if n > 0 {
		a.Logger.Info("Restored stored pages", slog.Int("pages", n))
	}
	if prebuild {
		if _, err := a.Builder.Build(ctx, ""); err != nil {
			return fmt.Errorf("staticpress: prebuild: %w", err)
		}
	}

	sched, err := NewScheduler(a.Cache, a.Builder, a.Logger)
	if err != nil {
		return fmt.Errorf("staticpress: %w", err)
	}
	if _, err := sched.ScheduleSweep(a.Config.Revalidate.Sweep); err != nil {
		return fmt.Errorf("staticpress: %w", err)
	}
	if _, err := sched.ScheduleEnumerate(a.Config.Revalidate.Enumerate); err != nil {
		return fmt.Errorf("staticpress: %w", err)
	}
	a.scheduler = sched
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Listening", slog.String("addr", a.Config.Addr))
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework stylesheet, falling through to the user's static dir for
	// everything else under /public.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealthz)
	if a.Config.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/category/:slug", a.handleCategory)
	e.GET("/posts/:slug", a.handlePost)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/media/:filename", a.handleMedia)

	// On-demand revalidation
	e.POST("/api/revalidate", a.handleRevalidateAPI)

	// Admin routes
	if a.Config.AdminPassword != "" {
		e.GET("/admin", a.handleAdmin)
		e.POST("/admin/login", a.handleAdminLogin)
		e.POST("/admin/logout", handleAdminLogout)
		e.POST("/admin/revalidate", a.handleAdminRevalidate)
		e.POST("/admin/purge", a.handleAdminPurge)
		e.POST("/admin/rebuild", a.handleAdminRebuild)
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
