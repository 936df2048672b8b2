package staticpress

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eringen/staticpress/fetch"
)

// DefaultConfigFile is read by LoadConfig when present.
const DefaultConfigFile = "staticpress.yaml"

// SiteConfig holds all configuration for a staticpress site. It is built once
// at process start and handed to every component.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags

	APIURL   string `yaml:"api_url"`   // Content API base URL (CMS_API_URL)
	QuoteURL string `yaml:"quote_url"` // Quote-of-the-day endpoint

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite page store (default "data/pages.db")
	OutputDir    string `yaml:"output_dir"`    // Static export directory (default "out")
	MediaDir     string `yaml:"media_dir"`     // Local media cache (default "data/media")
	StaticDir    string `yaml:"static_dir"`    // User static assets served under /public

	AdminPassword    string `yaml:"admin_password"`    // Enables the admin dashboard
	SessionSecret    string `yaml:"session_secret"`    // Required with AdminPassword
	RevalidateSecret string `yaml:"revalidate_secret"` // Enables POST /api/revalidate
	CookieSecure     bool   `yaml:"cookie_secure"`     // Set true for HTTPS

	Fetch      FetchConfig      `yaml:"fetch"`
	Limits     LimitsConfig     `yaml:"limits"`
	Revalidate RevalidateConfig `yaml:"revalidate"`

	MediaMaxWidth  int    `yaml:"media_max_width"` // Downscale wider images (default 1600)
	MetricsEnabled bool   `yaml:"metrics"`         // Expose /metrics
	LogLevel       string `yaml:"log_level"`       // debug|info|warn|error
}

// FetchConfig bounds outbound requests.
type FetchConfig struct {
	Timeout    time.Duration     `yaml:"timeout"`     // per attempt (default 10s)
	Retries    int               `yaml:"retries"`     // after the first attempt (default 1)
	Backoff    fetch.BackoffMode `yaml:"backoff"`     // fixed|linear|exponential
	RetryDelay time.Duration     `yaml:"retry_delay"` // base delay (default 500ms)
}

// LimitsConfig sizes the API listings.
type LimitsConfig struct {
	Paths          int `yaml:"paths"`           // slugs enumerated per collection (default 100)
	HomePosts      int `yaml:"home_posts"`      // latest posts on the home page (default 5)
	HomeCategories int `yaml:"home_categories"` // categories on the home page (default 20)
	FeedPosts      int `yaml:"feed_posts"`      // RSS items (default 20)
}

// RevalidateConfig holds staleness windows and background job intervals.
type RevalidateConfig struct {
	Home      time.Duration `yaml:"home"`      // default 1h
	Category  time.Duration `yaml:"category"`  // default 1h
	Post      time.Duration `yaml:"post"`      // default 60s
	Feed      time.Duration `yaml:"feed"`      // sitemap + RSS, default 1h
	Failure   time.Duration `yaml:"failure"`   // retry window after a failed generation, default 60s
	Sweep     time.Duration `yaml:"sweep"`     // background stale sweep, default 1m
	Enumerate time.Duration `yaml:"enumerate"` // full path re-enumeration, default 1h
}

// DefaultConfig returns the configuration used when nothing is set. Fields
// where zero is a meaningful setting, like fetch.retries or the revalidate
// windows, only get their defaults here, so callers building a SiteConfig
// by hand should start from it.
func DefaultConfig() SiteConfig {
	c := SiteConfig{
		Fetch: FetchConfig{Retries: 1},
		Revalidate: RevalidateConfig{
			Home:     time.Hour,
			Category: time.Hour,
			Post:     60 * time.Second,
			Feed:     time.Hour,
			Failure:  60 * time.Second,
		},
	}
	c.setDefaults()
	return c
}

// setDefaults fills settings for which zero means "unset".
func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.MediaMaxWidth == 0 {
		c.MediaMaxWidth = 1600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.Backoff == "" {
		c.Fetch.Backoff = fetch.BackoffLinear
	}
	if c.Fetch.RetryDelay == 0 {
		c.Fetch.RetryDelay = 500 * time.Millisecond
	}

	if c.Limits.Paths == 0 {
		c.Limits.Paths = 100
	}
	if c.Limits.HomePosts == 0 {
		c.Limits.HomePosts = 5
	}
	if c.Limits.HomeCategories == 0 {
		c.Limits.HomeCategories = 20
	}
	if c.Limits.FeedPosts == 0 {
		c.Limits.FeedPosts = 20
	}

	if c.Revalidate.Sweep == 0 {
		c.Revalidate.Sweep = time.Minute
	}
	if c.Revalidate.Enumerate == 0 {
		c.Revalidate.Enumerate = time.Hour
	}
}

// Validate reports settings no component can work with.
func (c SiteConfig) Validate() error {
	var errs []error
	if c.Fetch.Timeout < 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must not be negative"))
	}
	if c.Fetch.Retries < 0 {
		errs = append(errs, fmt.Errorf("fetch.retries must not be negative"))
	}
	for name, v := range map[string]int{
		"limits.paths":           c.Limits.Paths,
		"limits.home_posts":      c.Limits.HomePosts,
		"limits.home_categories": c.Limits.HomeCategories,
		"limits.feed_posts":      c.Limits.FeedPosts,
		"media_max_width":        c.MediaMaxWidth,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	for name, d := range map[string]time.Duration{
		"revalidate.home":      c.Revalidate.Home,
		"revalidate.category":  c.Revalidate.Category,
		"revalidate.post":      c.Revalidate.Post,
		"revalidate.feed":      c.Revalidate.Feed,
		"revalidate.failure":   c.Revalidate.Failure,
		"revalidate.sweep":     c.Revalidate.Sweep,
		"revalidate.enumerate": c.Revalidate.Enumerate,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.AdminPassword != "" && c.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("session_secret is required when admin_password is set"))
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FetchPolicy is the retry policy for outbound requests.
func (c SiteConfig) FetchPolicy() fetch.Policy {
	return fetch.NewPolicy(c.Fetch.Backoff, c.Fetch.RetryDelay, 10*c.Fetch.RetryDelay, c.Fetch.Retries)
}

// LoadConfig builds the configuration from defaults, the YAML file at path
// (skipped when it does not exist) and the environment, in that order of
// precedence. A .env file in the working directory is loaded first without
// overriding variables already set.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return SiteConfig{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return SiteConfig{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func applyEnv(c *SiteConfig) error {
	str := map[string]*string{
		"CMS_API_URL":       &c.APIURL,
		"QUOTE_URL":         &c.QuoteURL,
		"SITE_NAME":         &c.Name,
		"SITE_URL":          &c.URL,
		"SITE_DESCRIPTION":  &c.Description,
		"ADDR":              &c.Addr,
		"DATABASE_PATH":     &c.DatabasePath,
		"OUTPUT_DIR":        &c.OutputDir,
		"MEDIA_DIR":         &c.MediaDir,
		"STATIC_DIR":        &c.StaticDir,
		"ADMIN_PASSWORD":    &c.AdminPassword,
		"SESSION_SECRET":    &c.SessionSecret,
		"REVALIDATE_SECRET": &c.RevalidateSecret,
		"LOG_LEVEL":         &c.LogLevel,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("METRICS: %w", err)
		}
		c.MetricsEnabled = b
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := os.Getenv("FETCH_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FETCH_RETRIES: %w", err)
		}
		c.Fetch.Retries = n
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger returns the text logger configured by LogLevel; verbose forces debug.
func (c SiteConfig) NewLogger(verbose bool) *slog.Logger {
	level, _ := parseLogLevel(c.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithViews replaces the built-in page templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithLogger sets the logger used by every component.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

// WithContentSource replaces the content API client, e.g. in tests.
func WithContentSource(src ContentSource) Option {
	return func(a *App) {
		a.contentSource = src
	}
}

// WithQuoteSource replaces the quote service client.
func WithQuoteSource(src QuoteSource) Option {
	return func(a *App) {
		a.quoteSource = src
	}
}
