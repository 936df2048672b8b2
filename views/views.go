// Package views renders blog pages. Every page is an html/template set
// (layout + partials + page) exposed as a templ.Component, so the renderer is
// a pure function of its props with no I/O of its own.
package views

import (
	"embed"
	"encoding/json"
	"html/template"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/staticpress/content"
	"github.com/eringen/staticpress/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageFiles = []string{
	"home.html",
	"category.html",
	"post.html",
	"notfound.html",
	"servererror.html",
	"admin_login.html",
	"admin_dashboard.html",
}

var funcs = template.FuncMap{
	"formatTime":   FormatTime,
	"joinAuthors":  JoinAuthors,
	"categoryURL":  CategoryURL,
	"postURL":      PostURL,
	"heroAlt":      HeroAlt,
	"articleCount": ArticleCount,
	"card": func(p content.Post, date time.Time) postCard {
		return postCard{Post: p, Date: date}
	},
	"isoTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04:05")
	},
	"emptyContent": func(raw json.RawMessage) bool {
		return richtext.Empty(raw)
	},
	"richtext": func(raw json.RawMessage) template.HTML {
		out, _ := richtext.HTML(raw)
		return out
	},
}

// Views renders every page of the site.
type Views struct {
	site  SiteConfig
	pages map[string]*template.Template
}

type pageData struct {
	Site   SiteConfig
	Meta   PageMeta
	JSONLD template.JS
	Props  any
}

// postCard is one entry of a post listing with the date it shows.
type postCard struct {
	Post content.Post
	Date time.Time
}

type loginProps struct {
	ShowError bool
	CSRF      string
}

// New parses the embedded templates. It panics if they do not parse, which
// can only happen when the binary was built with broken templates.
func New(site SiteConfig) *Views {
	v := &Views{site: site, pages: make(map[string]*template.Template, len(pageFiles))}
	for _, page := range pageFiles {
		t := template.Must(template.New("").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+page,
		))
		v.pages[page] = t.Lookup("layout")
	}
	return v
}

func (v *Views) page(name string, meta PageMeta, jsonLD string, props any) templ.Component {
	return templ.FromGoHTML(v.pages[name], pageData{
		Site:   v.site,
		Meta:   meta,
		JSONLD: template.JS(jsonLD),
		Props:  props,
	})
}

// Home renders the home page.
func (v *Views) Home(p HomeProps) templ.Component {
	return v.page("home.html", HomeMeta(v.site), WebsiteJsonLD(v.site), p)
}

// Category renders a category page.
func (v *Views) Category(p CategoryProps) templ.Component {
	return v.page("category.html", CategoryMeta(v.site, p.Category), "", p)
}

// Post renders a post page.
func (v *Views) Post(p PostProps) templ.Component {
	return v.page("post.html", PostMeta(v.site, p.Post), BlogPostingJsonLD(v.site, p.Post), p)
}

// NotFound renders the 404 page.
func (v *Views) NotFound() templ.Component {
	return v.page("notfound.html", PageMeta{Title: "Page not found", Description: "This page could not be found."}, "", nil)
}

// ServerError renders the 500 page.
func (v *Views) ServerError() templ.Component {
	return v.page("servererror.html", PageMeta{Title: "Server error", Description: "Something went wrong."}, "", nil)
}

// AdminLogin renders the admin login form.
func (v *Views) AdminLogin(showError bool, csrfToken string) templ.Component {
	return v.page("admin_login.html", PageMeta{Title: "Admin"}, "", loginProps{ShowError: showError, CSRF: csrfToken})
}

// AdminDashboard renders the cache dashboard.
func (v *Views) AdminDashboard(p AdminDashboardProps) templ.Component {
	return v.page("admin_dashboard.html", PageMeta{Title: "Admin"}, "", p)
}
