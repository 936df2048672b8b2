package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/staticpress/content"
)

// DateLayout renders dates as "March 15, 2024".
const DateLayout = "January 2, 2006"

// FormatTime formats t in UTC with DateLayout.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// FormatDate parses an RFC 3339 timestamp and formats it with DateLayout.
// Unparseable input is returned unchanged.
func FormatDate(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return FormatTime(t)
}

// JoinAuthors joins author names with ", ".
func JoinAuthors(authors []content.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// JoinCategories joins category titles with ", ".
func JoinCategories(cats []content.Category) string {
	titles := make([]string, 0, len(cats))
	for _, c := range cats {
		titles = append(titles, c.Title)
	}
	return strings.Join(titles, ", ")
}

// CategoryURL is the site path of a category page.
func CategoryURL(slug string) string {
	return "/category/" + url.PathEscape(slug)
}

// PostURL is the site path of a post page.
func PostURL(slug string) string {
	return "/posts/" + url.PathEscape(slug)
}

// BuildURL joins path segments onto a base URL.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// ArticleCount renders the category page counter line.
func ArticleCount(n int) string {
	return strconv.Itoa(n) + " article found."
}

// HomeMeta is the head metadata of the home page.
func HomeMeta(cfg SiteConfig) PageMeta {
	desc := cfg.Description
	if desc == "" {
		desc = "Latest blog posts and the quote of the day"
	}
	return PageMeta{Title: "Home Page", Description: desc, URL: BuildURL(cfg.URL), OGType: "website"}
}

// CategoryMeta is the head metadata of a category page.
func CategoryMeta(cfg SiteConfig, c content.Category) PageMeta {
	desc := c.Description
	if desc == "" {
		desc = "All blog posts in the " + c.Title + " category"
	}
	return PageMeta{
		Title:       c.Title + " - Blog Category",
		Description: desc,
		URL:         BuildURL(cfg.URL, "category", c.Slug),
		OGType:      "website",
	}
}

// PostMeta is the head metadata of a post page; SEO overrides on the post win.
func PostMeta(cfg SiteConfig, p content.Post) PageMeta {
	m := PageMeta{
		Title:       p.Title,
		Description: p.Title + " - Blog",
		URL:         BuildURL(cfg.URL, "posts", p.Slug),
		OGType:      "article",
		Author:      JoinAuthors(p.Authors),
		Section:     JoinCategories(p.Categories),
	}
	if d := p.Date(); !d.IsZero() {
		m.PublishedTime = d.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		m.ModifiedTime = p.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if p.Meta != nil {
		if p.Meta.Title != "" {
			m.Title = p.Meta.Title
		}
		if p.Meta.Description != "" {
			m.Description = p.Meta.Description
		}
		if p.Meta.Image != nil && p.Meta.Image.URL != "" {
			m.Image = p.Meta.Image.URL
		}
	}
	return m
}

// HeroAlt is the alt text of a post's hero image.
func HeroAlt(p content.Post) string {
	if p.HeroImage != nil && p.HeroImage.Alt != "" {
		return p.HeroImage.Alt
	}
	return p.Title
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, p content.Post) string {
	postURL := BuildURL(cfg.URL, "posts", p.Slug)
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "BlogPosting",
		"headline": p.Title,
		"url":      postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if d := p.Date(); !d.IsZero() {
		data["datePublished"] = d.UTC().Format(time.RFC3339)
	}
	if len(p.Authors) > 0 {
		authors := make([]map[string]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			authors = append(authors, map[string]string{"@type": "Person", "name": a.Name})
		}
		data["author"] = authors
	}
	if len(p.Categories) > 0 {
		data["keywords"] = JoinCategories(p.Categories)
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
