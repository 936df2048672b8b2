package staticpress

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/eringen/staticpress/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func renderSitemap(cfg SiteConfig, props SitemapProps) ([]byte, error) {
	base := cfg.URL
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
	}
	for _, c := range props.Categories {
		if c.Slug == "" {
			continue
		}
		urls = append(urls, sitemapURL{Loc: views.BuildURL(base, "category", c.Slug)})
	}
	for _, p := range props.Posts {
		if p.Slug == "" {
			continue
		}
		lastMod := p.UpdatedAt
		if lastMod.IsZero() {
			lastMod = p.Date()
		}
		u := sitemapURL{Loc: views.BuildURL(base, "posts", p.Slug)}
		if !lastMod.IsZero() {
			u.LastMod = lastMod.UTC().Format(time.DateOnly)
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(sitemap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
