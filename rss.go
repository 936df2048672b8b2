package staticpress

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/eringen/staticpress/views"
)

const mimeRSS = "application/rss+xml; charset=utf-8"

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        string   `xml:"guid"`
}

func renderFeed(cfg SiteConfig, props FeedProps) ([]byte, error) {
	base := cfg.URL
	items := make([]rssItem, 0, len(props.Posts))
	for _, p := range props.Posts {
		pubDate := ""
		if d := p.Date(); !d.IsZero() {
			pubDate = d.UTC().Format(time.RFC1123Z)
		}
		description := p.Title
		if p.Meta != nil && p.Meta.Description != "" {
			description = p.Meta.Description
		}
		var cats []string
		for _, c := range p.Categories {
			if c.Title != "" {
				cats = append(cats, c.Title)
			}
		}
		postURL := views.BuildURL(base, "posts", p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: description,
			Author:      views.JoinAuthors(p.Authors),
			Categories:  cats,
			PubDate:     pubDate,
			GUID:        postURL,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        views.BuildURL(base),
			Description: cfg.Description,
			Items:       items,
		},
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(feed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
