// Package content is a read-only client for the headless content API that
// serves posts, categories and media to the blog.
package content

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// ID identifies a document in the content store. The API emits string ids for
// document databases and numeric ids for relational ones; both decode here.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Author is referenced by posts through populatedAuthors.
type Author struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Category groups posts. Slug addresses the category page.
type Category struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts a populated category object or a bare reference id.
func (c *Category) UnmarshalJSON(b []byte) error {
	if isScalar(b) {
		*c = Category{}
		return c.ID.UnmarshalJSON(b)
	}
	type plain Category
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*c = Category(p)
	return nil
}

// Media is an uploaded file such as a post's hero image.
type Media struct {
	ID       ID     `json:"id"`
	URL      string `json:"url,omitempty"`
	Alt      string `json:"alt,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// UnmarshalJSON accepts a populated media object or a bare reference id.
func (m *Media) UnmarshalJSON(b []byte) error {
	if isScalar(b) {
		*m = Media{}
		return m.ID.UnmarshalJSON(b)
	}
	type plain Media
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Media(p)
	return nil
}

// Meta carries per-post SEO overrides.
type Meta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       *Media `json:"image,omitempty"`
}

// Post is a blog entry with its relations already populated by the API.
type Post struct {
	ID    ID     `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	// Content is the rich-text document tree, kept exactly as received.
	Content     json.RawMessage `json:"content,omitempty"`
	HeroImage   *Media          `json:"heroImage,omitempty"`
	Authors     []Author        `json:"populatedAuthors,omitempty"`
	Categories  []Category      `json:"categories,omitempty"`
	Meta        *Meta           `json:"meta,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty"`
}

// Date is the timestamp shown to readers: publish time, else creation time.
func (p Post) Date() time.Time {
	if p.PublishedAt != nil && !p.PublishedAt.IsZero() {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// HasCategory reports whether the post references the category id.
func (p Post) HasCategory(id ID) bool {
	for _, c := range p.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// HeroURL returns the public URL of the hero image, or "".
func (p Post) HeroURL() string {
	if p.HeroImage == nil {
		return ""
	}
	return PublicMediaURL(p.HeroImage.URL)
}

func isScalar(b []byte) bool {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return false
	}
	return !strings.ContainsRune("{[", rune(b[0]))
}
