// Package richtext renders the content API's rich-text document tree (a
// Lexical editor state) to HTML as a templ component. The tree is consumed as
// delivered: nodes render in order and unknown node types fall through to
// their children.
package richtext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/staticpress/content"
)

// ErrInvalid is returned for documents that are not a rich-text tree.
var ErrInvalid = errors.New("richtext: invalid document")

// Text format bits as stored on text nodes.
const (
	FormatBold = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

// Node is one element of the document tree. Fields whose shape depends on
// the node type stay raw until rendering needs them.
type Node struct {
	Type     string          `json:"type"`
	Children []Node          `json:"children,omitempty"`
	Text     string          `json:"text,omitempty"`
	Format   json.RawMessage `json:"format,omitempty"`
	Tag      string          `json:"tag,omitempty"`
	ListType string          `json:"listType,omitempty"`
	Checked  *bool           `json:"checked,omitempty"`
	Fields   json.RawMessage `json:"fields,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	URL      string          `json:"url,omitempty"`
}

// textFormat returns the bitmask on text nodes; element nodes carry an
// alignment string in the same key and yield 0.
func (n Node) textFormat() int {
	if len(n.Format) == 0 || n.Format[0] == '"' {
		return 0
	}
	v, err := strconv.Atoi(string(n.Format))
	if err != nil {
		return 0
	}
	return v
}

type document struct {
	Root *Node `json:"root"`
}

// Parse decodes a document into its root node.
func Parse(raw json.RawMessage) (Node, error) {
	if isNull(raw) {
		return Node{Type: "root"}, nil
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc.Root == nil {
		return Node{}, ErrInvalid
	}
	return *doc.Root, nil
}

// Empty reports whether the document has nothing to show.
func Empty(raw json.RawMessage) bool {
	root, err := Parse(raw)
	return err != nil || len(root.Children) == 0
}

// Component returns a templ.Component that renders the document.
func Component(raw json.RawMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Render(w, raw)
	})
}

// Render writes the HTML for the document to w.
func Render(w io.Writer, raw json.RawMessage) error {
	root, err := Parse(raw)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	renderChildren(&buf, root)
	_, err = w.Write(buf.Bytes())
	return err
}

// HTML renders the document for use inside html/template. ok is false when
// the document is invalid or empty.
func HTML(raw json.RawMessage) (out template.HTML, ok bool) {
	root, err := Parse(raw)
	if err != nil || len(root.Children) == 0 {
		return "", false
	}
	var buf bytes.Buffer
	renderChildren(&buf, root)
	return template.HTML(buf.String()), true
}

func renderChildren(buf *bytes.Buffer, n Node) {
	for _, c := range n.Children {
		renderNode(buf, c)
	}
}

func renderNode(buf *bytes.Buffer, n Node) {
	switch n.Type {
	case "text":
		renderText(buf, n)
	case "linebreak":
		buf.WriteString("<br/>")
	case "tab":
		buf.WriteString("\t")
	case "paragraph":
		wrap(buf, "p", "", n)
	case "heading":
		tag := n.Tag
		if !validHeading(tag) {
			tag = "h2"
		}
		wrap(buf, tag, "", n)
	case "quote":
		wrap(buf, "blockquote", "", n)
	case "list":
		tag := "ul"
		if n.ListType == "number" || n.Tag == "ol" {
			tag = "ol"
		}
		attrs := ""
		if n.ListType == "check" {
			attrs = ` class="checklist"`
		}
		wrap(buf, tag, attrs, n)
	case "listitem":
		attrs := ""
		if n.Checked != nil {
			if *n.Checked {
				attrs = ` aria-checked="true"`
			} else {
				attrs = ` aria-checked="false"`
			}
		}
		wrap(buf, "li", attrs, n)
	case "horizontalrule":
		buf.WriteString("<hr/>")
	case "code":
		buf.WriteString(`<pre class="code-block"><code>`)
		renderChildren(buf, n)
		buf.WriteString("</code></pre>")
	case "code-highlight":
		buf.WriteString(html.EscapeString(n.Text))
	case "link", "autolink":
		renderLink(buf, n)
	case "upload":
		renderUpload(buf, n)
	case "block", "relationship":
		// Embedded blocks have no generic HTML form.
	default:
		renderChildren(buf, n)
	}
}

func wrap(buf *bytes.Buffer, tag, attrs string, n Node) {
	buf.WriteString("<" + tag + attrs + ">")
	renderChildren(buf, n)
	buf.WriteString("</" + tag + ">")
}

func renderText(buf *bytes.Buffer, n Node) {
	f := n.textFormat()
	// Opening order is outermost first; closing mirrors it.
	tags := []struct {
		bit int
		tag string
	}{
		{FormatBold, "strong"},
		{FormatItalic, "em"},
		{FormatUnderline, "u"},
		{FormatStrikethrough, "s"},
		{FormatSubscript, "sub"},
		{FormatSuperscript, "sup"},
		{FormatCode, "code"},
	}
	var open []string
	for _, t := range tags {
		if f&t.bit != 0 {
			buf.WriteString("<" + t.tag + ">")
			open = append(open, t.tag)
		}
	}
	buf.WriteString(html.EscapeString(n.Text))
	for i := len(open) - 1; i >= 0; i-- {
		buf.WriteString("</" + open[i] + ">")
	}
}

type linkFields struct {
	URL      string `json:"url"`
	NewTab   bool   `json:"newTab"`
	LinkType string `json:"linkType"`
	Doc      *struct {
		RelationTo string `json:"relationTo"`
		Value      struct {
			Slug string `json:"slug"`
		} `json:"value"`
	} `json:"doc"`
}

func renderLink(buf *bytes.Buffer, n Node) {
	var f linkFields
	if len(n.Fields) > 0 {
		_ = json.Unmarshal(n.Fields, &f)
	}
	href := f.URL
	if href == "" {
		href = n.URL
	}
	if f.LinkType == "internal" && f.Doc != nil && f.Doc.Value.Slug != "" {
		href = internalHref(f.Doc.RelationTo, f.Doc.Value.Slug)
	}
	href = SafeURL(href)
	if href == "" {
		renderChildren(buf, n)
		return
	}
	buf.WriteString(`<a href="` + href + `"`)
	if f.NewTab {
		buf.WriteString(` target="_blank" rel="noopener noreferrer"`)
	}
	buf.WriteString(">")
	renderChildren(buf, n)
	buf.WriteString("</a>")
}

func internalHref(collection, slug string) string {
	switch collection {
	case content.CollectionCategories:
		return "/category/" + url.PathEscape(slug)
	default:
		return "/posts/" + url.PathEscape(slug)
	}
}

type uploadValue struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func renderUpload(buf *bytes.Buffer, n Node) {
	if isNull(n.Value) || n.Value[0] != '{' {
		return
	}
	var v uploadValue
	if err := json.Unmarshal(n.Value, &v); err != nil {
		return
	}
	src := SafeURL(content.PublicMediaURL(v.URL))
	if src == "" {
		return
	}
	if v.MimeType != "" && !strings.HasPrefix(v.MimeType, "image/") {
		label := v.Filename
		if label == "" {
			label = v.URL
		}
		buf.WriteString(`<a href="` + src + `">` + html.EscapeString(label) + `</a>`)
		return
	}
	buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(v.Alt) + `"`)
	if v.Width > 0 && v.Height > 0 {
		buf.WriteString(` width="` + strconv.Itoa(v.Width) + `" height="` + strconv.Itoa(v.Height) + `"`)
	}
	buf.WriteString(` loading="lazy" decoding="async"/>`)
}

// SafeURL validates and escapes a URL for use in HTML attributes; unsafe
// schemes and protocol-relative URLs yield "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	// "//host" and "/\host" load from another host.
	if strings.HasPrefix(val, "//") || strings.HasPrefix(val, `/\`) {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}

func validHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, []byte("null"))
}
