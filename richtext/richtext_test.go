package richtext

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func doc(children string) json.RawMessage {
	return json.RawMessage(`{"root":{"type":"root","format":"","children":[` + children + `]}}`)
}

func render(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, raw); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestRenderParagraphFormats(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"type":"text","text":"plain","format":0}`, "plain"},
		{`{"type":"text","text":"bold","format":1}`, "<strong>bold</strong>"},
		{`{"type":"text","text":"italic","format":2}`, "<em>italic</em>"},
		{`{"type":"text","text":"both","format":3}`, "<strong><em>both</em></strong>"},
		{`{"type":"text","text":"code","format":16}`, "<code>code</code>"},
		{`{"type":"text","text":"<script>","format":0}`, "&lt;script&gt;"},
	}
	for _, tt := range tests {
		got := render(t, doc(`{"type":"paragraph","format":"left","children":[`+tt.input+`]}`))
		want := "<p>" + tt.expected + "</p>"
		if got != want {
			t.Errorf("Render(%s) = %q, want %q", tt.input, got, want)
		}
	}
}

func TestRenderPreservesOrder(t *testing.T) {
	got := render(t, doc(`
		{"type":"heading","tag":"h2","children":[{"type":"text","text":"One"}]},
		{"type":"paragraph","children":[{"type":"text","text":"Two"},{"type":"linebreak"},{"type":"text","text":"Three"}]},
		{"type":"horizontalrule"},
		{"type":"quote","children":[{"type":"text","text":"Four"}]}`))
	want := "<h2>One</h2><p>Two<br/>Three</p><hr/><blockquote>Four</blockquote>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderLists(t *testing.T) {
	got := render(t, doc(`
		{"type":"list","listType":"number","tag":"ol","children":[
			{"type":"listitem","value":1,"children":[{"type":"text","text":"first"}]},
			{"type":"listitem","value":2,"children":[{"type":"text","text":"second"}]}
		]},
		{"type":"list","listType":"bullet","tag":"ul","children":[
			{"type":"listitem","value":1,"children":[{"type":"text","text":"dot"}]}
		]}`))
	want := "<ol><li>first</li><li>second</li></ol><ul><li>dot</li></ul>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			`{"type":"link","fields":{"url":"https://go.dev","newTab":true,"linkType":"custom"},"children":[{"type":"text","text":"Go"}]}`,
			`<a href="https://go.dev" target="_blank" rel="noopener noreferrer">Go</a>`,
		},
		{
			`{"type":"link","fields":{"linkType":"internal","doc":{"relationTo":"posts","value":{"slug":"hello-world"}}},"children":[{"type":"text","text":"Hello"}]}`,
			`<a href="/posts/hello-world">Hello</a>`,
		},
		{
			`{"type":"link","fields":{"url":"javascript:alert(1)"},"children":[{"type":"text","text":"x"}]}`,
			`x`,
		},
		{
			`{"type":"autolink","fields":{"url":"mailto:a@b.c"},"children":[{"type":"text","text":"mail"}]}`,
			`<a href="mailto:a@b.c">mail</a>`,
		},
	}
	for _, tt := range tests {
		got := render(t, doc(`{"type":"paragraph","children":[`+tt.input+`]}`))
		want := "<p>" + tt.expected + "</p>"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestRenderUploadRewritesMediaURL(t *testing.T) {
	got := render(t, doc(`{"type":"upload","relationTo":"media","value":{"id":"m1","url":"https://cms.test/api/media/file/team%20photo.jpg","alt":"Team","mimeType":"image/jpeg","width":800,"height":600}}`))
	want := `<img src="/media/team photo.jpg" alt="Team" width="800" height="600" loading="lazy" decoding="async"/>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderUnknownNodeFallsThroughToChildren(t *testing.T) {
	got := render(t, doc(`{"type":"mystery","children":[{"type":"paragraph","children":[{"type":"text","text":"kept"}]}]},{"type":"block","fields":{"blockType":"banner"}}`))
	if got != "<p>kept</p>" {
		t.Errorf("got %q", got)
	}
}

func TestRenderCodeBlock(t *testing.T) {
	got := render(t, doc(`{"type":"code","language":"go","children":[{"type":"code-highlight","text":"if a < b {"},{"type":"linebreak"},{"type":"code-highlight","text":"}"}]}`))
	want := `<pre class="code-block"><code>if a &lt; b {<br/>}</code></pre>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEmptyAndInvalid(t *testing.T) {
	if !Empty(nil) {
		t.Error("nil document should be empty")
	}
	if !Empty(json.RawMessage(`null`)) {
		t.Error("null document should be empty")
	}
	if !Empty(doc("")) {
		t.Error("root without children should be empty")
	}
	if Empty(doc(`{"type":"paragraph","children":[]}`)) {
		t.Error("document with a paragraph should not be empty")
	}
	if _, err := Parse(json.RawMessage(`[1,2]`)); err == nil {
		t.Error("expected error for non-object document")
	}
	if _, err := Parse(json.RawMessage(`{"other":{}}`)); err == nil {
		t.Error("expected error for document without root")
	}
}

func TestHTML(t *testing.T) {
	out, ok := HTML(doc(`{"type":"paragraph","children":[{"type":"text","text":"hi"}]}`))
	if !ok || string(out) != "<p>hi</p>" {
		t.Errorf("HTML = %q, %v", out, ok)
	}
	if _, ok := HTML(json.RawMessage(`{"root":`)); ok {
		t.Error("expected not ok for broken JSON")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	err := Component(doc(`{"type":"paragraph","children":[{"type":"text","text":"component"}]}`)).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "<p>component</p>") {
		t.Errorf("got %q", buf.String())
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/a?b=1&c=2", "https://example.com/a?b=1&amp;c=2"},
		{"/posts/x", "/posts/x"},
		{"#top", "#top"},
		{"//evil.example/x", ""},
		{`/\evil.example`, ""},
		{" //evil.example", ""},
		{"javascript:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
