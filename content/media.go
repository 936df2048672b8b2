package content

import (
	"net/url"
	"strings"
)

// apiMediaSegment is where the content API serves uploaded files.
const apiMediaSegment = "/api/media/file/"

// PublicMediaPrefix is where the site serves the same files.
const PublicMediaPrefix = "/media/"

// PublicMediaURL rewrites an API file URL (".../api/media/file/<name>") to the
// site's public path ("/media/<name>") with the file name percent-decoded.
// Any other URL is returned unchanged, so the rewrite is safe to repeat.
func PublicMediaURL(raw string) string {
	_, rest, ok := strings.Cut(raw, apiMediaSegment)
	if !ok {
		return raw
	}
	if i := strings.Index(rest, apiMediaSegment); i >= 0 {
		rest = rest[:i]
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		name = rest
	}
	return PublicMediaPrefix + name
}

// APIMediaURL is the inverse: the content API URL for a public file name.
func APIMediaURL(baseURL, filename string) string {
	return strings.TrimRight(baseURL, "/") + apiMediaSegment + url.PathEscape(filename)
}
