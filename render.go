package staticpress

import (
	"fmt"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// writePage writes a generated page. Shared caches may keep it for its
// revalidation window and serve it stale while they refetch.
func writePage(c echo.Context, p Page, state CacheState) error {
	h := c.Response().Header()
	h.Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate", int(p.Revalidate/time.Second)))
	h.Set("X-Cache", string(state))
	if !p.GeneratedAt.IsZero() {
		h.Set("Last-Modified", p.GeneratedAt.UTC().Format(http.TimeFormat))
	}
	return c.Blob(p.StatusCode, p.ContentType, p.Body)
}
