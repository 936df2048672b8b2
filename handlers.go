package staticpress

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/staticpress/views"
)

func (a *App) handleHome(c echo.Context) error {
	return a.servePage(c, HomeRoute)
}

func (a *App) handleCategory(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	return a.servePage(c, CategoryRoute(slug))
}

func (a *App) handlePost(c echo.Context) error {
	slug, err := slugParam(c)
	if err != nil {
		return err
	}
	return a.servePage(c, PostRoute(slug))
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.servePage(c, SitemapRoute)
}

func (a *App) handleFeed(c echo.Context) error {
	return a.servePage(c, FeedRoute)
}

func (a *App) servePage(c echo.Context, r Route) error {
	page, state, err := a.Cache.Get(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return writePage(c, page, state)
}

func slugParam(c echo.Context) (string, error) {
	slug, err := url.PathUnescape(c.Param("slug"))
	if err != nil || strings.TrimSpace(slug) == "" || strings.Contains(slug, "/") {
		return "", echo.ErrNotFound
	}
	return slug, nil
}

func (a *App) handleRobots(c echo.Context) error {
	if custom := filepath.Join(a.Config.StaticDir, "robots.txt"); fileExists(custom) {
		return c.File(custom)
	}
	body := "User-agent: *\nAllow: /\nDisallow: /admin\n\nSitemap: " + views.BuildURL(a.Config.URL, "sitemap.xml") + "\n"
	return c.String(http.StatusOK, body)
}

func (a *App) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"pages":  len(a.Cache.Snapshot()),
	})
}

type revalidateRequest struct {
	Path string `json:"path" form:"path" query:"path"`
}

type revalidateResponse struct {
	Revalidated bool   `json:"revalidated"`
	Path        string `json:"path,omitempty"`
	Status      int    `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// handleRevalidateAPI regenerates one page on demand, e.g. from a CMS webhook.
// The shared secret comes from the X-Revalidate-Secret header or the secret
// query parameter. The endpoint does not exist when no secret is configured.
func (a *App) handleRevalidateAPI(c echo.Context) error {
	if a.Config.RevalidateSecret == "" {
		return echo.ErrNotFound
	}
	secret := c.Request().Header.Get("X-Revalidate-Secret")
	if secret == "" {
		secret = c.QueryParam("secret")
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.RevalidateSecret)) != 1 {
		return c.JSON(http.StatusUnauthorized, revalidateResponse{Error: "invalid secret"})
	}

	var req revalidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, revalidateResponse{Error: "invalid request"})
	}
	r, err := ParseRoute(req.Path)
	if err != nil {
		return c.JSON(http.StatusBadRequest, revalidateResponse{Path: req.Path, Error: err.Error()})
	}

	page, err := a.Cache.Revalidate(c.Request().Context(), r)
	if err != nil {
		a.Logger.Warn("On-demand revalidation failed", logRoute(r), logErr(err))
		return c.JSON(http.StatusBadGateway, revalidateResponse{Path: r.Path(), Status: page.StatusCode, Error: err.Error()})
	}
	a.Logger.Info("Revalidated on demand", logRoute(r), logStatus(page.Load))
	return c.JSON(http.StatusOK, revalidateResponse{Revalidated: true, Path: r.Path(), Status: page.StatusCode})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("Server error", slogPath(c), logErr(err))
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
