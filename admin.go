package staticpress

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/staticpress/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, a.Views.AdminLogin(false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn("Failed admin login", slogPath(c))
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func (a *App) handleAdminRevalidate(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	r, err := ParseRoute(c.FormValue("route"))
	if err != nil {
		return redirectWithMsg(c, "Unknown route.")
	}
	if _, err := a.Cache.Revalidate(c.Request().Context(), r); err != nil {
		a.Logger.Warn("Admin revalidation failed", logRoute(r), logErr(err))
		return redirectWithMsg(c, "Revalidation of "+r.Path()+" failed; the previous page was kept.")
	}
	return redirectWithMsg(c, "Revalidated "+r.Path()+".")
}

func (a *App) handleAdminPurge(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	a.Cache.Purge()
	a.Logger.Info("Page cache purged")
	return redirectWithMsg(c, "Cache purged.")
}

func (a *App) handleAdminRebuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	report, err := a.Builder.Build(c.Request().Context(), "")
	if err != nil {
		return err
	}
	msg := "Rebuilt " + strconv.Itoa(report.Pages) + " pages"
	if report.Failed > 0 {
		msg += ", " + strconv.Itoa(report.Failed) + " failed"
	}
	return redirectWithMsg(c, msg+".")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	now := time.Now()
	pages := a.Cache.Snapshot()
	rows := make([]views.PageRow, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, views.PageRow{
			Route:       p.Route.Path(),
			StatusCode:  p.StatusCode,
			GeneratedAt: p.GeneratedAt,
			Revalidate:  p.Revalidate,
			Stale:       p.Stale(now),
		})
	}
	builds, err := a.Store.ListBuilds(10)
	if err != nil {
		return err
	}
	buildRows := make([]views.BuildRow, 0, len(builds))
	for _, b := range builds {
		buildRows = append(buildRows, views.BuildRow{
			ID:          b.ID,
			StartedAt:   b.StartedAt,
			Duration:    b.Duration,
			Pages:       b.Pages,
			NotFound:    b.NotFound,
			Failed:      b.Failed,
			BrokenLinks: len(b.BrokenLinks),
		})
	}
	return Render(c, a.Views.AdminDashboard(views.AdminDashboardProps{
		Pages:   rows,
		Builds:  buildRows,
		Message: msg,
		CSRF:    CsrfToken(c),
	}))
}

func redirectWithMsg(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin?msg="+url.QueryEscape(msg))
}
