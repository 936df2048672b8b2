package staticpress

import (
	"log/slog"
	"time"
)

// Canonical log attribute keys.
const (
	keyRoute    = "route"
	keySlug     = "slug"
	keyKind     = "kind"
	keyStatus   = "status"
	keyBuildID  = "build_id"
	keyError    = "error"
	keyDuration = "duration_ms"
)

func logRoute(r Route) slog.Attr { return slog.String(keyRoute, r.Path()) }

func logSlug(s string) slog.Attr { return slog.String(keySlug, s) }

func logKind(k Kind) slog.Attr { return slog.String(keyKind, string(k)) }

func logStatus(s Status) slog.Attr { return slog.String(keyStatus, s.String()) }

func logBuildID(id string) slog.Attr { return slog.String(keyBuildID, id) }

func logErr(err error) slog.Attr {
	if err == nil {
		return slog.String(keyError, "")
	}
	return slog.String(keyError, err.Error())
}

func logDuration(d time.Duration) slog.Attr { return slog.Int64(keyDuration, d.Milliseconds()) }
