package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/orders-admin/internal/admin/views"
	"finitefield.org/orders-admin/internal/platform/requestctx"
)

type sessionContextKey string

const requestSessionKey sessionContextKey = "admin.view_session"

// ViewSessionConfig controls the cookie that ties a browser to its live views.
type ViewSessionConfig struct {
	CookieName string
	Path       string
	TTL        time.Duration
	Secure     bool
}

// ViewSession makes sure every request carries a view session identifier. A missing
// or malformed cookie is replaced with a fresh identifier.
func ViewSession(cfg ViewSessionConfig) func(http.Handler) http.Handler {
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = "orders_admin_view"
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(name); err == nil && views.ValidSessionID(cookie.Value) {
				id = cookie.Value
			}
			if id == "" {
				id = views.NewSessionID()
				requestctx.Logger(r.Context()).Debug("view session issued", zap.String("session_id", id))
			}

			cookie := &http.Cookie{
				Name:     name,
				Value:    id,
				Path:     path,
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if cfg.TTL > 0 {
				cookie.MaxAge = int(cfg.TTL / time.Second)
			}
			http.SetCookie(w, cookie)

			ctx := context.WithValue(r.Context(), requestSessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewSessionFromContext retrieves the view session attached to this request.
func ViewSessionFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestSessionKey).(string)
	return id, ok && id != ""
}
