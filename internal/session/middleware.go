package session

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Middleware attaches a session id to every request, issuing a signed
// cookie when the request carries none or a tampered one.
func Middleware(signer *Signer, opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(opts.Name); err == nil {
				id, _ = signer.Verify(c.Value)
			}
			if id == "" {
				id = NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     opts.Name,
					Value:    signer.Sign(id),
					Path:     "/",
					MaxAge:   int(opts.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID stores a session id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFromContext returns the session id set by Middleware.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
