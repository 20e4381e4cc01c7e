package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	flasky "github.com/nmheeir/Flask-Web-Development"
	"github.com/nmheeir/Flask-Web-Development/permission"
)

// IdentityResolver turns an auth token into an Identity. *flasky.Engine
// implements it.
type IdentityResolver interface {
	IdentityFromAuthToken(ctx context.Context, tok string) (flasky.Identity, error)
}

var _ IdentityResolver = (*flasky.Engine)(nil)

type identityContextKey struct{}

// IdentityFromContext returns the identity attached by Guard, or the Guest.
func IdentityFromContext(ctx context.Context) flasky.Identity {
	if id, ok := ctx.Value(identityContextKey{}).(flasky.Identity); ok && id != nil {
		return id
	}
	return flasky.Guest{}
}

// ClientIP attaches the remote host of the request with flasky.WithClientIP.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(withRemoteAddr(r)))
	})
}

// Guard requires a valid bearer auth token. Rate limited callers get 429,
// an unreachable limiter 503, anything else 401.
func Guard(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := withRemoteAddr(r)
			id, err := resolver.IdentityFromAuthToken(ctx, token)
			switch {
			case errors.Is(err, flasky.ErrRateLimited):
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			case errors.Is(err, flasky.ErrLimiterUnavailable):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			case err != nil || id == nil:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission answers 403 unless the identity in the request context
// has perm. Without Guard in front every request is a Guest and is refused.
func RequirePermission(perm permission.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFromContext(r.Context()).Can(perm) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withRemoteAddr(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return r.Context()
	}
	return flasky.WithClientIP(r.Context(), host)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
