// Package admin resolves the reviewing administrator's identity.
//
// Authentication itself is delegated to an upstream forward-auth proxy
// (e.g. Authelia) which only forwards requests it has already authenticated
// and stamps the Remote-User header. This middleware never rejects: a missing
// header means the proxy is misconfigured, and blocking the action would hide
// that, so the action proceeds attributed to "unknown".
package admin

import (
	"context"
	"net/http"
)

// HeaderRemoteUser is the trusted identity header set by the proxy.
const HeaderRemoteUser = "Remote-User"

// UnknownReviewer is recorded when the proxy did not supply an identity.
const UnknownReviewer = "unknown"

type contextKeyReviewer struct{}

// Identity captures the Remote-User header into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reviewer := r.Header.Get(HeaderRemoteUser)
		if reviewer == "" {
			reviewer = UnknownReviewer
		}
		ctx := context.WithValue(r.Context(), contextKeyReviewer{}, reviewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Reviewer retrieves the administrator identity from the context.
func Reviewer(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyReviewer{}).(string); ok && v != "" {
		return v
	}
	return UnknownReviewer
}

// WithReviewer injects a reviewer identity into a context.
// Useful for service unit tests that don't run the middleware chain.
func WithReviewer(ctx context.Context, reviewer string) context.Context {
	return context.WithValue(ctx, contextKeyReviewer{}, reviewer)
}
