package ratelimit

import (
	"net/http"
	"strconv"

	domainerrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/platform/httputil"
	"regdesk/pkg/platform/middleware/metadata"
)

// Middleware rejects requests from clients over their submission limit.
// A nil limiter disables limiting.
func Middleware(limiter *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := metadata.GetClientIP(r.Context())
			if key == "" {
				key = metadata.ClientIPFromRequest(r)
			}

			if !limiter.Allow(r.Context(), key) {
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.Window().Seconds())))
				httputil.WriteErrorWithStatus(w, http.StatusTooManyRequests,
					domainerrors.New("rate_limited", "too many registration requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
