// Package admin guards the operator routes.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "alumnireg/pkg/domain-errors"
	"alumnireg/pkg/platform/httputil"
	request "alumnireg/pkg/platform/middleware/request"
	"alumnireg/pkg/requestcontext"
)

// HeaderName carries the shared operator token.
const HeaderName = "X-Admin-Token"

// RequireAdminToken answers 403 unless the request presents expected in
// X-Admin-Token. With no expected token configured every request is refused,
// which keeps the operator surface closed by default.
func RequireAdminToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expected)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderName))
			if len(want) > 0 && subtle.ConstantTimeCompare(got, want) == 1 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger.WarnContext(ctx, "operator request refused",
				"request_id", request.GetRequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"path", r.URL.Path,
				"token_present", len(got) > 0,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin token required"))
		})
	}
}
