package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"alumnireg/pkg/requestcontext"
)

// ClientMetadata extracts client IP, User-Agent and a parsed device label from
// the request and adds them to the context. Apply early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent)
		ctx = requestcontext.WithDevice(ctx, DeviceLabel(userAgent))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceLabel renders a short "Browser on OS" label from a User-Agent string.
func DeviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	osName := ua.OS()
	switch {
	case browser != "" && osName != "":
		label := browser + " on " + osName
		if ua.Mobile() {
			label += " (mobile)"
		}
		return label
	case browser != "":
		return browser
	case osName != "":
		return osName
	default:
		return "unknown"
	}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can hold "client, proxy1, proxy2"; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port".
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}

	return "unknown"
}
