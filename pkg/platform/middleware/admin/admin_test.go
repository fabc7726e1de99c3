package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		expected string
		header   string
		status   int
	}{
		{"matching token passes", "s3cret", "s3cret", http.StatusNoContent},
		{"wrong token refused", "s3cret", "guess", http.StatusForbidden},
		{"missing token refused", "s3cret", "", http.StatusForbidden},
		{"unconfigured surface refuses everything", "", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tt.header != "" {
				req.Header.Set(HeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			RequireAdminToken(tt.expected, logger)(ok).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusForbidden {
				assert.Contains(t, rr.Body.String(), `"forbidden"`)
			}
		})
	}
}
