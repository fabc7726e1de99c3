// Package e2e drives a running registration API through its HTTP surface.
// Scenarios live under features/ and run with `go test` from this module when
// E2E_BASE_URL points at a server started with APP_ENV other than production.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext holds one scenario's HTTP client and remembered values.
type TestContext struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client

	LastResponse     *http.Response
	LastResponseBody []byte

	values map[string]string
}

// NewTestContext returns a context for one scenario.
func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		values:     make(map[string]string),
	}
}

// Reset forgets everything remembered by the previous scenario.
func (tc *TestContext) Reset() {
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	tc.values = make(map[string]string)
}

func (tc *TestContext) Set(key, value string) { tc.values[key] = value }

func (tc *TestContext) Get(key string) string { return tc.values[key] }

// Expand replaces {key} placeholders with remembered values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.values {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) GetAdminToken() string { return tc.AdminToken }

// POST sends body as JSON. A string body is sent verbatim.
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	case []byte:
		payload = b
	default:
		var err error
		if payload, err = json.Marshal(b); err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}
	return tc.do(http.MethodPost, path, payload, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, payload []byte, headers map[string]string) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte { return tc.LastResponseBody }

// GetResponseField reads a dotted path such as "registration.payment_status"
// from the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.LastResponseBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w (body: %s)", err, tc.LastResponseBody)
	}
	current := doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if current, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", field, tc.LastResponseBody)
		}
	}
	return current, nil
}
