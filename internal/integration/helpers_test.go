//go:build integration

// Package integration drives a running review page over HTTP. Start the stack
// with a seeded catalog (go run ./cmd/seed) and ANALYZER_PROVIDER=noop, then
// run: go test -tags integration ./internal/integration/...
package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// baseURL returns the review page address, REVIEW_BASE_URL or the local default.
func baseURL() string {
	if v := os.Getenv("REVIEW_BASE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8011"
}

// seededProductID is a product written by cmd/seed.
func seededProductID() string {
	if v := os.Getenv("REVIEW_TEST_PRODUCT"); v != "" {
		return v
	}
	return "trail-runner-2"
}

// skipIfNotRunning performs a quick liveness check. If the service is
// unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("review page at %s not reachable: %v", baseURL(), err)
	}
	resp.Body.Close()
}

// newBrowser returns a client that keeps the session cookie and follows the
// page's 303 redirects, like a browser would.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 30 * time.Second}
}

// getPage fetches a review page until it stops rendering the loading
// indicator, returning the final status and body.
func getPage(t *testing.T, client *http.Client, productID string) (int, string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp, err := client.Get(baseURL() + "/products/" + url.PathEscape(productID) + "/review")
		require.NoError(t, err)
		body := readBody(t, resp)
		if !strings.Contains(body, `aria-label="Loading"`) || time.Now().After(deadline) {
			return resp.StatusCode, body
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// postForm submits a form to a path under the product's review page.
func postForm(t *testing.T, client *http.Client, productID, suffix string, form url.Values) (int, string) {
	t.Helper()
	resp, err := client.PostForm(baseURL()+"/products/"+url.PathEscape(productID)+"/review"+suffix, form)
	require.NoError(t, err)
	return resp.StatusCode, readBody(t, resp)
}

// getJSON performs a GET and decodes the JSON body.
func getJSON(t *testing.T, path string, dst any) int {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL() + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	return resp.StatusCode
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}
