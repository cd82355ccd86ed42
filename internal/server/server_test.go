package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// testConfig returns a config with short timings for tests.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Editor.Debounce = "50ms"
	cfg.Sessions.TTL = "1m"
	return cfg
}

// newTestServer starts the playground behind httptest.
func newTestServer(t *testing.T, cfg *config.Config, st store.Store, penDir string) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if st == nil {
		st = store.NewMemoryStore()
	}

	srv, err := New(cfg, st, penDir)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServePlayground(t *testing.T) {
	cfg := testConfig()
	cfg.Title = "Test Pens"
	cfg.Editor.FontSize = 18
	_, ts := newTestServer(t, cfg, nil, "")

	resp, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<title>Test Pens</title>")
	assert.Contains(t, body, `data-font-size="18"`)
	assert.Contains(t, body, `data-notice-ms="2000"`)
	assert.Contains(t, body, `data-welcome-ms="3000"`)
	assert.Contains(t, body, CodeMirrorBase)
	assert.Contains(t, body, "Welcome to tinkerpen")
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
}

func TestServePlaygroundWelcomeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Welcome.Disabled = true
	_, ts := newTestServer(t, cfg, nil, "")

	_, body := get(t, ts.URL+"/")
	assert.NotContains(t, body, "Welcome to tinkerpen")
	assert.Contains(t, body, `id="welcome-overlay" hidden`)
}

func TestServePlaygroundCustomWelcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "welcome.md")
	require.NoError(t, os.WriteFile(path, []byte("# Hello class\n\n<script>alert(1)</script>\n"), 0644))

	cfg := testConfig()
	cfg.Welcome.File = path
	_, ts := newTestServer(t, cfg, nil, "")

	_, body := get(t, ts.URL+"/")
	assert.Contains(t, body, "Hello class")
	assert.NotContains(t, body, "alert(1)")
}

func TestNewMissingWelcomeFile(t *testing.T) {
	cfg := testConfig()
	cfg.Welcome.File = filepath.Join(t.TempDir(), "missing.md")

	_, err := New(cfg, store.NewMemoryStore(), "")
	assert.Error(t, err)
}

func TestRenderWelcome(t *testing.T) {
	html, err := RenderWelcome([]byte("# Title\n\nSome **bold** [link](javascript:alert(1)) text.\n\n<img src=x onerror=alert(1)>\n"))
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onerror")
}

func TestServeAssets(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	resp, body := get(t, ts.URL+"/assets/playground.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")
	assert.Contains(t, body, "srcdoc")

	resp, _ = get(t, ts.URL+"/assets/playground.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")

	resp, _ = get(t, ts.URL+"/assets/playground.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServePreview(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")
	snap := tinkerpen.Snapshot{HTML: "<h1>shared</h1>", CSS: "h1{color:blue}", JS: "throw new Error('x')"}

	link, err := gateway.ShareURL(ts.URL+"/preview", snap)
	require.NoError(t, err)

	resp, body := get(t, link)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, render.Render(snap).String(), body)

	resp, _ = get(t, ts.URL+"/preview")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/preview?code=garbage")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreviewIsSandboxed(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	_, page := get(t, ts.URL+"/")
	assert.Contains(t, page, `<iframe id="output" title="Preview" sandbox="`+PreviewSandbox+`">`)
	assert.NotContains(t, PreviewSandbox, "allow-same-origin")

	link, err := gateway.ShareURL(ts.URL+"/preview",
		tinkerpen.Snapshot{JS: "fetch('/api/snapshot', {method: 'PUT'})"})
	require.NoError(t, err)

	resp, _ := get(t, link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	csp := resp.Header.Get("Content-Security-Policy")
	assert.True(t, strings.HasPrefix(csp, "sandbox allow-scripts"), "csp = %q", csp)
	assert.NotContains(t, csp, "allow-same-origin")

	resp, _ = get(t, ts.URL+"/")
	assert.NotContains(t, resp.Header.Get("Content-Security-Policy"), "sandbox")
}

func TestServeHealth(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, body)
}

func TestCompression(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	req, err := http.NewRequest("GET", ts.URL+"/assets/playground.js", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	// A bare transport leaves the body compressed.
	resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestInitialSnapshot(t *testing.T) {
	t.Run("no pen directory", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, nil, "")
		assert.Equal(t, tinkerpen.DefaultSnapshot(), srv.initialSnapshot())
	})

	t.Run("pen directory", func(t *testing.T) {
		dir := t.TempDir()
		snap := tinkerpen.Snapshot{HTML: "<p>pen</p>", CSS: "p{}", JS: "run()"}
		require.NoError(t, store.WritePen(dir, snap))

		srv, _ := newTestServer(t, nil, nil, dir)
		assert.Equal(t, snap, srv.initialSnapshot())
	})

	t.Run("empty pen directory", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, nil, t.TempDir())
		assert.Equal(t, tinkerpen.DefaultSnapshot(), srv.initialSnapshot())
	})
}

func TestEnableWatchWithoutDir(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil, "")
	assert.Error(t, srv.EnableWatch(false))
}

func TestWatchSyncsSessions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, store.WritePen(dir, tinkerpen.Snapshot{HTML: "<p>before</p>"}))

	srv, ts := newTestServer(t, nil, nil, dir)
	require.NoError(t, srv.EnableWatch(false))

	c := newWSTestClient(t, ts, "")
	c.drainUntil("render")

	require.NoError(t, os.WriteFile(filepath.Join(dir, store.HTMLFile), []byte("<p>after</p>"), 0644))

	msg := c.waitFor("set", 3*time.Second)
	assert.Equal(t, "html", msg["lang"])
	assert.Equal(t, "<p>after</p>", msg["value"])

	rendered := c.waitFor("render", 3*time.Second)
	assert.True(t, strings.Contains(rendered["doc"].(string), "<p>after</p>"))
}
