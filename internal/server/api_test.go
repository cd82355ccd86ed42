package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/config"
	"github.com/livetemplate/tinkerpen/internal/gateway"
	"github.com/livetemplate/tinkerpen/internal/render"
	"github.com/livetemplate/tinkerpen/internal/store"
)

// brokenStore fails every write.
type brokenStore struct {
	*store.MemoryStore
}

func (b brokenStore) Put(ctx context.Context, key string, value []byte) error {
	return errors.New("quota exceeded")
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func decodeBody(t *testing.T, body string) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func TestAPIRender(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	snap := tinkerpen.Snapshot{HTML: "<h1>x</h1>", CSS: "h1{}", JS: "null.x"}
	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/render", `{"html":"<h1>x</h1>","css":"h1{}","js":"null.x"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Equal(t, render.Render(snap).String(), body)
}

func TestAPIRenderBadBody(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"array", "[]"},
		{"wrong type", `{"html": 42}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/render", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, decodeBody(t, body)["error"], "invalid snapshot")
		})
	}
}

func TestAPIRenderTooLarge(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	big := `{"html":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/render", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAPISnapshotRoundTrip(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, tinkerpen.NoticeNoSaved, decodeBody(t, body)["error"])

	resp, body = doRequest(t, http.MethodPut, ts.URL+"/api/snapshot", `{"html":"<p>","js":"go()"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "saved", decodeBody(t, body)["status"])

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"html": "<p>", "css": "", "js": "go()"}, decodeBody(t, body))
}

func TestAPILoadCorrupt(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Put(context.Background(), tinkerpen.StorageKey, []byte(`{"html":`)))
	_, ts := newTestServer(t, nil, st, "")

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAPISaveStorageFailure(t *testing.T) {
	_, ts := newTestServer(t, nil, brokenStore{store.NewMemoryStore()}, "")

	resp, body := doRequest(t, http.MethodPut, ts.URL+"/api/snapshot", `{}`)
	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
	assert.Contains(t, decodeBody(t, body)["error"], "quota exceeded")
}

func TestAPISaveReadOnly(t *testing.T) {
	config.SetReadOnly(true)
	defer config.SetReadOnly(false)

	_, ts := newTestServer(t, nil, nil, "")
	resp, body := doRequest(t, http.MethodPut, ts.URL+"/api/snapshot", `{}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, NoticeReadOnly, decodeBody(t, body)["error"])
}

func TestAPIShare(t *testing.T) {
	_, ts := newTestServer(t, nil, nil, "")

	t.Run("request origin", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/share", `{"html":"hi there"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		link := decodeBody(t, body)["url"]
		assert.True(t, strings.HasPrefix(link, ts.URL+"/?code="), link)

		snap, err := gateway.ParseShareLink(link)
		require.NoError(t, err)
		assert.Equal(t, tinkerpen.Snapshot{HTML: "hi there"}, snap)
	})

	t.Run("explicit base", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/share", `{"css":"a{}","base":"https://pens.example.com/p#x"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.True(t, strings.HasPrefix(decodeBody(t, body)["url"], "https://pens.example.com/p?code="))
	})

	t.Run("invalid base", func(t *testing.T) {
		resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/share", `{"base":"ftp://pens.example.com/"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPIDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.API = nil
	_, ts := newTestServer(t, cfg, nil, "")

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/snapshot", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.API.RateLimit = &config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	_, ts := newTestServer(t, cfg, nil, "")

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/render", `{}`)
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
