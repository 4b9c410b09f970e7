package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/bucketwalk/internal/config"
)

func TestNewServer_Invoke(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	bucket := newBucket(t, t.TempDir(), "served", "x", "y")

	cfg, err := config.Load(t.Context(), map[string]any{"provider": "file"})
	require.NoError(t, err)
	orig := appConfig
	appConfig = cfg
	defer func() { appConfig = orig }()

	require.NoError(t, serveCmd.ParseFlags([]string{"--bucket", bucket, "--port", "9999"}))
	srv := newServer(serveCmd)
	assert.Equal(t, 9999, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoke", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Objects in bucket served:\nx\ny\n", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `bucketwalk_scan_items_total{op="invoke"} 2`)
}

func TestNewServer_NoBucket(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })
	t.Setenv("BUCKETWALK_BUCKET", "")

	cfg, err := config.Load(t.Context())
	require.NoError(t, err)
	orig := appConfig
	appConfig = cfg
	defer func() { appConfig = orig }()

	srv := newServer(serveCmd)
	assert.Equal(t, cfg.Server.Port, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoke", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
