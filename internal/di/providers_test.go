package di

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinChart/internal/service/cache"
	"CoinChart/pkg/config"
)

func TestInitializeApp(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)

	rec := httptest.NewRecorder()
	app.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Server().Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInitializeSessionManager(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	m, err := InitializeSessionManager(cfg)
	require.NoError(t, err)
	defer m.Close()
	assert.Empty(t, m.IDs())
	assert.NotEmpty(t, m.Catalog().Symbols())
}

func TestProvideCache(t *testing.T) {
	cfg := config.Default()
	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.TTLCache{}, c)
	assert.Empty(t, ProvideClosers(c))

	cfg.Cache.Redis.Enabled = true
	cfg.Cache.Redis.Addr = "127.0.0.1:1"
	_, err = ProvideCache(cfg)
	assert.Error(t, err)
}

func TestProvideLoggerRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
