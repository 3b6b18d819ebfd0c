package cardcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault/internal/auth"
)

func testRouter(t *testing.T, c *Cache) (*gin.Engine, auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := auth.TokenService{Secret: []byte("test-secret"), Issuer: "cardvault", Duration: time.Hour}

	r := gin.New()
	h := NewHandler(c)
	h.RegisterRoutes(r.Group("/"))
	h.RegisterAdminRoutes(r.Group("/"), tokens)
	return r, tokens
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandlerBeforeFirstPublish(t *testing.T) {
	p := newTestProvider(t)
	r, _ := testRouter(t, newTestCache(t, p.srv.URL))

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/cards/lookup?set=thb&cn=254").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/cards/resolve?name=Forest").Code)

	// epoch and stats stay reachable for probes
	w := get(r, "/epoch")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":false`)
	assert.Equal(t, http.StatusOK, get(r, "/stats").Code)
}

func TestHandlerLookupAndResolve(t *testing.T) {
	p := newTestProvider(t)
	c := newTestCache(t, p.srv.URL)
	_, err := c.Sync(context.Background(), KindDefaultCards, false, nil)
	require.NoError(t, err)
	r, _ := testRouter(t, c)

	w := get(r, "/cards/lookup?set=thb&cn=254&name=Forest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"display_name":"Forest"`)

	w = get(r, "/cards/resolve?set=thb&cn=254&name=Forest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"oracle_id":"o-forest"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/cards/lookup?set=thb&cn=999").Code)

	w = get(r, "/cards/unique?name=lightning+bolt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "o-bolt")

	w = get(r, "/cards/oracle/o-forest/prints")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = get(r, "/sets")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Theros Beyond Death")
}

func TestHandlerSearch(t *testing.T) {
	p := newTestProvider(t)
	c := newTestCache(t, p.srv.URL)
	_, err := c.Sync(context.Background(), KindDefaultCards, false, nil)
	require.NoError(t, err)
	r, _ := testRouter(t, c)

	w := get(r, "/cards/search?q=bolt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lightning Bolt")
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestHandlerRulings(t *testing.T) {
	p := newTestProvider(t)
	c := newTestCache(t, p.srv.URL)
	r, _ := testRouter(t, c)

	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/cards/oracle/o-bolt/rulings").Code)

	_, err := c.Sync(context.Background(), KindRulings, false, nil)
	require.NoError(t, err)
	w := get(r, "/cards/oracle/o-bolt/rulings")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Earlier ruling.")
}

func TestHandlerSyncAuthAndConflict(t *testing.T) {
	p := newTestProvider(t)
	c := newTestCache(t, p.srv.URL)
	r, tokens := testRouter(t, c)

	// unauthenticated
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, _, err := tokens.Sign("ops-cli")
	require.NoError(t, err)
	authed := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		return w
	}

	w = authed("/sync?kind=default_cards")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	// a held flight reports conflict instead of queueing
	require.NoError(t, c.flights.TryAcquire(KindDefaultCards))
	defer c.flights.Release(KindDefaultCards)
	w = authed("/sync?kind=default_cards")
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusBadRequest, authed("/sync?kind=bogus").Code)
}
