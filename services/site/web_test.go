package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSite(t *testing.T) {
	files := fstest.MapFS{
		"index.html":      {Data: []byte("<html>entry</html>")},
		"assets/app.js":   {Data: []byte("console.log('app')")},
		"assets/logo.svg": {Data: []byte("<svg/>")},
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	err := newWebService(files).RegisterEndpoints(context.TODO(), router)
	require.NoError(t, err)

	get := func(path string) *httptest.ResponseRecorder {
		request, err := http.NewRequest(http.MethodGet, path, nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		return response
	}

	t.Run("existing file", func(t *testing.T) {
		response := get("/assets/app.js")
		assert.Equal(t, 200, response.Code)
		assert.Equal(t, "console.log('app')", response.Body.String())
	})

	t.Run("root", func(t *testing.T) {
		response := get("/")
		assert.Equal(t, 200, response.Code)
		assert.Equal(t, "<html>entry</html>", response.Body.String())
	})

	t.Run("client side route falls back to entry document", func(t *testing.T) {
		response := get("/success?session_id=cs_123")
		assert.Equal(t, 200, response.Code)
		assert.Equal(t, "text/html; charset=utf-8", response.Header().Get("Content-Type"))
		assert.Equal(t, "<html>entry</html>", response.Body.String())
	})

	t.Run("directory falls back to entry document", func(t *testing.T) {
		response := get("/assets")
		assert.Equal(t, 200, response.Code)
		assert.Equal(t, "<html>entry</html>", response.Body.String())
	})

	t.Run("api routes win", func(t *testing.T) {
		response := get("/api/products")
		assert.Equal(t, 200, response.Code)
		assert.Empty(t, response.Body.String())
	})

	t.Run("unknown api path is json 404", func(t *testing.T) {
		response := get("/api/unknown")
		assert.Equal(t, 404, response.Code)
		assert.Equal(t, "application/json", response.Header().Get("Content-Type"))
	})
}

func TestBundledAssets(t *testing.T) {
	sut, err := NewWebService("")
	require.NoError(t, err)

	router := mux.NewRouter()
	err = sut.RegisterEndpoints(context.TODO(), router)
	require.NoError(t, err)

	request, err := http.NewRequest(http.MethodGet, "/download", nil)
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)

	assert.Equal(t, 200, response.Code)
	assert.Contains(t, response.Body.String(), "Paycheck Powerhouse")
}
