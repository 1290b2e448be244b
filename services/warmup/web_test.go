package warmup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutstripe"
)

type brokenStore struct {
	mystore.Store[checkoutstripe.WebhookEventRecord]
}

func (s brokenStore) Get(c context.Context, uid string) (checkoutstripe.WebhookEventRecord, bool, error) {
	return checkoutstripe.WebhookEventRecord{}, false, fmt.Errorf("datastore unavailable")
}

func TestWarmup(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		// setup
		ledger, _, err := mystore.NewInMemoryStore[checkoutstripe.WebhookEventRecord](context.TODO())
		require.NoError(t, err)
		router := setup(t, ledger)

		// when
		response := warmup(t, router)

		// then
		assert.Equal(t, 200, response.Code)
	})

	t.Run("store not reachable", func(t *testing.T) {
		// setup
		router := setup(t, brokenStore{})

		// when
		response := warmup(t, router)

		// then
		assert.Equal(t, 503, response.Code)
	})
}

func warmup(t *testing.T, router *mux.Router) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodGet, "/_ah/warmup", nil)
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ledger mystore.Store[checkoutstripe.WebhookEventRecord]) *mux.Router {
	router := mux.NewRouter()
	err := NewWebService(ledger).RegisterEndpoints(context.TODO(), router)
	assert.NoError(t, err)
	return router
}
