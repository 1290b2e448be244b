package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutstripe"
)

const warmupKey = "warmup"

type webService struct {
	logger mylog.Logger
	ledger mystore.Store[checkoutstripe.WebhookEventRecord]
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewWebService(ledger mystore.Store[checkoutstripe.WebhookEventRecord]) *webService {
	return &webService{
		logger: mylog.New("warmup"),
		ledger: ledger,
	}
}

// RegisterEndpoints registers the warmup request App Engine sends before routing traffic
// to a new instance.
func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")

	return nil
}

// warmupPage opens the connection to the store so the first webhook does not pay for it.
func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, _, err := s.ledger.Get(c, warmupKey)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnavailableError(fmt.Errorf("store not reachable: %s", err)))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
