package fulfillment

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypubsub"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutevents"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// NewWebService consumes the checkout topic. baseURL is where pub/sub can reach this process,
// pushes that do not carry internalToken are refused.
func NewWebService(pubsub mypubsub.PubSub, templateLink string, baseURL string, internalToken string) *webService {
	logger := mylog.New("fulfillment")
	return &webService{
		logger:  logger,
		service: newService(logger, pubsub, templateLink, baseURL, internalToken),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	// Pushed by the checkout topic subscription
	router.Handle(eventPath,
		myhttp.NewPipeline(myhttp.InternalToken(s.service.internalToken, myhttp.NewWriter(s.logger))).
			ThenFunc(s.handleEventEnvelope())).Methods("POST")

	return s.service.Subscribe(c)
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}
