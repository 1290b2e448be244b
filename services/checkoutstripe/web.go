package checkoutstripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypublisher"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
	"github.com/MarcGrol/paycheckpowerhouse/services/catalog"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutevents"
)

const (
	maxCheckoutBodyBytes = 16 * 1024
	// Stripe caps webhook payloads well below this
	maxWebhookBodyBytes = 512 * 1024
)

type webService struct {
	logger      mylog.Logger
	service     *service
	limiter     *myhttp.RateLimiter
	formDecoder *form.Decoder
	publisher   mypublisher.Publisher
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(catalog *catalog.Catalog, payer Payer, webhookSecret string, nower mytime.Nower, ledger mystore.Store[WebhookEventRecord], publisher mypublisher.Publisher, publicBaseURL string, trustedProxies int) *webService {
	logger := mylog.New("checkoutstripe")
	return &webService{
		logger:      logger,
		service:     newService(logger, nower, catalog, payer, webhookSecret, ledger, publisher, publicBaseURL),
		limiter:     myhttp.NewRateLimiter(myhttp.LimitStrict, myhttp.BurstStrict, trustedProxies),
		formDecoder: form.NewDecoder(),
		publisher:   publisher,
	}
}

// RegisterEndpoints gives every route its own pipeline. The webhook must see the body
// exactly as Stripe signed it, so nothing but RawBody runs in front of it.
func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	writer := myhttp.NewWriter(s.logger)

	router.Handle("/api/stripe/checkout",
		myhttp.NewPipeline(s.limiter.Stage(writer), myhttp.MaxBodySize(maxCheckoutBodyBytes)).
			ThenFunc(s.startCheckoutPage())).Methods("POST")

	router.Handle("/api/stripe/session/{id}",
		myhttp.NewPipeline().ThenFunc(s.sessionPage())).Methods("GET")

	// Called by Stripe at a later time
	router.Handle("/api/stripe/webhook",
		myhttp.NewPipeline(myhttp.RawBody(maxWebhookBodyBytes, writer)).
			ThenFunc(s.webhookNotification())).Methods("POST")

	err := s.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

// startCheckoutPage answers json callers with the hosted checkout url and redirects
// html-form submissions straight to it.
func (s *webService) startCheckoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		isForm := isFormPost(r)

		req, err := s.parseCheckoutRequest(r, isForm)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		resp, err := s.service.createCheckoutSession(c, myhttp.HostnameWithScheme(r, s.service.publicBaseURL), req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		if isForm {
			http.Redirect(w, r, resp.URL, http.StatusSeeOther)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, checkoutResult{
			URL:       resp.URL,
			SessionID: resp.SessionID,
		})
	}
}

func (s *webService) sessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		sessionID := mux.Vars(r)["id"]

		view, err := s.service.fetchSession(c, sessionID)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) webhookNotification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload, found := myhttp.RawBodyFromContext(c)
		if !found {
			errorWriter.WriteError(c, w, 4, myerrors.NewInternalError(fmt.Errorf("raw body not captured")))
			return
		}

		event, err := s.service.verifier.verify(payload, r.Header.Get(signatureHeader))
		if err != nil {
			errorWriter.WriteError(c, w, 4, err)
			return
		}

		err = s.service.webhookNotification(c, event)
		if err != nil {
			errorWriter.WriteError(c, w, 5, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed webhook event",
		})
	}
}

func (s *webService) parseCheckoutRequest(r *http.Request, isForm bool) (CheckoutRequest, error) {
	body := checkoutForm{}
	if isForm {
		err := r.ParseForm()
		if err != nil {
			return CheckoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing form: %s", err))
		}
		err = s.formDecoder.Decode(&body, r.PostForm)
		if err != nil {
			return CheckoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
		}
	} else {
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			return CheckoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err))
		}
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = body.IdempotencyKey
	}

	return CheckoutRequest{
		ProductID:      strings.TrimSpace(body.ProductID),
		Email:          strings.TrimSpace(body.Email),
		Name:           strings.TrimSpace(body.Name),
		IdempotencyKey: strings.TrimSpace(idempotencyKey),
	}, nil
}

func isFormPost(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}
