package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boltdb/bolt"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myconfig"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypublisher"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypubsub"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myqueue"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
	"github.com/MarcGrol/paycheckpowerhouse/services/catalog"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutstripe"
	"github.com/MarcGrol/paycheckpowerhouse/services/fulfillment"
	"github.com/MarcGrol/paycheckpowerhouse/services/site"
	"github.com/MarcGrol/paycheckpowerhouse/services/warmup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	c := context.Background()

	cfg, err := myconfig.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err)
	}

	router, cleanup, err := createRouter(c, cfg)
	if err != nil {
		log.Fatalf("Error creating services: %s", err)
	}
	defer cleanup()

	startWebServerBlocking(cfg.Port, router)
}

func createRouter(c context.Context, cfg myconfig.Config) (*mux.Router, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var db *bolt.DB
	if cfg.BoltPath != "" {
		boltDB, dbCleanup, err := mystore.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, cleanup, err
		}
		db = boltDB
		cleanups = append(cleanups, dbCleanup)
	}

	outbox, outboxCleanup, err := newStore[myevents.EventEnvelope](c, db)
	if err != nil {
		return nil, cleanup, err
	}
	cleanups = append(cleanups, outboxCleanup)

	ledger, ledgerCleanup, err := newStore[checkoutstripe.WebhookEventRecord](c, db)
	if err != nil {
		return nil, cleanup, err
	}
	cleanups = append(cleanups, ledgerCleanup)

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error creating pubsub: %s", err)
	}
	cleanups = append(cleanups, pubsubCleanup)

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		return nil, cleanup, fmt.Errorf("error creating queue: %s", err)
	}
	cleanups = append(cleanups, queueCleanup)

	nower := mytime.RealNower{}
	publisher := mypublisher.New(outbox, pubsub, queue, nower, cfg.InternalToken)

	products := catalog.New(catalog.ExternalRefs{
		ProductRef: cfg.StripeProductID,
		PriceRef:   cfg.StripePriceID,
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Port
	}

	assets, err := site.NewWebService(cfg.StaticDir)
	if err != nil {
		return nil, cleanup, err
	}

	router := mux.NewRouter()

	publisher.RegisterEndpoints(c, router)

	err = catalog.NewWebService(products).RegisterEndpoints(c, router)
	if err != nil {
		return nil, cleanup, err
	}

	err = checkoutstripe.NewWebService(products, checkoutstripe.NewPayer(cfg.StripeSecretKey), cfg.StripeWebhookSecret,
		nower, ledger, publisher, cfg.PublicBaseURL, cfg.TrustedProxies).RegisterEndpoints(c, router)
	if err != nil {
		return nil, cleanup, err
	}

	err = fulfillment.NewWebService(pubsub, cfg.TemplateLink, baseURL, cfg.InternalToken).RegisterEndpoints(c, router)
	if err != nil {
		return nil, cleanup, err
	}

	err = warmup.NewWebService(ledger).RegisterEndpoints(c, router)
	if err != nil {
		return nil, cleanup, err
	}

	// Must be last: catches everything that is left
	err = assets.RegisterEndpoints(c, router)
	if err != nil {
		return nil, cleanup, err
	}

	return router, cleanup, nil
}

// newStore keeps all entities in the bolt file when one is configured.
func newStore[T any](c context.Context, db *bolt.DB) (mystore.Store[T], func(), error) {
	if db == nil {
		return mystore.New[T](c)
	}

	store, cleanup, err := mystore.NewBoltStore[T](db)
	if err != nil {
		return nil, nil, err
	}
	return store, cleanup, nil
}

func startWebServerBlocking(port string, router *mux.Router) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting webserver on port %s: %s", port, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("Shutting down webserver")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err != nil {
		log.Printf("Error shutting down webserver: %s", err)
	}
}
