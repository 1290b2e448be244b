package catalog

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	catalog *Catalog
}

func NewWebService(catalog *Catalog) *webService {
	return &webService{
		logger:  mylog.New("catalog"),
		catalog: catalog,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/api/products", s.listProducts()).Methods("GET")

	return nil
}

type productView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
}

func (s *webService) listProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		writer := myhttp.NewWriter(s.logger)

		products := s.catalog.ListAll()
		views := make([]productView, 0, len(products))
		for _, p := range products {
			views = append(views, productView{
				ID:          p.UID,
				Name:        p.Name,
				Description: p.Description,
				Price:       p.Price,
				Currency:    p.Currency,
				Features:    p.Features,
				Popular:     p.Popular,
			})
		}

		writer.Write(c, w, http.StatusOK, views)
	}
}
