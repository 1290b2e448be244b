package catalog

import (
	"fmt"
	"slices"
	"sort"
)

const PaycheckPowerhouseUID = "PAYCHECK_POWERHOUSE"

type Product struct {
	UID         string
	Name        string
	Description string
	Price       int64 // minor units
	Currency    string
	Features    []string
	Popular     bool

	// Identifiers in the namespace of the payment provider, empty when not configured
	ExternalProductRef string
	ExternalPriceRef   string
}

type ExternalRefs struct {
	ProductRef string
	PriceRef   string
}

// Catalog is filled once at start and never changes afterwards, so it is safe for
// concurrent use without locking.
type Catalog struct {
	products map[string]Product
}

// New returns the catalog of everything that is for sale.
func New(refs ExternalRefs) *Catalog {
	c, err := NewFromProducts(Product{
		UID:         PaycheckPowerhouseUID,
		Name:        "Paycheck Powerhouse",
		Description: "Professional Google Sheets budget tracker with 50/30/20 rule breakdown",
		Price:       599,
		Currency:    "USD",
		Features: []string{
			"Smart budget tracker",
			"50/30/20 rule breakdown",
			"Real-time calculations",
			"Professional design",
			"Works on any device",
			"Fully customizable",
			"No subscriptions",
			"Lifetime access",
		},
		Popular:            true,
		ExternalProductRef: refs.ProductRef,
		ExternalPriceRef:   refs.PriceRef,
	})
	if err != nil {
		panic(err)
	}
	return c
}

func NewFromProducts(products ...Product) (*Catalog, error) {
	c := &Catalog{
		products: make(map[string]Product, len(products)),
	}
	for _, p := range products {
		if p.UID == "" {
			return nil, fmt.Errorf("product %q has no uid", p.Name)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product %s has negative price %d", p.UID, p.Price)
		}
		if _, exists := c.products[p.UID]; exists {
			return nil, fmt.Errorf("duplicate product %s", p.UID)
		}
		c.products[p.UID] = clone(p)
	}
	return c, nil
}

func (c *Catalog) LookupByID(uid string) (Product, bool) {
	p, found := c.products[uid]
	if !found {
		return Product{}, false
	}
	return clone(p), true
}

func (c *Catalog) LookupByExternalPriceRef(ref string) (Product, bool) {
	if ref == "" {
		return Product{}, false
	}
	for _, p := range c.products {
		if p.ExternalPriceRef == ref {
			return clone(p), true
		}
	}
	return Product{}, false
}

// ListAll returns all products ordered by uid.
func (c *Catalog) ListAll() []Product {
	result := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		result = append(result, clone(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UID < result[j].UID
	})
	return result
}

func clone(p Product) Product {
	p.Features = slices.Clone(p.Features)
	return p
}
