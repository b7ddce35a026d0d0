// Package catalog serves the storefront's reference data: destination
// countries with their Hague membership, legalization services, document
// types and visa products.
package catalog

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/aleber123/nytt-sub001/internal/domain"
	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

// CountryServices lists every service for a destination and marks the ones
// usually needed there. Recommendations never restrict the choice.
type CountryServices struct {
	Country     domain.Country   `json:"country"`
	Services    []domain.Service `json:"services"`
	Recommended []string         `json:"recommended"`
}

// Catalog is immutable after New and safe for concurrent use.
type Catalog struct {
	countries     []domain.Country
	byCode        map[string]domain.Country
	services      []domain.Service
	byServiceID   map[string]domain.Service
	documentTypes []domain.DocumentType
	visaProducts  []domain.VisaProduct
}

// New builds the catalog with countries ordered by their Swedish name.
func New() *Catalog {
	c := &Catalog{
		countries:     slices.Clone(countries),
		byCode:        make(map[string]domain.Country, len(countries)),
		services:      slices.Clone(services),
		byServiceID:   make(map[string]domain.Service, len(services)),
		documentTypes: slices.Clone(documentTypes),
		visaProducts:  slices.Clone(visaProducts),
	}

	col := collate.New(language.Swedish)
	slices.SortFunc(c.countries, func(a, b domain.Country) int {
		return col.CompareString(a.Name, b.Name)
	})
	for _, country := range c.countries {
		c.byCode[country.Code] = country
	}
	for _, s := range c.services {
		c.byServiceID[s.ID] = s
	}
	return c
}

// Countries returns every country.
func (c *Catalog) Countries() []domain.Country {
	return slices.Clone(c.countries)
}

// Country looks a country up by ISO code, case-insensitively.
func (c *Catalog) Country(code string) (domain.Country, bool) {
	country, ok := c.byCode[strings.ToUpper(code)]
	return country, ok
}

// Services returns every legalization service.
func (c *Catalog) Services() []domain.Service {
	return slices.Clone(c.services)
}

// Service looks a service up by ID.
func (c *Catalog) Service(id string) (domain.Service, bool) {
	s, ok := c.byServiceID[id]
	return s, ok
}

// ServicesFor returns the services for a destination. Hague members are
// recommended an apostille; other countries the embassy legalization chain.
func (c *Catalog) ServicesFor(code string) (CountryServices, error) {
	country, ok := c.Country(code)
	if !ok {
		return CountryServices{}, apperrors.NotFound("country", code)
	}
	recommended := []string{ServiceNotarization, ServiceChamber, ServiceUD, ServiceEmbassy}
	if country.Hague {
		recommended = []string{ServiceApostille}
	}
	return CountryServices{
		Country:     country,
		Services:    c.Services(),
		Recommended: recommended,
	}, nil
}

// DocumentTypes returns every document type.
func (c *Catalog) DocumentTypes() []domain.DocumentType {
	return slices.Clone(c.documentTypes)
}

// DocumentType reports whether id names a known document type.
func (c *Catalog) DocumentType(id string) bool {
	return slices.ContainsFunc(c.documentTypes, func(d domain.DocumentType) bool { return d.ID == id })
}

// VisaProducts returns the visas offered for a destination.
func (c *Catalog) VisaProducts(country string) []domain.VisaProduct {
	country = strings.ToUpper(country)
	var out []domain.VisaProduct
	for _, p := range c.visaProducts {
		if p.Country == country {
			out = append(out, p)
		}
	}
	return out
}

// VisaProduct looks a visa product up by ID.
func (c *Catalog) VisaProduct(id string) (domain.VisaProduct, bool) {
	i := slices.IndexFunc(c.visaProducts, func(p domain.VisaProduct) bool { return p.ID == id })
	if i < 0 {
		return domain.VisaProduct{}, false
	}
	return c.visaProducts[i], true
}
