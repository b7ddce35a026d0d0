package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/pkg/httpclient"
)

const pricingService = "pricing"

// PriceInput is everything the pricing service needs to quote a draft.
type PriceInput struct {
	Flow            string   `json:"flow"`
	Country         string   `json:"country"`
	DocumentType    string   `json:"document_type,omitempty"`
	Services        []string `json:"services,omitempty"`
	Quantity        int      `json:"quantity"`
	Expedited       bool     `json:"expedited"`
	ScannedCopies   bool     `json:"scanned_copies"`
	PickupService   bool     `json:"pickup_service"`
	PremiumPickup   string   `json:"premium_pickup,omitempty"`
	ReturnService   string   `json:"return_service,omitempty"`
	PremiumDelivery string   `json:"premium_delivery,omitempty"`
	VisaProductID   string   `json:"visa_product_id,omitempty"`
	CustomerType    string   `json:"customer_type"`
}

// PriceInputFrom extracts the pricing inputs from a draft's answers.
func PriceInputFrom(flow string, a domain.Answers) PriceInput {
	return PriceInput{
		Flow:            flow,
		Country:         a.Country,
		DocumentType:    a.DocumentType,
		Services:        a.Services,
		Quantity:        a.Quantity,
		Expedited:       a.Expedited,
		ScannedCopies:   a.ScannedCopies,
		PickupService:   a.PickupService,
		PremiumPickup:   a.PremiumPickup,
		ReturnService:   a.ReturnService,
		PremiumDelivery: a.PremiumDelivery,
		VisaProductID:   a.VisaProductID,
		CustomerType:    a.CustomerType,
	}
}

// Quote is a computed price. Amounts are in öre, VAT included.
type Quote struct {
	TotalPrice int64                `json:"total_price"`
	Breakdown  []domain.PricingLine `json:"breakdown"`
}

// PricingClient calls the pricing service.
type PricingClient struct {
	http    HTTPDoer
	baseURL string
}

// NewPricingClient creates a pricing client rooted at baseURL.
func NewPricingClient(doer HTTPDoer, baseURL string) *PricingClient {
	return &PricingClient{http: doer, baseURL: baseURL}
}

// CalculateOrderPrice quotes in. Quoting has no side effects, so the
// request carries an idempotency key and may be retried.
func (c *PricingClient) CalculateOrderPrice(ctx context.Context, in PriceInput) (*Quote, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal price input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/prices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create price request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpclient.IdempotencyKeyHeader, uuid.NewString())

	var q Quote
	if err := do(ctx, c.http, req, pricingService, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ApplicableAddons lists the optional services offered for a destination
// and document type.
func (c *PricingClient) ApplicableAddons(ctx context.Context, country, documentType string) ([]domain.Service, error) {
	q := url.Values{}
	q.Set("country", country)
	if documentType != "" {
		q.Set("document_type", documentType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/addons?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create addons request: %w", err)
	}

	var out struct {
		Addons []domain.Service `json:"addons"`
	}
	if err := do(ctx, c.http, req, pricingService, &out); err != nil {
		return nil, err
	}
	return out.Addons, nil
}
