package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/pkg/httpclient"
)

const orderService = "order"

// Order is the payload sent to the order service.
type Order struct {
	DraftID string         `json:"draft_id"`
	Flow    string         `json:"flow"`
	Locale  string         `json:"locale,omitempty"`
	Answers domain.Answers `json:"answers"`
}

// File is one uploaded document forwarded with an order.
type File struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// VisaOrderResult identifies a created visa order. The token grants access
// to the confirmation page.
type VisaOrderResult struct {
	OrderID string `json:"order_id"`
	Token   string `json:"token"`
}

// OrdersClient calls the order service.
type OrdersClient struct {
	http    HTTPDoer
	baseURL string
}

// NewOrdersClient creates an order client rooted at baseURL.
func NewOrdersClient(doer HTTPDoer, baseURL string) *OrdersClient {
	return &OrdersClient{http: doer, baseURL: baseURL}
}

// CreateOrderWithFiles creates a legalization order as a multipart request:
// an "order" JSON part followed by one "files" part per document. The
// draft ID is the idempotency key, so the order service deduplicates
// retries of the same draft.
func (c *OrdersClient) CreateOrderWithFiles(ctx context.Context, order Order, files []File) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	orderJSON, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="order"`},
		"Content-Type":        {"application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("create order part: %w", err)
	}
	if _, err := part.Write(orderJSON); err != nil {
		return "", fmt.Errorf("write order part: %w", err)
	}

	for i, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%s`, strconv.Quote(f.Name)))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("create file part %d: %w", i, err)
		}
		if _, err := io.Copy(part, f.Data); err != nil {
			return "", fmt.Errorf("write file part %d: %w", i, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(httpclient.IdempotencyKeyHeader, order.DraftID)

	var out struct {
		OrderID string `json:"order_id"`
	}
	if err := do(ctx, c.http, req, orderService, &out); err != nil {
		return "", err
	}
	if out.OrderID == "" {
		return "", fmt.Errorf("order service returned no order id")
	}
	return out.OrderID, nil
}

// CreateVisaOrder creates a visa order.
func (c *OrdersClient) CreateVisaOrder(ctx context.Context, order Order) (*VisaOrderResult, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal visa order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/visa-orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create visa order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpclient.IdempotencyKeyHeader, order.DraftID)

	var out VisaOrderResult
	if err := do(ctx, c.http, req, orderService, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" {
		return nil, fmt.Errorf("order service returned no order id")
	}
	return &out, nil
}
