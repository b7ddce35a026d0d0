// Package notification builds the order confirmation emails and hands them
// to the email queue.
package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/label"
	"github.com/aleber123/nytt-sub001/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

var enqueueFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "storefront_email_enqueue_failures_total",
	Help: "Order emails that could not be written to the email queue",
})

var swedish = message.NewPrinter(language.Swedish)

// formatSEK renders an amount in öre as Swedish kronor, e.g. "1 790,00 kr".
func formatSEK(ore int64) string {
	return swedish.Sprintf("%.2f kr", float64(ore)/100)
}

// Config holds the sender identity and the public site URL used in links.
type Config struct {
	BusinessName  string
	BusinessEmail string
	PublicBaseURL string
}

// Notifier renders order emails and enqueues them.
type Notifier struct {
	queue     repository.EmailQueue
	catalog   *catalog.Catalog
	templates *template.Template
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New parses the email templates.
func New(queue repository.EmailQueue, cat *catalog.Catalog, cfg Config, logger *slog.Logger) (*Notifier, error) {
	tmpl, err := template.New("email").Funcs(template.FuncMap{
		"sek":  formatSEK,
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Notifier{
		queue:     queue,
		catalog:   cat,
		templates: tmpl,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

type emailData struct {
	OrderID          string
	Flow             string
	Visa             bool
	CustomerName     string
	CountryName      string
	DocumentTypeName string
	ServiceNames     []string
	VisaProductName  string
	ReturnAddress    []string
	SendOriginals    bool
	Uploaded         bool
	LabelURL         string
	Address          []string
	BusinessName     string
	Answers          domain.Answers
}

func (n *Notifier) data(orderID, flow string, a domain.Answers) emailData {
	d := emailData{
		OrderID:       orderID,
		Flow:          flow,
		Visa:          flow == domain.FlowVisa,
		CustomerName:  a.CustomerInfo.DisplayName(a.CustomerType),
		CountryName:   a.Country,
		Address:       label.Address,
		BusinessName:  n.cfg.BusinessName,
		Answers:       a,
		Uploaded:      a.DocumentSource == domain.SourceUpload,
		LabelURL:      strings.TrimRight(n.cfg.PublicBaseURL, "/") + "/api/v1/shipping-label?order=" + url.QueryEscape(orderID),
		SendOriginals: flow == domain.FlowLegalization && a.DocumentSource == domain.SourceOriginal && !a.PickupService,
	}
	if c, ok := n.catalog.Country(a.Country); ok {
		d.CountryName = c.Name
	}
	d.DocumentTypeName = a.DocumentType
	for _, dt := range n.catalog.DocumentTypes() {
		if dt.ID == a.DocumentType {
			d.DocumentTypeName = dt.Name
		}
	}
	for _, id := range a.Services {
		name := id
		if s, ok := n.catalog.Service(id); ok {
			name = s.Name
		}
		d.ServiceNames = append(d.ServiceNames, name)
	}
	if p, ok := n.catalog.VisaProduct(a.VisaProductID); ok {
		d.VisaProductName = p.Name
	}
	if domain.IsCarrier(a.ReturnService) {
		r := a.ReturnAddress
		for _, part := range []string{
			strings.TrimSpace(r.FirstName + " " + r.LastName), r.CompanyName, r.Street,
			r.AddressLine2, strings.TrimSpace(r.PostalCode + " " + r.City), r.CountryCode,
		} {
			if part != "" {
				d.ReturnAddress = append(d.ReturnAddress, part)
			}
		}
	}
	return d
}

// Build renders the customer confirmation and the business notification.
func (n *Notifier) Build(orderID, flow string, a domain.Answers) ([]domain.EmailRecord, error) {
	d := n.data(orderID, flow, a)

	var customer, business bytes.Buffer
	if err := n.templates.ExecuteTemplate(&customer, "customer.html", d); err != nil {
		return nil, fmt.Errorf("render customer email: %w", err)
	}
	if err := n.templates.ExecuteTemplate(&business, "business.html", d); err != nil {
		return nil, fmt.Errorf("render business email: %w", err)
	}

	now := n.now().UTC()
	return []domain.EmailRecord{
		{
			ID:        uuid.NewString(),
			Name:      d.CustomerName,
			Email:     a.CustomerInfo.Email,
			Subject:   "Orderbekräftelse " + orderID,
			Message:   customer.String(),
			OrderID:   orderID,
			CreatedAt: now,
			Status:    domain.EmailStatusPending,
		},
		{
			ID:        uuid.NewString(),
			Name:      n.cfg.BusinessName,
			Email:     n.cfg.BusinessEmail,
			Subject:   fmt.Sprintf("Ny order %s (%s)", orderID, flow),
			Message:   business.String(),
			OrderID:   orderID,
			CreatedAt: now,
			Status:    domain.EmailStatusPending,
		},
	}, nil
}

// OrderSubmitted enqueues both emails for a created order. The order
// already exists at this point, so failures are logged and counted but
// never returned.
func (n *Notifier) OrderSubmitted(ctx context.Context, orderID, flow string, a domain.Answers) {
	records, err := n.Build(orderID, flow, a)
	if err == nil {
		err = n.queue.Enqueue(ctx, records...)
	}
	if err != nil {
		enqueueFailures.Inc()
		n.logger.ErrorContext(ctx, "failed to enqueue order emails",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return
	}
	n.logger.InfoContext(ctx, "order emails enqueued",
		slog.String("order_id", orderID),
		slog.Int("count", len(records)),
	)
}
