package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleber123/nytt-sub001/internal/catalog"
	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/repository/memory"
)

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, ...domain.EmailRecord) error {
	return errors.New("connection refused")
}

func testConfig() Config {
	return Config{
		BusinessName:  "Legaliseringstjänst",
		BusinessEmail: "orders@example.se",
		PublicBaseURL: "https://shop.example.se/",
	}
}

func newNotifier(t *testing.T, q interface {
	Enqueue(context.Context, ...domain.EmailRecord) error
}) *Notifier {
	t.Helper()
	n, err := New(q, catalog.New(), testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return n
}

func legalizationAnswers() domain.Answers {
	a := domain.DefaultAnswers()
	a.Country = "DE"
	a.DocumentType = "diploma"
	a.Services = []string{"apostille", "translation"}
	a.Quantity = 2
	a.ReturnService = domain.ReturnDHLSweden
	a.ReturnAddress = domain.Address{FirstName: "Anna", LastName: "Berg", Street: "Sveavägen 10", PostalCode: "113 57", City: "Stockholm", CountryCode: "SE"}
	a.CustomerInfo = domain.CustomerInfo{FirstName: "Anna", LastName: "Berg", Email: "anna@example.se", Phone: "+46701234567"}
	a.BillingInfo = domain.Address{Street: "Drottninggatan 1", PostalCode: "111 51", City: "Stockholm", CountryCode: "SE"}
	a.AdditionalNotes = "<b>urgent</b>"
	a.PricingBreakdown = []domain.PricingLine{{Description: "Apostille", Quantity: 2, UnitPrice: 89500, Total: 179000}}
	a.TotalPrice = 179000
	return a
}

func TestBuild_Legalization(t *testing.T) {
	n := newNotifier(t, memory.NewEmailQueue())

	records, err := n.Build("SWE000123", domain.FlowLegalization, legalizationAnswers())
	require.NoError(t, err)
	require.Len(t, records, 2)

	customer, business := records[0], records[1]
	assert.Equal(t, "anna@example.se", customer.Email)
	assert.Equal(t, "Anna Berg", customer.Name)
	assert.Equal(t, "Orderbekräftelse SWE000123", customer.Subject)
	assert.Equal(t, domain.EmailStatusPending, customer.Status)
	assert.Equal(t, "SWE000123", customer.OrderID)
	assert.Contains(t, customer.Message, "Tyskland")
	assert.Contains(t, customer.Message, "Apostille, Auktoriserad översättning")
	assert.Contains(t, customer.Message, "790,00 kr")
	assert.Contains(t, customer.Message, "https://shop.example.se/api/v1/shipping-label?order=SWE000123")
	assert.Contains(t, customer.Message, "Box 38")

	assert.Equal(t, "orders@example.se", business.Email)
	assert.Equal(t, "Ny order SWE000123 (legalization)", business.Subject)
	assert.Contains(t, business.Message, "Examensbevis")
	assert.Contains(t, business.Message, "Anna Berg, Sveavägen 10, 113 57 Stockholm, SE")
	assert.Contains(t, business.Message, "&lt;b&gt;urgent&lt;/b&gt;")
	assert.NotEqual(t, customer.ID, business.ID)
}

func TestBuild_UploadSkipsPostingInstructions(t *testing.T) {
	n := newNotifier(t, memory.NewEmailQueue())
	a := legalizationAnswers()
	a.DocumentSource = domain.SourceUpload
	a.UploadedFiles = []domain.FileSlot{{Key: "a"}, {Key: "b"}}

	records, err := n.Build("SWE000124", domain.FlowLegalization, a)
	require.NoError(t, err)
	assert.NotContains(t, records[0].Message, "shipping-label")
	assert.Contains(t, records[0].Message, "2 uppladdade fil(er)")
}

func TestBuild_Visa(t *testing.T) {
	n := newNotifier(t, memory.NewEmailQueue())
	a := domain.DefaultAnswers()
	a.Country = "IN"
	a.Nationality = "SE"
	a.VisaProductID = "in-tourist"
	a.VisaType = domain.VisaTypeEVisa
	a.DepartureDate = "2026-11-01"
	a.ReturnDate = "2026-11-20"
	a.CustomerType = domain.CustomerCompany
	a.CustomerInfo = domain.CustomerInfo{CompanyName: "Berg AB", Email: "info@berg.se", Phone: "08-123"}

	records, err := n.Build("VIS000042", domain.FlowVisa, a)
	require.NoError(t, err)
	assert.Equal(t, "Berg AB", records[0].Name)
	assert.Contains(t, records[0].Message, "Turistvisum (e-visum), 30 dagar")
	assert.Contains(t, records[0].Message, "2026-11-01 till 2026-11-20")
	assert.NotContains(t, records[0].Message, "shipping-label")
}

func TestOrderSubmitted_Enqueues(t *testing.T) {
	q := memory.NewEmailQueue()
	n := newNotifier(t, q)

	n.OrderSubmitted(context.Background(), "SWE000123", domain.FlowLegalization, legalizationAnswers())
	assert.Len(t, q.Records(), 2)
}

func TestOrderSubmitted_SwallowsQueueErrors(t *testing.T) {
	n := newNotifier(t, failingQueue{})
	before := testutil.ToFloat64(enqueueFailures)

	assert.NotPanics(t, func() {
		n.OrderSubmitted(context.Background(), "SWE000123", domain.FlowLegalization, legalizationAnswers())
	})
	assert.Equal(t, before+1, testutil.ToFloat64(enqueueFailures))
}

func TestFormatSEK(t *testing.T) {
	assert.Contains(t, formatSEK(89500), "895,00 kr")
	assert.Contains(t, formatSEK(5), "0,05 kr")
}
