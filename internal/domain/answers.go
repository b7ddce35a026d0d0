package domain

import "slices"

// Flow identifiers.
const (
	FlowLegalization = "legalization"
	FlowVisa         = "visa"
)

// Document sources.
const (
	SourceOriginal = "original"
	SourceUpload   = "upload"
)

// Customer types.
const (
	CustomerPrivate = "private"
	CustomerCompany = "company"
)

// Visa types.
const (
	VisaTypeEVisa   = "e-visa"
	VisaTypeSticker = "sticker"
)

// Return services. The carrier services ship the documents back and need a
// full return address.
const (
	ReturnDHLSweden     = "dhl-sweden"
	ReturnDHLEurope     = "dhl-europe"
	ReturnDHLWorldwide  = "dhl-worldwide"
	ReturnStockholmCity = "stockholm-city"
	ReturnOwnDelivery   = "own-delivery"
	ReturnOfficePickup  = "office-pickup"
)

// MaxQuantity is the largest number of documents or travellers per order.
const MaxQuantity = 10

var carrierServices = []string{ReturnDHLSweden, ReturnDHLEurope, ReturnDHLWorldwide, ReturnStockholmCity}

// IsCarrier reports whether a return service ships to the return address.
func IsCarrier(returnService string) bool {
	return slices.Contains(carrierServices, returnService)
}

// IsValidFlow reports whether flow names a known wizard flow.
func IsValidFlow(flow string) bool {
	return flow == FlowLegalization || flow == FlowVisa
}

// Address is used for pickup, return and billing addresses. Which fields
// are mandatory depends on the role the address plays.
type Address struct {
	Name         string `json:"name,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	Street       string `json:"street,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	City         string `json:"city,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	SameAsPickup bool   `json:"same_as_pickup,omitempty"`
}

// CustomerInfo is the orderer's contact details.
type CustomerInfo struct {
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	OrgNumber   string `json:"org_number,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// DisplayName returns the company name for company customers and the full
// name otherwise.
func (c CustomerInfo) DisplayName(customerType string) string {
	if customerType == CustomerCompany && c.CompanyName != "" {
		return c.CompanyName
	}
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// FileSlot references one uploaded document. An empty Key means the slot
// still waits for a file.
type FileSlot struct {
	Key         string `json:"key,omitempty"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Filled reports whether a file has been uploaded into the slot.
func (f FileSlot) Filled() bool {
	return f.Key != ""
}

// PricingLine is one row of a price quote. Amounts are in öre, VAT included.
type PricingLine struct {
	ServiceID   string `json:"service_id,omitempty"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
	VATAmount   int64  `json:"vat_amount,omitempty"`
}

// Answers is the order draft accumulated across the wizard steps.
type Answers struct {
	Country              string   `json:"country"`
	DocumentType         string   `json:"document_type"`
	DocumentTypes        []string `json:"document_types,omitempty"`
	Services             []string `json:"services"`
	HelpMeChooseServices bool     `json:"help_me_choose_services"`
	Quantity             int      `json:"quantity"`
	Expedited            bool     `json:"expedited"`
	ScannedCopies        bool     `json:"scanned_copies"`

	DocumentSource          string     `json:"document_source"`
	UploadedFiles           []FileSlot `json:"uploaded_files"`
	PickupService           bool       `json:"pickup_service"`
	PickupMethod            string     `json:"pickup_method,omitempty"`
	PremiumPickup           string     `json:"premium_pickup,omitempty"`
	PickupAddress           Address    `json:"pickup_address"`
	ReturnService           string     `json:"return_service"`
	PremiumDelivery         string     `json:"premium_delivery,omitempty"`
	OwnReturnTrackingNumber string     `json:"own_return_tracking_number,omitempty"`
	ReturnAddress           Address    `json:"return_address"`

	CustomerType     string       `json:"customer_type"`
	CustomerInfo     CustomerInfo `json:"customer_info"`
	BillingInfo      Address      `json:"billing_info"`
	InvoiceReference string       `json:"invoice_reference,omitempty"`
	AdditionalNotes  string       `json:"additional_notes,omitempty"`
	TermsAccepted    bool         `json:"terms_accepted"`

	Nationality   string `json:"nationality,omitempty"`
	VisaProductID string `json:"visa_product_id,omitempty"`
	VisaType      string `json:"visa_type,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`

	PricingBreakdown []PricingLine `json:"pricing_breakdown,omitempty"`
	TotalPrice       int64         `json:"total_price"`
}

// DefaultAnswers returns the answers a new draft starts with.
func DefaultAnswers() Answers {
	return Answers{
		Quantity:       1,
		DocumentSource: SourceOriginal,
		CustomerType:   CustomerPrivate,
	}
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (a Answers) Clone() Answers {
	a.DocumentTypes = slices.Clone(a.DocumentTypes)
	a.Services = slices.Clone(a.Services)
	a.UploadedFiles = slices.Clone(a.UploadedFiles)
	a.PricingBreakdown = slices.Clone(a.PricingBreakdown)
	return a
}

// FileKeys returns the storage keys of all filled slots.
func (a Answers) FileKeys() []string {
	keys := make([]string, 0, len(a.UploadedFiles))
	for _, f := range a.UploadedFiles {
		if f.Filled() {
			keys = append(keys, f.Key)
		}
	}
	return keys
}
